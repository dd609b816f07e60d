package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
	"github.com/bigkaa/ttsstudio/internal/password"
	"github.com/bigkaa/ttsstudio/internal/repository"
)

// SessionService — вход по паролю и проверка сессий.
type SessionService struct {
	store  *repository.Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSessionService создаёт сервис сессий. ttl — время жизни сессии.
func NewSessionService(store *repository.Store, ttl time.Duration, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:  store,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "session_service")),
		now:    time.Now,
	}
}

// TTL возвращает время жизни сессии.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Login проверяет имя и пароль и создаёт сессию.
func (s *SessionService) Login(ctx context.Context, username, plain string) (*model.Session, *model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || plain == "" {
		return nil, nil, fmt.Errorf("%w: имя пользователя и пароль обязательны", ErrValidation)
	}

	user, err := s.store.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, mapRepoErr(err, fmt.Sprintf("пользователь %q", username))
	}
	if !user.Active {
		return nil, nil, fmt.Errorf("%w: пользователь %q деактивирован", ErrValidation, username)
	}

	ok, err := password.Verify(plain, user.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("проверка пароля пользователя %d: %w", user.ID, err)
	}
	if !ok {
		s.logger.Warn("Неверный пароль", slog.Int64("user_id", user.ID))
		return nil, nil, fmt.Errorf("%w: неверный пароль", ErrUnauthorized)
	}

	sess := &model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.store.Sessions.Create(ctx, sess); err != nil {
		return nil, nil, err
	}

	s.logger.Info("Пользователь вошёл", slog.Int64("user_id", user.ID))
	return sess, user, nil
}

// Authenticate возвращает субъекта по идентификатору сессии.
// Отсутствующая, истёкшая сессия или деактивированный пользователь — ErrUnauthorized.
func (s *SessionService) Authenticate(ctx context.Context, sessionID string) (model.Principal, error) {
	if sessionID == "" {
		return model.Principal{}, fmt.Errorf("%w: нет сессии", ErrUnauthorized)
	}

	sess, err := s.store.Sessions.GetActive(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Principal{}, fmt.Errorf("%w: сессия не найдена или истекла", ErrUnauthorized)
	}
	if err != nil {
		return model.Principal{}, err
	}

	user, err := s.store.Users.GetByID(ctx, sess.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Principal{}, fmt.Errorf("%w: пользователь сессии удалён", ErrUnauthorized)
	}
	if err != nil {
		return model.Principal{}, err
	}
	if !user.Active {
		return model.Principal{}, fmt.Errorf("%w: пользователь деактивирован", ErrUnauthorized)
	}

	return model.PrincipalFromUser(user), nil
}

// Current возвращает учётную запись текущего субъекта.
func (s *SessionService) Current(ctx context.Context, p model.Principal) (*model.User, error) {
	user, err := s.store.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, mapRepoErr(err, fmt.Sprintf("пользователь %d", p.UserID))
	}
	return user, nil
}

// Logout удаляет сессию. Повторный выход не считается ошибкой.
func (s *SessionService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	err := s.store.Sessions.Delete(ctx, sessionID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// PurgeExpired удаляет истёкшие сессии.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.Sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Истёкшие сессии удалены", slog.Int64("count", n))
	}
	return n, nil
}

// StartCleanup запускает фоновую горутину, периодически удаляющую истёкшие сессии.
func (s *SessionService) StartCleanup(ctx context.Context, interval time.Duration) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info("Периодическая очистка сессий запущена",
			slog.String("interval", interval.String()),
		)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Периодическая очистка сессий остановлена")
				return
			case <-ticker.C:
				if _, err := s.PurgeExpired(ctx); err != nil {
					s.logger.Error("Ошибка очистки сессий", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// StopCleanup останавливает фоновую очистку и ждёт завершения.
func (s *SessionService) StopCleanup() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}
