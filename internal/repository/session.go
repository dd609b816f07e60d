package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
)

// SessionRepository — интерфейс для таблицы sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	// GetActive возвращает неистёкшую сессию. ErrNotFound — нет или истекла.
	GetActive(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteByUser удаляет все сессии пользователя.
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
	// DeleteExpired удаляет истёкшие сессии.
	DeleteExpired(ctx context.Context) (int64, error)
}

type sessionRepo struct {
	db DBTX
}

// NewSessionRepository создаёт репозиторий сессий.
func NewSessionRepository(db DBTX) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, s *model.Session) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO sessions (session_id, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		s.ID, s.UserID, s.ExpiresAt,
	).Scan(&s.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

func (r *sessionRepo) GetActive(ctx context.Context, id string) (*model.Session, error) {
	s := &model.Session{}
	err := r.db.QueryRow(ctx, `
		SELECT session_id, user_id, created_at, expires_at
		FROM sessions
		WHERE session_id = $1 AND expires_at > now()`, id,
	).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return nil, notFoundOr(err, "ошибка получения сессии")
	}
	return s, nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("ошибка удаления сессии: %w", err)
	}
	return nil
}

func (r *sessionRepo) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления сессий пользователя: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки истёкших сессий: %w", err)
	}
	return tag.RowsAffected(), nil
}
