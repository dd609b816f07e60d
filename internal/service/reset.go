package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/ttsstudio/internal/audiostore"
	"github.com/bigkaa/ttsstudio/internal/domain/model"
	"github.com/bigkaa/ttsstudio/internal/password"
	"github.com/bigkaa/ttsstudio/internal/repository"
)

// ResetService — полная очистка данных приложения (команда reset).
type ResetService struct {
	store  *repository.Store
	tx     repository.Transactor
	assets audiostore.Store
	logger *slog.Logger
}

// NewResetService создаёт сервис очистки.
func NewResetService(store *repository.Store, tx repository.Transactor, assets audiostore.Store, logger *slog.Logger) *ResetService {
	return &ResetService{
		store:  store,
		tx:     tx,
		assets: assets,
		logger: logger.With(slog.String("component", "reset_service")),
	}
}

// Reset удаляет пользователей со всем их содержимым, ключ речевого сервиса
// и справочник голосов, затем создаёт одного администратора.
// Аудио удаляется после коммита; ошибки удаления только логируются.
func (s *ResetService) Reset(ctx context.Context, adminUsername, adminPassword string) (*model.User, error) {
	adminUsername = strings.TrimSpace(adminUsername)
	if adminUsername == "" || adminPassword == "" {
		return nil, fmt.Errorf("%w: имя и пароль администратора обязательны", ErrValidation)
	}

	hash, err := password.Hash(adminPassword)
	if err != nil {
		return nil, fmt.Errorf("хеширование пароля: %w", err)
	}

	keys, err := s.store.Maintenance.ListAssetPaths(ctx)
	if err != nil {
		return nil, err
	}

	admin := &model.User{
		Username:     adminUsername,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Active:       true,
	}
	err = s.tx.InTx(ctx, func(st *repository.Store) error {
		if err := st.Maintenance.WipeAll(ctx); err != nil {
			return err
		}
		return st.Users.Create(ctx, admin)
	})
	if err != nil {
		return nil, err
	}

	failed := 0
	for _, key := range keys {
		if err := s.assets.Delete(ctx, key); err != nil {
			failed++
			s.logger.Warn("Не удалось удалить аудио",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("Данные очищены",
		slog.Int("assets", len(keys)),
		slog.Int("assets_failed", failed),
		slog.Int64("admin_id", admin.ID),
	)
	return admin, nil
}
