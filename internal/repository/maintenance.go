package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// MaintenanceRepository — служебные операции над всей базой.
type MaintenanceRepository interface {
	// ListAssetPaths возвращает ключи всех аудио-объектов.
	ListAssetPaths(ctx context.Context) ([]string, error)
	// WipeAll удаляет пользователей (каскадом — всё их содержимое),
	// ключ речевого сервиса и справочник голосов. Счётчики ID сбрасываются.
	WipeAll(ctx context.Context) error
}

type maintenanceRepo struct {
	db DBTX
}

// NewMaintenanceRepository создаёт служебный репозиторий.
func NewMaintenanceRepository(db DBTX) MaintenanceRepository {
	return &maintenanceRepo{db: db}
}

func (r *maintenanceRepo) ListAssetPaths(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT path FROM speech_records WHERE path IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ключей аудио: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *maintenanceRepo) WipeAll(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		TRUNCATE users, speech_tokens, speech_languages
		RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("ошибка очистки базы: %w", err)
	}
	return nil
}
