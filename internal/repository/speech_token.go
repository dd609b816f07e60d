package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
)

// SpeechTokenRepository — ключ подписки речевого сервиса (одна строка, id = 1).
type SpeechTokenRepository interface {
	// Get возвращает активный ключ. ErrNotFound — ключ не задан.
	Get(ctx context.Context) (*model.SpeechToken, error)
	Upsert(ctx context.Context, t *model.SpeechToken) error
	Delete(ctx context.Context) error
}

type speechTokenRepo struct {
	db DBTX
}

// NewSpeechTokenRepository создаёт репозиторий ключа речевого сервиса.
func NewSpeechTokenRepository(db DBTX) SpeechTokenRepository {
	return &speechTokenRepo{db: db}
}

func (r *speechTokenRepo) Get(ctx context.Context) (*model.SpeechToken, error) {
	t := &model.SpeechToken{}
	err := r.db.QueryRow(ctx,
		`SELECT token, region, updated_at FROM speech_tokens WHERE id = 1`,
	).Scan(&t.Token, &t.Region, &t.UpdatedAt)
	if err != nil {
		return nil, notFoundOr(err, "ошибка получения ключа речевого сервиса")
	}
	return t, nil
}

func (r *speechTokenRepo) Upsert(ctx context.Context, t *model.SpeechToken) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO speech_tokens (id, token, region)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE
		SET token = EXCLUDED.token, region = EXCLUDED.region, updated_at = now()
		RETURNING updated_at`, t.Token, t.Region,
	).Scan(&t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения ключа речевого сервиса: %w", err)
	}
	return nil
}

func (r *speechTokenRepo) Delete(ctx context.Context) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM speech_tokens WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("ошибка удаления ключа речевого сервиса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
