package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
)

// RecordConfigurationRepository — пресеты голоса (таблица record_configurations).
type RecordConfigurationRepository interface {
	Create(ctx context.Context, c *model.RecordConfiguration) error
	GetByID(ctx context.Context, id int64) (*model.RecordConfiguration, error)
	Update(ctx context.Context, c *model.RecordConfiguration) error
	Delete(ctx context.Context, id int64) error
	// ListByOwner возвращает пресеты пользователя с названиями языка и голоса.
	ListByOwner(ctx context.Context, ownerID int64) ([]*model.RecordConfiguration, error)
}

type recordConfigurationRepo struct {
	db DBTX
}

// NewRecordConfigurationRepository создаёт репозиторий пресетов.
func NewRecordConfigurationRepository(db DBTX) RecordConfigurationRepository {
	return &recordConfigurationRepo{db: db}
}

const configSelect = `
	SELECT rc.id, rc.name, rc.language_id, rc.speaker_id, rc.rate, rc.pitch, rc.owner_id,
		l.language, v.speaker, rc.created_at, rc.updated_at
	FROM record_configurations rc
	JOIN speech_languages l ON l.id = rc.language_id
	JOIN speech_voices v ON v.id = rc.speaker_id`

func scanConfig(row pgx.Row) (*model.RecordConfiguration, error) {
	c := &model.RecordConfiguration{}
	err := row.Scan(
		&c.ID, &c.Name, &c.LanguageID, &c.SpeakerID, &c.Rate, &c.Pitch, &c.OwnerID,
		&c.LanguageName, &c.SpeakerName, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *recordConfigurationRepo) Create(ctx context.Context, c *model.RecordConfiguration) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO record_configurations (name, language_id, speaker_id, rate, pitch, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		c.Name, c.LanguageID, c.SpeakerID, c.Rate, c.Pitch, c.OwnerID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка создания пресета: %w", err)
	}
	return nil
}

func (r *recordConfigurationRepo) GetByID(ctx context.Context, id int64) (*model.RecordConfiguration, error) {
	c, err := scanConfig(r.db.QueryRow(ctx, configSelect+` WHERE rc.id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "ошибка получения пресета")
	}
	return c, nil
}

func (r *recordConfigurationRepo) Update(ctx context.Context, c *model.RecordConfiguration) error {
	err := r.db.QueryRow(ctx, `
		UPDATE record_configurations
		SET name = $2, language_id = $3, speaker_id = $4, rate = $5, pitch = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Name, c.LanguageID, c.SpeakerID, c.Rate, c.Pitch,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return notFoundOr(err, "ошибка обновления пресета")
	}
	return nil
}

func (r *recordConfigurationRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM record_configurations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления пресета: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *recordConfigurationRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*model.RecordConfiguration, error) {
	rows, err := r.db.Query(ctx, configSelect+` WHERE rc.owner_id = $1 ORDER BY rc.name, rc.id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пресетов: %w", err)
	}
	defer rows.Close()

	var result []*model.RecordConfiguration
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования пресета: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
