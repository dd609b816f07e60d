package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
)

// SpeechRecordRepository — интерфейс для таблицы speech_records
// и представлений «узел + запись».
type SpeechRecordRepository interface {
	Create(ctx context.Context, rec *model.SpeechRecord) error
	GetByID(ctx context.Context, id int64) (*model.SpeechRecord, error)
	// Update сохраняет параметры синтеза и ключ аудио-объекта.
	Update(ctx context.Context, rec *model.SpeechRecord) error
	// Save переименовывает запись, снимает признак черновика и фиксирует регион.
	Save(ctx context.Context, id int64, name string, region *string) error
	// ApplyConfiguration переносит язык, голос, темп и тон пресета на записи.
	ApplyConfiguration(ctx context.Context, recordIDs []int64, cfg *model.RecordConfiguration) (int64, error)
	Delete(ctx context.Context, id int64) error
	// View возвращает узел вместе с данными записи (для папок — пустые).
	View(ctx context.Context, nodeID int64) (*model.RecordView, error)
	// ListForUser возвращает дочерние узлы parentID (nil — корни), на которые
	// у пользователя есть явное право. Черновики скрыты. Сортировка по имени.
	ListForUser(ctx context.Context, userID int64, parentID *int64) ([]*model.RecordView, error)
}

type speechRecordRepo struct {
	db DBTX
}

// NewSpeechRecordRepository создаёт репозиторий записей речи.
func NewSpeechRecordRepository(db DBTX) SpeechRecordRepository {
	return &speechRecordRepo{db: db}
}

const recordColumns = `id, name, text, language_id, voice_id, rate, pitch, region,
	pregenerated, path, owner_id, record_configuration_id, created_at, updated_at`

func scanRecord(row pgx.Row) (*model.SpeechRecord, error) {
	rec := &model.SpeechRecord{}
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Text, &rec.LanguageID, &rec.VoiceID, &rec.Rate, &rec.Pitch,
		&rec.Region, &rec.Pregenerated, &rec.Path, &rec.OwnerID, &rec.RecordConfigurationID,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}

func (r *speechRecordRepo) Create(ctx context.Context, rec *model.SpeechRecord) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO speech_records (name, text, language_id, voice_id, rate, pitch, region,
			pregenerated, path, owner_id, record_configuration_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		rec.Name, rec.Text, rec.LanguageID, rec.VoiceID, rec.Rate, rec.Pitch, rec.Region,
		rec.Pregenerated, rec.Path, rec.OwnerID, rec.RecordConfigurationID,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка создания записи: %w", err)
	}
	return nil
}

func (r *speechRecordRepo) GetByID(ctx context.Context, id int64) (*model.SpeechRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM speech_records WHERE id = $1`, recordColumns)
	rec, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "ошибка получения записи")
	}
	return rec, nil
}

func (r *speechRecordRepo) Update(ctx context.Context, rec *model.SpeechRecord) error {
	err := r.db.QueryRow(ctx, `
		UPDATE speech_records
		SET text = $2, language_id = $3, voice_id = $4, rate = $5, pitch = $6,
			path = $7, record_configuration_id = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		rec.ID, rec.Text, rec.LanguageID, rec.VoiceID, rec.Rate, rec.Pitch,
		rec.Path, rec.RecordConfigurationID,
	).Scan(&rec.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return notFoundOr(err, "ошибка обновления записи")
	}
	return nil
}

func (r *speechRecordRepo) Save(ctx context.Context, id int64, name string, region *string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE speech_records
		SET name = $2, region = $3, pregenerated = FALSE, updated_at = now()
		WHERE id = $1`, id, name, region)
	if err != nil {
		return fmt.Errorf("ошибка сохранения записи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *speechRecordRepo) ApplyConfiguration(ctx context.Context, recordIDs []int64, cfg *model.RecordConfiguration) (int64, error) {
	if len(recordIDs) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE speech_records
		SET language_id = $2, voice_id = $3, rate = $4, pitch = $5,
			record_configuration_id = $6, updated_at = now()
		WHERE id = ANY($1)`,
		recordIDs, cfg.LanguageID, cfg.SpeakerID, cfg.Rate, cfg.Pitch, cfg.ID)
	if err != nil {
		return 0, fmt.Errorf("ошибка применения пресета: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *speechRecordRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM speech_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const recordViewSelect = `
	SELECT d.id, d.name, d.parent_id, d.type, d.owner_id, d.record_id, d.created_at, d.updated_at,
		sr.id, sr.text, sr.language_id, l.language, l.language_key,
		sr.voice_id, v.speaker, sr.rate, sr.pitch, sr.region, sr.pregenerated,
		sr.record_configuration_id`

const recordViewJoins = `
	FROM directories d
	LEFT JOIN speech_records sr ON sr.id = d.record_id
	LEFT JOIN speech_languages l ON l.id = sr.language_id
	LEFT JOIN speech_voices v ON v.id = sr.voice_id`

// recordViewDest возвращает адреса полей RecordView в порядке recordViewSelect.
func recordViewDest(v *model.RecordView) []any {
	n := &v.Node
	return []any{
		&n.ID, &n.Name, &n.ParentID, &n.Type, &n.OwnerID, &n.RecordID, &n.CreatedAt, &n.UpdatedAt,
		&v.RecordID, &v.Text, &v.LanguageID, &v.Language, &v.LanguageKey,
		&v.SpeakerID, &v.Speaker, &v.Rate, &v.Pitch, &v.Region, &v.Pregenerated,
		&v.RecordConfigurationID,
	}
}

func (r *speechRecordRepo) View(ctx context.Context, nodeID int64) (*model.RecordView, error) {
	query := recordViewSelect + recordViewJoins + `
	WHERE d.id = $1`

	v := &model.RecordView{}
	if err := r.db.QueryRow(ctx, query, nodeID).Scan(recordViewDest(v)...); err != nil {
		return nil, notFoundOr(err, "ошибка получения записи")
	}
	return v, nil
}

func (r *speechRecordRepo) ListForUser(ctx context.Context, userID int64, parentID *int64) ([]*model.RecordView, error) {
	query := recordViewSelect + `, dr.permission` + recordViewJoins + `
	JOIN directory_rights dr ON dr.directory_id = d.id AND dr.user_id = $1
	WHERE (($2::BIGINT IS NULL AND d.parent_id IS NULL) OR d.parent_id = $2)
	  AND (d.type = 'directory' OR sr.pregenerated IS FALSE)
	ORDER BY d.name, d.id`

	rows, err := r.db.Query(ctx, query, userID, parentID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка записей: %w", err)
	}
	defer rows.Close()

	var result []*model.RecordView
	for rows.Next() {
		v := &model.RecordView{}
		dest := append(recordViewDest(v), &v.Permission)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}
