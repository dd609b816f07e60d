package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
)

// CatalogRepository — справочник языков и голосов синтеза.
type CatalogRepository interface {
	ListLanguages(ctx context.Context) ([]model.Language, error)
	GetLanguage(ctx context.Context, id int64) (*model.Language, error)
	// EnsureLanguage вставляет язык, если локали ещё нет, и возвращает его ID.
	EnsureLanguage(ctx context.Context, language, languageKey string) (int64, error)
	ListVoices(ctx context.Context, languageID int64) ([]model.Voice, error)
	GetVoice(ctx context.Context, id int64) (*model.Voice, error)
	// InsertVoiceIfAbsent вставляет голос; true — голос новый.
	InsertVoiceIfAbsent(ctx context.Context, v model.Voice) (bool, error)
}

type catalogRepo struct {
	db DBTX
}

// NewCatalogRepository создаёт репозиторий справочника голосов.
func NewCatalogRepository(db DBTX) CatalogRepository {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) ListLanguages(ctx context.Context) ([]model.Language, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, language, language_key FROM speech_languages ORDER BY language, language_key`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения языков: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Language, error) {
		var l model.Language
		err := row.Scan(&l.ID, &l.Language, &l.LanguageKey)
		return l, err
	})
}

func (r *catalogRepo) GetLanguage(ctx context.Context, id int64) (*model.Language, error) {
	l := &model.Language{}
	err := r.db.QueryRow(ctx,
		`SELECT id, language, language_key FROM speech_languages WHERE id = $1`, id,
	).Scan(&l.ID, &l.Language, &l.LanguageKey)
	if err != nil {
		return nil, notFoundOr(err, "ошибка получения языка")
	}
	return l, nil
}

func (r *catalogRepo) EnsureLanguage(ctx context.Context, language, languageKey string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO speech_languages (language, language_key)
			VALUES ($1, $2)
			ON CONFLICT (language_key) DO NOTHING
			RETURNING id
		)
		SELECT id FROM ins
		UNION ALL
		SELECT id FROM speech_languages WHERE language_key = $2
		LIMIT 1`, language, languageKey,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка добавления языка %s: %w", languageKey, err)
	}
	return id, nil
}

func (r *catalogRepo) ListVoices(ctx context.Context, languageID int64) ([]model.Voice, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, language_id, speaker, speaker_sex
		FROM speech_voices
		WHERE language_id = $1
		ORDER BY speaker`, languageID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения голосов: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Voice, error) {
		var v model.Voice
		err := row.Scan(&v.ID, &v.LanguageID, &v.Speaker, &v.SpeakerSex)
		return v, err
	})
}

func (r *catalogRepo) GetVoice(ctx context.Context, id int64) (*model.Voice, error) {
	v := &model.Voice{}
	err := r.db.QueryRow(ctx,
		`SELECT id, language_id, speaker, speaker_sex FROM speech_voices WHERE id = $1`, id,
	).Scan(&v.ID, &v.LanguageID, &v.Speaker, &v.SpeakerSex)
	if err != nil {
		return nil, notFoundOr(err, "ошибка получения голоса")
	}
	return v, nil
}

func (r *catalogRepo) InsertVoiceIfAbsent(ctx context.Context, v model.Voice) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO speech_voices (language_id, speaker, speaker_sex)
		VALUES ($1, $2, $3)
		ON CONFLICT (language_id, speaker) DO NOTHING`,
		v.LanguageID, v.Speaker, v.SpeakerSex)
	if err != nil {
		return false, fmt.Errorf("ошибка добавления голоса %s: %w", v.Speaker, err)
	}
	return tag.RowsAffected() > 0, nil
}
