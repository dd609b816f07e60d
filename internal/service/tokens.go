package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
	"github.com/bigkaa/ttsstudio/internal/repository"
	"github.com/bigkaa/ttsstudio/internal/speech"
)

// SpeechAPI — операции речевого сервиса. Реализуется *speech.Client.
type SpeechAPI interface {
	Validate(ctx context.Context, cred speech.Credentials) error
	Voices(ctx context.Context, cred speech.Credentials) ([]speech.VoiceInfo, error)
	Synthesize(ctx context.Context, cred speech.Credentials, ssml string) ([]byte, error)
}

// TokenService — ключ подписки речевого сервиса и синхронизация справочника голосов.
type TokenService struct {
	store     *repository.Store
	tx        repository.Transactor
	speech    SpeechAPI
	catalog   *CatalogService
	languages []string
	logger    *slog.Logger
}

// NewTokenService создаёт сервис ключа. languages — названия языков,
// голоса которых попадают в справочник.
func NewTokenService(
	store *repository.Store,
	tx repository.Transactor,
	api SpeechAPI,
	catalog *CatalogService,
	languages []string,
	logger *slog.Logger,
) *TokenService {
	return &TokenService{
		store:     store,
		tx:        tx,
		speech:    api,
		catalog:   catalog,
		languages: languages,
		logger:    logger.With(slog.String("component", "token_service")),
	}
}

// Configured сообщает, задан ли ключ.
func (s *TokenService) Configured(ctx context.Context) (bool, error) {
	_, err := s.store.Tokens.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Info возвращает ключ и регион. ErrNotFound — ключ не задан.
func (s *TokenService) Info(ctx context.Context) (*model.SpeechToken, error) {
	t, err := s.store.Tokens.Get(ctx)
	if err != nil {
		return nil, mapRepoErr(err, "ключ речевого сервиса")
	}
	return t, nil
}

// ActiveRegion возвращает регион активного ключа или "" если ключа нет.
func (s *TokenService) ActiveRegion(ctx context.Context) (string, error) {
	t, err := s.store.Tokens.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return t.Region, nil
}

// Credentials возвращает активный ключ. Ключ не задан — ErrSpeechUnavailable.
func (s *TokenService) Credentials(ctx context.Context) (speech.Credentials, error) {
	t, err := s.store.Tokens.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return speech.Credentials{}, fmt.Errorf("%w: ключ речевого сервиса не задан", ErrSpeechUnavailable)
	}
	if err != nil {
		return speech.Credentials{}, err
	}
	return speech.Credentials{Key: t.Token, Region: t.Region}, nil
}

// Set проверяет ключ в речевом сервисе, сохраняет его и синхронизирует справочник голосов.
func (s *TokenService) Set(ctx context.Context, token, region string) (*model.SpeechToken, error) {
	token = strings.TrimSpace(token)
	region = strings.TrimSpace(region)
	if token == "" || region == "" {
		return nil, fmt.Errorf("%w: ключ и регион обязательны", ErrValidation)
	}

	cred := speech.Credentials{Key: token, Region: region}
	if err := s.speech.Validate(ctx, cred); err != nil {
		return nil, speechErr(err)
	}

	t := &model.SpeechToken{Token: token, Region: region}
	if err := s.store.Tokens.Upsert(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("Ключ речевого сервиса сохранён", slog.String("region", region))

	if _, err := s.SyncCatalog(ctx, cred); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete удаляет ключ. ErrNotFound — ключ не задан.
func (s *TokenService) Delete(ctx context.Context) error {
	if err := s.store.Tokens.Delete(ctx); err != nil {
		return mapRepoErr(err, "ключ речевого сервиса")
	}
	s.logger.Info("Ключ речевого сервиса удалён")
	return nil
}

// SyncCatalog загружает список голосов и добавляет в справочник голоса
// разрешённых языков. Существующие языки и голоса не изменяются.
// Возвращает количество новых голосов.
func (s *TokenService) SyncCatalog(ctx context.Context, cred speech.Credentials) (int, error) {
	voices, err := s.speech.Voices(ctx, cred)
	if err != nil {
		return 0, speechErr(err)
	}

	added := 0
	err = s.tx.InTx(ctx, func(st *repository.Store) error {
		languageIDs := make(map[string]int64)
		for _, v := range voices {
			name := v.LanguageName()
			if !slices.Contains(s.languages, name) || v.Locale == "" || v.DisplayName == "" {
				continue
			}

			langID, ok := languageIDs[v.Locale]
			if !ok {
				id, err := st.Catalog.EnsureLanguage(ctx, name, v.Locale)
				if err != nil {
					return err
				}
				langID = id
				languageIDs[v.Locale] = id
			}

			inserted, err := st.Catalog.InsertVoiceIfAbsent(ctx, model.Voice{
				LanguageID: langID,
				Speaker:    v.DisplayName,
				SpeakerSex: v.SpeakerSex(),
			})
			if err != nil {
				return err
			}
			if inserted {
				added++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.catalog.Invalidate()
	s.logger.Info("Справочник голосов синхронизирован",
		slog.Int("voices_total", len(voices)),
		slog.Int("voices_added", added),
	)
	return added, nil
}

// speechErr переводит ошибки клиента речевого сервиса в ошибки сервиса.
func speechErr(err error) error {
	switch {
	case errors.Is(err, speech.ErrRejected):
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case errors.Is(err, speech.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrSpeechUnavailable, err)
	default:
		return err
	}
}
