// catalog.go — справочник языков и голосов синтеза.
// Обёртка над hashicorp/golang-lru/v2/expirable: справочник меняется только
// при смене ключа речевого сервиса, после синхронизации кэш сбрасывается.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
	"github.com/bigkaa/ttsstudio/internal/repository"
)

const (
	languagesCacheKey = "languages"
	// voicesCacheSize — максимум языков со списком голосов в кэше.
	voicesCacheSize = 256
)

// CatalogService — чтение справочника голосов через LRU-кэш.
type CatalogService struct {
	store     *repository.Store
	languages *expirable.LRU[string, []model.Language]
	voices    *expirable.LRU[int64, []model.Voice]
}

// NewCatalogService создаёт сервис справочника с временем жизни записей ttl.
func NewCatalogService(store *repository.Store, ttl time.Duration) *CatalogService {
	return &CatalogService{
		store:     store,
		languages: expirable.NewLRU[string, []model.Language](1, nil, ttl),
		voices:    expirable.NewLRU[int64, []model.Voice](voicesCacheSize, nil, ttl),
	}
}

// Languages возвращает все языки синтеза.
func (s *CatalogService) Languages(ctx context.Context) ([]model.Language, error) {
	if cached, ok := s.languages.Get(languagesCacheKey); ok {
		catalogCacheRequestsTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}
	catalogCacheRequestsTotal.WithLabelValues("miss").Inc()

	langs, err := s.store.Catalog.ListLanguages(ctx)
	if err != nil {
		return nil, err
	}
	s.languages.Add(languagesCacheKey, langs)
	return langs, nil
}

// Voices возвращает голоса языка. ErrNotFound — язык не существует.
func (s *CatalogService) Voices(ctx context.Context, languageID int64) ([]model.Voice, error) {
	if cached, ok := s.voices.Get(languageID); ok {
		catalogCacheRequestsTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}
	catalogCacheRequestsTotal.WithLabelValues("miss").Inc()

	if _, err := s.store.Catalog.GetLanguage(ctx, languageID); err != nil {
		return nil, mapRepoErr(err, fmt.Sprintf("язык %d", languageID))
	}
	voices, err := s.store.Catalog.ListVoices(ctx, languageID)
	if err != nil {
		return nil, err
	}
	s.voices.Add(languageID, voices)
	return voices, nil
}

// Resolve проверяет, что язык существует и голос принадлежит ему.
func (s *CatalogService) Resolve(ctx context.Context, languageID, voiceID int64) (*model.Language, *model.Voice, error) {
	lang, err := s.store.Catalog.GetLanguage(ctx, languageID)
	if err != nil {
		return nil, nil, mapRepoErr(err, fmt.Sprintf("язык %d", languageID))
	}
	voice, err := s.store.Catalog.GetVoice(ctx, voiceID)
	if err != nil {
		return nil, nil, mapRepoErr(err, fmt.Sprintf("голос %d", voiceID))
	}
	if voice.LanguageID != lang.ID {
		return nil, nil, fmt.Errorf("%w: голос %d не относится к языку %d", ErrNotFound, voiceID, languageID)
	}
	return lang, voice, nil
}

// Invalidate сбрасывает кэш справочника.
func (s *CatalogService) Invalidate() {
	s.languages.Purge()
	s.voices.Purge()
}
