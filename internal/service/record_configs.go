package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
	"github.com/bigkaa/ttsstudio/internal/repository"
)

// ConfigService — пресеты голоса пользователя.
type ConfigService struct {
	store   *repository.Store
	catalog *CatalogService
	logger  *slog.Logger
}

// NewConfigService создаёт сервис пресетов.
func NewConfigService(store *repository.Store, catalog *CatalogService, logger *slog.Logger) *ConfigService {
	return &ConfigService{
		store:   store,
		catalog: catalog,
		logger:  logger.With(slog.String("component", "config_service")),
	}
}

// ConfigInput — параметры пресета.
type ConfigInput struct {
	Name       string
	LanguageID int64
	SpeakerID  int64
	Rate       float64
	Pitch      float64
}

// List возвращает пресеты вызывающего.
func (s *ConfigService) List(ctx context.Context, p model.Principal) ([]*model.RecordConfiguration, error) {
	return s.store.Configs.ListByOwner(ctx, p.UserID)
}

// Create создаёт пресет вызывающего.
func (s *ConfigService) Create(ctx context.Context, p model.Principal, in ConfigInput) (*model.RecordConfiguration, error) {
	cfg := &model.RecordConfiguration{OwnerID: p.UserID}
	if err := s.apply(ctx, cfg, in); err != nil {
		return nil, err
	}
	if err := s.store.Configs.Create(ctx, cfg); err != nil {
		return nil, mapRepoErr(err, "язык или голос пресета")
	}

	s.logger.Info("Пресет создан",
		slog.Int64("configuration_id", cfg.ID),
		slog.Int64("user_id", p.UserID),
	)
	return s.store.Configs.GetByID(ctx, cfg.ID)
}

// Update изменяет пресет. Чужой пресет — ErrUnauthorized.
func (s *ConfigService) Update(ctx context.Context, p model.Principal, id int64, in ConfigInput) (*model.RecordConfiguration, error) {
	cfg, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, cfg, in); err != nil {
		return nil, err
	}
	if err := s.store.Configs.Update(ctx, cfg); err != nil {
		return nil, mapRepoErr(err, fmt.Sprintf("пресет %d", id))
	}
	return s.store.Configs.GetByID(ctx, cfg.ID)
}

// Delete удаляет пресет. Чужой пресет — ErrUnauthorized.
func (s *ConfigService) Delete(ctx context.Context, p model.Principal, id int64) error {
	if _, err := s.owned(ctx, p, id); err != nil {
		return err
	}
	if err := s.store.Configs.Delete(ctx, id); err != nil {
		return mapRepoErr(err, fmt.Sprintf("пресет %d", id))
	}
	s.logger.Info("Пресет удалён",
		slog.Int64("configuration_id", id),
		slog.Int64("user_id", p.UserID),
	)
	return nil
}

func (s *ConfigService) owned(ctx context.Context, p model.Principal, id int64) (*model.RecordConfiguration, error) {
	cfg, err := s.store.Configs.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, fmt.Sprintf("пресет %d", id))
	}
	if cfg.OwnerID != p.UserID {
		return nil, fmt.Errorf("%w: пресет %d принадлежит другому пользователю", ErrUnauthorized, id)
	}
	return cfg, nil
}

// apply проверяет параметры и переносит их в cfg.
func (s *ConfigService) apply(ctx context.Context, cfg *model.RecordConfiguration, in ConfigInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("%w: имя пресета не может быть пустым", ErrValidation)
	}
	if err := validateRatio("pitch", in.Pitch); err != nil {
		return err
	}
	if err := validateRatio("rate", in.Rate); err != nil {
		return err
	}
	if _, _, err := s.catalog.Resolve(ctx, in.LanguageID, in.SpeakerID); err != nil {
		return err
	}

	cfg.Name = name
	cfg.LanguageID = in.LanguageID
	cfg.SpeakerID = in.SpeakerID
	cfg.Rate = in.Rate
	cfg.Pitch = in.Pitch
	return nil
}
