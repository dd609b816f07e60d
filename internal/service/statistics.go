package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
	"github.com/bigkaa/ttsstudio/internal/repository"
)

// StatisticsService — месячная статистика генераций.
type StatisticsService struct {
	store *repository.Store
}

// NewStatisticsService создаёт сервис статистики.
func NewStatisticsService(store *repository.Store) *StatisticsService {
	return &StatisticsService{store: store}
}

// Monthly возвращает суммы генераций по пользователям за месяц.
// Роль U видит только себя, роль C — свою компанию, администратор — всех.
func (s *StatisticsService) Monthly(ctx context.Context, p model.Principal, year, month int) ([]model.UsageRow, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: месяц %d вне диапазона 1-12", ErrValidation, month)
	}
	if year < 2000 || year > 9999 {
		return nil, fmt.Errorf("%w: недопустимый год %d", ErrValidation, year)
	}

	var filter repository.UsageFilter
	switch p.Role {
	case model.RoleAdmin:
	case model.RoleClient:
		if p.CompanyID == nil {
			filter.UserID = &p.UserID
		} else {
			filter.CompanyID = p.CompanyID
		}
	default:
		filter.UserID = &p.UserID
	}

	date := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	rows, err := s.store.Usage.Monthly(ctx, date, filter)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.UsageRow{}
	}
	return rows, nil
}
