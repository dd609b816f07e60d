package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
)

// UsageFilter ограничивает выборку статистики.
// Пустые поля — без ограничения.
type UsageFilter struct {
	UserID    *int64
	CompanyID *int64
}

// UsageRepository — счётчик генераций (таблица records_generated_count).
type UsageRepository interface {
	// Increment увеличивает счётчик строки (month, user, company, record) на 1.
	// month — первый день месяца.
	Increment(ctx context.Context, month time.Time, userID int64, companyID, recordID *int64) error
	// Monthly возвращает суммы по пользователям за месяц, по имени пользователя.
	Monthly(ctx context.Context, month time.Time, filter UsageFilter) ([]model.UsageRow, error)
}

type usageRepo struct {
	db DBTX
}

// NewUsageRepository создаёт репозиторий статистики генераций.
func NewUsageRepository(db DBTX) UsageRepository {
	return &usageRepo{db: db}
}

func (r *usageRepo) Increment(ctx context.Context, month time.Time, userID int64, companyID, recordID *int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO records_generated_count (date, user_id, company_id, record_id, count)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT ON CONSTRAINT uq_records_generated_count DO UPDATE
		SET count = records_generated_count.count + 1`,
		month, userID, companyID, recordID)
	if err != nil {
		return fmt.Errorf("ошибка обновления статистики: %w", err)
	}
	return nil
}

func (r *usageRepo) Monthly(ctx context.Context, month time.Time, filter UsageFilter) ([]model.UsageRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT rgc.date, SUM(rgc.count)::BIGINT, u.username, u.id
		FROM records_generated_count rgc
		JOIN users u ON u.id = rgc.user_id
		WHERE rgc.date = $1
		  AND ($2::BIGINT IS NULL OR rgc.user_id = $2)
		  AND ($3::BIGINT IS NULL OR rgc.company_id = $3)
		GROUP BY rgc.date, u.id, u.username
		ORDER BY u.username`,
		month, filter.UserID, filter.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.UsageRow, error) {
		var u model.UsageRow
		err := row.Scan(&u.Date, &u.Count, &u.Username, &u.UserID)
		return u, err
	})
}
