package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
)

// PermissionRepository — интерфейс для таблицы directory_rights.
type PermissionRepository interface {
	// Matching возвращает явные права пользователя на цепочке предков узла
	// (включая сам узел), уровень которых входит в levels. Порядок — от узла к корню.
	Matching(ctx context.Context, userID, directoryID int64, levels []model.Permission) ([]model.Grant, error)
	// Get возвращает явное право пользователя на узел.
	Get(ctx context.Context, directoryID, userID int64) (*model.Grant, error)
	// Upsert вставляет право или заменяет уровень существующего.
	Upsert(ctx context.Context, g model.Grant) error
	// InsertIfAbsent вставляет право, только если его ещё нет.
	// Возвращает true, если строка вставлена.
	InsertIfAbsent(ctx context.Context, g model.Grant) (bool, error)
	// Delete удаляет право пользователя на узел.
	Delete(ctx context.Context, directoryID, userID int64) error
	// ListByDirectory возвращает явные права на узел с именами пользователей.
	ListByDirectory(ctx context.Context, directoryID int64) ([]model.GrantWithUser, error)
}

// permissionRepo — реализация PermissionRepository.
type permissionRepo struct {
	db DBTX
}

// NewPermissionRepository создаёт репозиторий прав на узлы.
func NewPermissionRepository(db DBTX) PermissionRepository {
	return &permissionRepo{db: db}
}

func (r *permissionRepo) Matching(ctx context.Context, userID, directoryID int64, levels []model.Permission) ([]model.Grant, error) {
	levelArgs := make([]string, len(levels))
	for i, l := range levels {
		levelArgs[i] = string(l)
	}

	query := ancestorChainCTE + `
	SELECT dr.directory_id, dr.user_id, dr.permission
	FROM chain c
	JOIN directory_rights dr ON dr.directory_id = c.id
	WHERE NOT c.is_cycle
	  AND dr.user_id = $2
	  AND dr.permission = ANY($3)
	ORDER BY c.depth`

	rows, err := r.db.Query(ctx, query, directoryID, userID, levelArgs)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки прав: %w", err)
	}
	defer rows.Close()

	var result []model.Grant
	for rows.Next() {
		var g model.Grant
		if err := rows.Scan(&g.DirectoryID, &g.UserID, &g.Permission); err != nil {
			return nil, fmt.Errorf("ошибка сканирования права: %w", err)
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func (r *permissionRepo) Get(ctx context.Context, directoryID, userID int64) (*model.Grant, error) {
	g := &model.Grant{}
	err := r.db.QueryRow(ctx, `
		SELECT directory_id, user_id, permission
		FROM directory_rights
		WHERE directory_id = $1 AND user_id = $2`, directoryID, userID,
	).Scan(&g.DirectoryID, &g.UserID, &g.Permission)
	if err != nil {
		return nil, notFoundOr(err, "ошибка получения права")
	}
	return g, nil
}

func (r *permissionRepo) Upsert(ctx context.Context, g model.Grant) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO directory_rights (directory_id, user_id, permission)
		VALUES ($1, $2, $3)
		ON CONFLICT (directory_id, user_id) DO UPDATE
		SET permission = EXCLUDED.permission`,
		g.DirectoryID, g.UserID, g.Permission,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка записи права: %w", err)
	}
	return nil
}

func (r *permissionRepo) InsertIfAbsent(ctx context.Context, g model.Grant) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO directory_rights (directory_id, user_id, permission)
		VALUES ($1, $2, $3)
		ON CONFLICT (directory_id, user_id) DO NOTHING`,
		g.DirectoryID, g.UserID, g.Permission,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("ошибка вставки права: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *permissionRepo) Delete(ctx context.Context, directoryID, userID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM directory_rights WHERE directory_id = $1 AND user_id = $2`,
		directoryID, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления права: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *permissionRepo) ListByDirectory(ctx context.Context, directoryID int64) ([]model.GrantWithUser, error) {
	rows, err := r.db.Query(ctx, `
		SELECT dr.directory_id, dr.user_id, dr.permission, u.username
		FROM directory_rights dr
		JOIN users u ON u.id = dr.user_id
		WHERE dr.directory_id = $1
		ORDER BY u.username`, directoryID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка прав: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.GrantWithUser, error) {
		var g model.GrantWithUser
		err := row.Scan(&g.DirectoryID, &g.UserID, &g.Permission, &g.Username)
		return g, err
	})
}
