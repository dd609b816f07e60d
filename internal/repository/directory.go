package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
)

// ancestorChainCTE — цепочка от узла $1 к корню включительно.
// CYCLE останавливает рекурсию на повторно встреченном id.
const ancestorChainCTE = `
	WITH RECURSIVE chain (id, parent_id, depth) AS (
		SELECT id, parent_id, 0
		FROM directories
		WHERE id = $1
		UNION ALL
		SELECT d.id, d.parent_id, c.depth + 1
		FROM directories d
		JOIN chain c ON d.id = c.parent_id
	) CYCLE id SET is_cycle USING path`

// descendantTreeCTE — поддерево узла $1 (сам узел имеет depth = 0).
const descendantTreeCTE = `
	WITH RECURSIVE tree (id, parent_id, depth) AS (
		SELECT id, parent_id, 0
		FROM directories
		WHERE id = $1
		UNION ALL
		SELECT d.id, d.parent_id, t.depth + 1
		FROM directories d
		JOIN tree t ON d.parent_id = t.id
	) CYCLE id SET is_cycle USING path`

// DirectoryRepository — интерфейс для таблицы directories.
type DirectoryRepository interface {
	// Create создаёт узел; заполняет ID, CreatedAt, UpdatedAt.
	Create(ctx context.Context, n *model.Node) error
	// GetByID возвращает узел по ID.
	GetByID(ctx context.Context, id int64) (*model.Node, error)
	// Rename меняет имя узла.
	Rename(ctx context.Context, id int64, name string) error
	// SetParent меняет родителя узла (nil — корень).
	SetParent(ctx context.Context, id int64, parentID *int64) error
	// Delete удаляет узел. Дочерние узлы не затрагиваются.
	Delete(ctx context.Context, id int64) error
	// Ancestors возвращает узел и всех его предков, от узла к корню.
	// Для несуществующего узла — пустой срез.
	Ancestors(ctx context.Context, id int64) ([]model.TreeLink, error)
	// Descendants возвращает всех потомков узла (без самого узла).
	Descendants(ctx context.Context, id int64) ([]model.TreeLink, error)
	// DetachToRoot обнуляет parent_id у перечисленных узлов.
	DetachToRoot(ctx context.Context, ids []int64) (int64, error)
}

// directoryRepo — реализация DirectoryRepository.
type directoryRepo struct {
	db DBTX
}

// NewDirectoryRepository создаёт репозиторий дерева каталогов.
func NewDirectoryRepository(db DBTX) DirectoryRepository {
	return &directoryRepo{db: db}
}

const nodeColumns = `id, name, parent_id, type, owner_id, record_id, created_at, updated_at`

// scanNode сканирует строку результата в модель Node.
func scanNode(row pgx.Row) (*model.Node, error) {
	n := &model.Node{}
	err := row.Scan(
		&n.ID, &n.Name, &n.ParentID, &n.Type, &n.OwnerID, &n.RecordID,
		&n.CreatedAt, &n.UpdatedAt,
	)
	return n, err
}

func (r *directoryRepo) Create(ctx context.Context, n *model.Node) error {
	query := `
		INSERT INTO directories (name, parent_id, type, owner_id, record_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		n.Name, n.ParentID, n.Type, n.OwnerID, n.RecordID,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания узла: %w", err)
	}
	return nil
}

func (r *directoryRepo) GetByID(ctx context.Context, id int64) (*model.Node, error) {
	query := fmt.Sprintf(`SELECT %s FROM directories WHERE id = $1`, nodeColumns)
	n, err := scanNode(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "ошибка получения узла")
	}
	return n, nil
}

func (r *directoryRepo) Rename(ctx context.Context, id int64, name string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE directories SET name = $2, updated_at = now() WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("ошибка переименования узла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *directoryRepo) SetParent(ctx context.Context, id int64, parentID *int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE directories SET parent_id = $2, updated_at = now() WHERE id = $1`, id, parentID)
	if err != nil {
		return fmt.Errorf("ошибка перемещения узла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *directoryRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM directories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления узла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *directoryRepo) Ancestors(ctx context.Context, id int64) ([]model.TreeLink, error) {
	query := ancestorChainCTE + `
	SELECT id, parent_id
	FROM chain
	WHERE NOT is_cycle
	ORDER BY depth`

	return r.queryLinks(ctx, query, id)
}

func (r *directoryRepo) Descendants(ctx context.Context, id int64) ([]model.TreeLink, error) {
	query := descendantTreeCTE + `
	SELECT id, parent_id
	FROM tree
	WHERE NOT is_cycle AND depth > 0
	ORDER BY depth, id`

	return r.queryLinks(ctx, query, id)
}

// queryLinks выполняет запрос, возвращающий пары (id, parent_id).
func (r *directoryRepo) queryLinks(ctx context.Context, query string, id int64) ([]model.TreeLink, error) {
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("ошибка обхода дерева: %w", err)
	}
	defer rows.Close()

	var result []model.TreeLink
	for rows.Next() {
		var l model.TreeLink
		if err := rows.Scan(&l.ID, &l.ParentID); err != nil {
			return nil, fmt.Errorf("ошибка сканирования узла дерева: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (r *directoryRepo) DetachToRoot(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE directories SET parent_id = NULL, updated_at = now() WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("ошибка переноса узлов в корень: %w", err)
	}
	return tag.RowsAffected(), nil
}
