package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
)

// UserRepository — интерфейс для таблицы users.
type UserRepository interface {
	// Create создаёт пользователя. ErrConflict — имя уже занято.
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// Exists проверяет наличие пользователя с указанным ID.
	Exists(ctx context.Context, id int64) (bool, error)
	// Update сохраняет имя, роль и компанию. ErrConflict — имя уже занято.
	Update(ctx context.Context, u *model.User) error
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	SetActive(ctx context.Context, id int64, active bool) error
	// ListByState возвращает активных или деактивированных пользователей.
	ListByState(ctx context.Context, active bool) ([]*model.User, error)
}

type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, username, password_hash, role, company_id, active, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CompanyID, &u.Active,
		&u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, role, company_id, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		u.Username, u.PasswordHash, u.Role, u.CompanyID, u.Active,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "ошибка получения пользователя")
	}
	return u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)
	u, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		return nil, notFoundOr(err, "ошибка получения пользователя")
	}
	return u, nil
}

func (r *userRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки пользователя: %w", err)
	}
	return exists, nil
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	err := r.db.QueryRow(ctx, `
		UPDATE users
		SET username = $2, role = $3, company_id = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		u.ID, u.Username, u.Role, u.CompanyID,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return notFoundOr(err, "ошибка обновления пользователя")
	}
	return nil
}

func (r *userRepo) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("ошибка смены пароля: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("ошибка изменения статуса пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) ListByState(ctx context.Context, active bool) ([]*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE active = $1 ORDER BY username`, userColumns)
	rows, err := r.db.Query(ctx, query, active)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	var result []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// CompanyRepository — интерфейс для таблицы companies.
type CompanyRepository interface {
	// Create создаёт компанию. ErrConflict — название уже занято.
	Create(ctx context.Context, c *model.Company) error
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]model.Company, error)
}

type companyRepo struct {
	db DBTX
}

// NewCompanyRepository создаёт репозиторий компаний.
func NewCompanyRepository(db DBTX) CompanyRepository {
	return &companyRepo{db: db}
}

func (r *companyRepo) Create(ctx context.Context, c *model.Company) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO companies (name) VALUES ($1) RETURNING id, created_at`, c.Name,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания компании: %w", err)
	}
	return nil
}

func (r *companyRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки компании: %w", err)
	}
	return exists, nil
}

func (r *companyRepo) List(ctx context.Context) ([]model.Company, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM companies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка компаний: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Company, error) {
		var c model.Company
		err := row.Scan(&c.ID, &c.Name, &c.CreatedAt)
		return c, err
	})
}
