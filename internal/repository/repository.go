// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — запись уже существует")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store — набор репозиториев, работающих через одно подключение или транзакцию.
type Store struct {
	Directories DirectoryRepository
	Permissions PermissionRepository
	Users       UserRepository
	Companies   CompanyRepository
	Sessions    SessionRepository
	Records     SpeechRecordRepository
	Catalog     CatalogRepository
	Configs     RecordConfigurationRepository
	Tokens      SpeechTokenRepository
	Usage       UsageRepository
	Maintenance MaintenanceRepository
}

// NewStore создаёт набор репозиториев поверх db.
func NewStore(db DBTX) *Store {
	return &Store{
		Directories: NewDirectoryRepository(db),
		Permissions: NewPermissionRepository(db),
		Users:       NewUserRepository(db),
		Companies:   NewCompanyRepository(db),
		Sessions:    NewSessionRepository(db),
		Records:     NewSpeechRecordRepository(db),
		Catalog:     NewCatalogRepository(db),
		Configs:     NewRecordConfigurationRepository(db),
		Tokens:      NewSpeechTokenRepository(db),
		Usage:       NewUsageRepository(db),
		Maintenance: NewMaintenanceRepository(db),
	}
}

// Transactor выполняет fn с набором репозиториев, привязанным к транзакции.
type Transactor interface {
	InTx(ctx context.Context, fn func(store *Store) error) error
}

// TxRunner позволяет выполнять операции в транзакции.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner создаёт TxRunner для управления транзакциями.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInTx выполняет fn внутри транзакции.
// При ошибке fn — транзакция откатывается.
// При успехе — коммитится.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// InTx реализует Transactor: репозитории внутри fn работают в одной транзакции.
func (r *TxRunner) InTx(ctx context.Context, fn func(store *Store) error) error {
	return r.RunInTx(ctx, func(tx pgx.Tx) error {
		return fn(NewStore(tx))
	})
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// isForeignKeyViolation проверяет нарушение внешнего ключа.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}

// notFoundOr возвращает ErrNotFound для pgx.ErrNoRows, иначе оборачивает err.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}
