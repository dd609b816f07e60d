// Пакет database — пул PostgreSQL для TTS Studio, схема БД из встроенных
// миграций и проверка готовности, учитывающая версию схемы.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/ttsstudio/internal/config"
)

// applicationName виден в pg_stat_activity.
const applicationName = "tts-server"

const pingTimeout = 3 * time.Second

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connect открывает пул подключений tts-server и проверяет его ping-ом.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора параметров PostgreSQL: %w", err)
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("PostgreSQL %s недоступен: %w", cfg.DatabaseURL(), err)
	}

	logger.Info("Пул PostgreSQL открыт",
		slog.String("database", cfg.DatabaseURL()),
		slog.Int("max_conns", int(poolCfg.MaxConns)),
	)
	return pool, nil
}

// Migrate доводит схему до последней встроенной миграции.
// Версия хранится в таблице config.MigrationsTable.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка чтения встроенных миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		version, _, _ := m.Version()
		logger.Info("Схема БД актуальна", slog.Uint64("version", uint64(version)))
		return nil
	case err != nil:
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("ошибка чтения версии схемы: %w", err)
	}
	logger.Info("Миграции применены",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
		slog.String("table", config.MigrationsTable),
	)
	return nil
}

// LatestVersion возвращает номер последней встроенной миграции.
func LatestVersion() (uint, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения встроенных миграций: %w", err)
	}
	defer source.Close()

	v, err := source.First()
	if err != nil {
		return 0, fmt.Errorf("нет встроенных миграций: %w", err)
	}
	for {
		next, err := source.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, fmt.Errorf("ошибка чтения миграции после %d: %w", v, err)
		}
		v = next
	}
}

// ReadinessChecker — готовность PostgreSQL для /health/ready.
// Помимо ping сверяет версию схемы с последней встроенной миграцией:
// незавершённая миграция (dirty) даёт fail, отставшая схема — degraded.
type ReadinessChecker struct {
	pool *pgxpool.Pool
	want uint
}

// NewReadinessChecker создаёт проверку готовности PostgreSQL.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	want, _ := LatestVersion()
	return &ReadinessChecker{pool: pool, want: want}
}

// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}

	var (
		version int64
		dirty   bool
	)
	query := fmt.Sprintf(`SELECT version, dirty FROM %s LIMIT 1`, config.MigrationsTable)
	if err := c.pool.QueryRow(ctx, query).Scan(&version, &dirty); err != nil {
		return "fail", fmt.Sprintf("версия схемы БД не прочитана: %v", err)
	}

	switch {
	case dirty:
		return "fail", fmt.Sprintf("миграция %d не завершена (dirty)", version)
	case uint(version) < c.want:
		return "degraded", fmt.Sprintf("схема БД версии %d, ожидается %d", version, c.want)
	}
	return "ok", fmt.Sprintf("схема БД версии %d", version)
}
