package database

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/ttsstudio/internal/config"
)

// setupTestDB запускает PostgreSQL в Docker-контейнере через testcontainers.
func setupTestDB(t *testing.T) *config.Config {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("tts_test"),
		postgres.WithUsername("tts"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	t.Setenv("TTS_DB_HOST", host)
	t.Setenv("TTS_DB_PORT", port.Port())
	t.Setenv("TTS_DB_NAME", "tts_test")
	t.Setenv("TTS_DB_USER", "tts")
	t.Setenv("TTS_DB_PASSWORD", "test-password")
	t.Setenv("TTS_DB_SSL_MODE", "disable")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// TestConnect проверяет подключение к PostgreSQL через pgxpool.
func TestConnect(t *testing.T) {
	cfg := setupTestDB(t)
	ctx := context.Background()

	pool, err := Connect(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("pool.Ping() вернул ошибку: %v", err)
	}

	var name string
	if err := pool.QueryRow(ctx, `SHOW application_name`).Scan(&name); err != nil {
		t.Fatalf("SHOW application_name вернул ошибку: %v", err)
	}
	if name != applicationName {
		t.Errorf("application_name = %q, ожидается %q", name, applicationName)
	}
}

// TestLatestVersion проверяет чтение номера последней встроенной миграции.
func TestLatestVersion(t *testing.T) {
	v, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() вернул ошибку: %v", err)
	}
	if v != 1 {
		t.Errorf("LatestVersion() = %d, ожидается 1", v)
	}
}

// TestMigrate проверяет применение миграций и их идемпотентность.
func TestMigrate(t *testing.T) {
	cfg := setupTestDB(t)
	logger := testLogger()

	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}
	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("Повторный Migrate() вернул ошибку: %v", err)
	}

	ctx := context.Background()
	pool, err := Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	tables := []string{
		config.MigrationsTable,
		"companies",
		"users",
		"sessions",
		"speech_tokens",
		"speech_languages",
		"speech_voices",
		"record_configurations",
		"speech_records",
		"directories",
		"directory_rights",
		"records_generated_count",
	}

	for _, table := range tables {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)`, table).Scan(&exists)
		if err != nil {
			t.Fatalf("Ошибка проверки таблицы %s: %v", table, err)
		}
		if !exists {
			t.Errorf("Таблица %s не создана", table)
		}
	}

	// Второй токен речевого сервиса вставить нельзя
	if _, err := pool.Exec(ctx, `INSERT INTO speech_tokens (id, token, region) VALUES (2, 't', 'r')`); err == nil {
		t.Error("speech_tokens должна допускать только id = 1")
	}
}

// TestReadinessChecker проверяет статусы готовности в зависимости от состояния схемы.
func TestReadinessChecker(t *testing.T) {
	cfg := setupTestDB(t)
	ctx := context.Background()

	pool, err := Connect(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	// до миграций таблицы версий нет
	if status, msg := NewReadinessChecker(pool).CheckReady(); status != "fail" {
		t.Errorf("CheckReady() до миграций = %q (%s), ожидали fail", status, msg)
	}

	if err := Migrate(cfg, testLogger()); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}

	status, msg := NewReadinessChecker(pool).CheckReady()
	if status != "ok" {
		t.Errorf("CheckReady() status = %q, message = %q; ожидали ok", status, msg)
	}

	ahead := &ReadinessChecker{pool: pool, want: 2}
	if status, msg := ahead.CheckReady(); status != "degraded" {
		t.Errorf("CheckReady() для отставшей схемы = %q (%s), ожидали degraded", status, msg)
	}

	if _, err := pool.Exec(ctx, `UPDATE `+config.MigrationsTable+` SET dirty = true`); err != nil {
		t.Fatalf("Ошибка пометки схемы dirty: %v", err)
	}
	if status, msg := NewReadinessChecker(pool).CheckReady(); status != "fail" {
		t.Errorf("CheckReady() для dirty схемы = %q (%s), ожидали fail", status, msg)
	}
}
