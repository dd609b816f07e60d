// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// TTS Studio мониторит:
//   - PostgreSQL — SQL checker через существующий pgxpool (connection pool mode, critical)
//   - S3-хранилище аудио — HTTP checker к health endpoint (только для бэкенда s3
//     с собственным endpoint, non-critical)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker для S3
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"     // PostgreSQL checker (pool mode)
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bigkaa/ttsstudio/internal/config"
)

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	deps   []string
	logger *slog.Logger
}

// DephealthParams — параметры мониторинга.
type DephealthParams struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	// Group — имя группы в метриках (TTS_DEPHEALTH_GROUP)
	Group string
	// DB — *sql.DB, полученный из pgxpool через stdlib.OpenDBFromPool()
	DB *sql.DB
	// PostgresURL — URL PostgreSQL без пароля (для лейблов, не для подключения)
	PostgresURL string
	// S3Endpoint, S3HealthPath — health endpoint S3; пустой endpoint — S3 не мониторится
	S3Endpoint   string
	S3HealthPath string
	// CheckInterval — интервал проверки (TTS_DEPHEALTH_CHECK_INTERVAL)
	CheckInterval time.Duration
}

// ParamsFromConfig собирает параметры мониторинга из конфигурации.
func ParamsFromConfig(cfg *config.Config, db *sql.DB) DephealthParams {
	p := DephealthParams{
		ServiceID:     "tts-server",
		Group:         cfg.DephealthGroup,
		DB:            db,
		PostgresURL:   cfg.DatabaseURL(),
		CheckInterval: cfg.DephealthCheckInterval,
	}
	if cfg.AudioBackend == config.AudioBackendS3 {
		p.S3Endpoint = cfg.S3Endpoint
		p.S3HealthPath = cfg.S3HealthPath
	}
	return p
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(params DephealthParams, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(params, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	params DephealthParams,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(params, logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(params DephealthParams, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	deps := []string{"postgresql"}
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		// PostgreSQL — connection pool mode через существующий pgxpool.
		// pgcheck.New + dephealth.AddDependency напрямую, без contrib/sqldb.
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(params.DB)),
			dephealth.FromURL(params.PostgresURL),
			dephealth.CheckInterval(params.CheckInterval),
			dephealth.Critical(true),
		),
	}

	if target, path, ok := s3HealthTarget(params.S3Endpoint, params.S3HealthPath); ok {
		deps = append(deps, "s3-audio")
		opts = append(opts, dephealth.HTTP("s3-audio",
			dephealth.FromURL(target),
			dephealth.WithHTTPHealthPath(path),
			dephealth.CheckInterval(params.CheckInterval),
			// Без хранилища не работают только прослушивание и синтез
			dephealth.Critical(false),
		))
	}
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(params.ServiceID, params.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		deps:   deps,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// s3HealthTarget возвращает адрес и путь health endpoint S3.
// ok == false — endpoint не задан или некорректен.
func s3HealthTarget(endpoint, healthPath string) (target, path string, ok bool) {
	if endpoint == "" {
		return "", "", false
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", "", false
	}

	path = healthPath
	if path == "" {
		path = "/minio/health/live"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return u.Scheme + "://" + u.Host, path, true
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен",
		slog.String("dependencies", strings.Join(ds.deps, ",")),
	)
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
