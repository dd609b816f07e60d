// Точка входа TTS Studio — многопользовательского приложения озвучивания текста.
// Команды: serve (по умолчанию) — миграции, подключение к PostgreSQL, сервисный слой,
// фоновые задачи и HTTP-сервер; migrate — только миграции; reset — очистка данных
// и создание начального администратора.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/bigkaa/ttsstudio/internal/api/handlers"
	"github.com/bigkaa/ttsstudio/internal/api/middleware"
	"github.com/bigkaa/ttsstudio/internal/api/openapi"
	"github.com/bigkaa/ttsstudio/internal/audiostore"
	"github.com/bigkaa/ttsstudio/internal/config"
	"github.com/bigkaa/ttsstudio/internal/database"
	"github.com/bigkaa/ttsstudio/internal/repository"
	"github.com/bigkaa/ttsstudio/internal/server"
	"github.com/bigkaa/ttsstudio/internal/service"
	"github.com/bigkaa/ttsstudio/internal/speech"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "tts-server",
	Short:         "TTS Studio: озвучивание текста с деревом папок и правами доступа",
	Version:       config.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Применить миграции и запустить HTTP-сервер",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Применить миграции БД и завершиться",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			return err
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Удалить все данные и аудио, создать администратора из TTS_BOOTSTRAP_ADMIN_*",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReset(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, resetCmd)
}

// bootstrap загружает конфигурацию и настраивает логирование.
func bootstrap() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		return nil, nil, err
	}
	return cfg, config.SetupLogger(cfg), nil
}

// connect применяет миграции и открывает пул соединений.
func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		return nil, err
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		return nil, err
	}
	return pool, nil
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// 1. Конфигурация и логирование
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	logger.Info("TTS Studio запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 2. Миграции и подключение к PostgreSQL (pgxpool)
	pool, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	// 2.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 3. Хранилище аудио (fs или s3)
	assets, err := audiostore.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища аудио", slog.String("error", err.Error()))
		return err
	}

	// 4. Клиент речевого сервиса
	speechClient := speech.New(speech.Options{
		OutputFormat: cfg.AudioFormat,
		Timeout:      cfg.SpeechTimeout,
	}, logger)

	// 5. Repositories
	store := repository.NewStore(pool)
	tx := repository.NewTxRunner(pool)

	// 6. Services
	sessions := service.NewSessionService(store, cfg.SessionTTL, logger)
	catalog := service.NewCatalogService(store, cfg.CatalogCacheTTL)
	tokens := service.NewTokenService(store, tx, speechClient, catalog, cfg.SpeechLanguages, logger)
	tree := service.NewTreeService(store, tx, assets, logger)
	svc := handlers.Services{
		Tree:       tree,
		Records:    service.NewRecordService(store, tx, tree, catalog, tokens, speechClient, assets, logger),
		Sessions:   sessions,
		Users:      service.NewUserService(store, tx, logger),
		Tokens:     tokens,
		Catalog:    catalog,
		Configs:    service.NewConfigService(store, catalog, logger),
		Statistics: service.NewStatisticsService(store),
	}

	// 7. Фоновые задачи
	sessions.StartCleanup(ctx, cfg.SessionCleanupInterval)
	defer sessions.StopCleanup()

	// 7.1 topologymetrics — мониторинг зависимостей (PostgreSQL + S3)
	dephealthSvc, err := service.NewDephealthService(service.ParamsFromConfig(cfg, pgDB), logger)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	} else if err := dephealthSvc.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
	} else {
		defer dephealthSvc.Stop()
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 8. HTTP: обработчики, middleware, маршруты
	deps := server.Deps{
		API:    handlers.NewHandler(svc, cfg.CookieSecure, logger),
		Health: handlers.NewHealthHandler(database.NewReadinessChecker(pool), assets),
		Auth:   middleware.NewSessionAuth(sessions, logger),
	}
	if cfg.OpenAPIValidation {
		doc, err := openapi.Load()
		if err != nil {
			logger.Error("Ошибка загрузки OpenAPI контракта", slog.String("error", err.Error()))
			return err
		}
		deps.Validator, err = middleware.OpenAPIValidator(doc, logger)
		if err != nil {
			logger.Error("Ошибка создания OpenAPI валидатора", slog.String("error", err.Error()))
			return err
		}
	}

	srv := server.New(cfg, logger, deps)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		return err
	}

	logger.Info("TTS Studio остановлен")
	return nil
}

func runReset(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	if cfg.BootstrapAdminUsername == "" || cfg.BootstrapAdminPassword == "" {
		err := errors.New("TTS_BOOTSTRAP_ADMIN_USERNAME и TTS_BOOTSTRAP_ADMIN_PASSWORD обязательны для reset")
		logger.Error("Ошибка конфигурации", slog.String("error", err.Error()))
		return err
	}

	pool, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	assets, err := audiostore.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища аудио", slog.String("error", err.Error()))
		return err
	}

	reset := service.NewResetService(repository.NewStore(pool), repository.NewTxRunner(pool), assets, logger)
	admin, err := reset.Reset(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword)
	if err != nil {
		logger.Error("Ошибка сброса данных", slog.String("error", err.Error()))
		return fmt.Errorf("сброс данных: %w", err)
	}

	logger.Info("Данные сброшены, администратор создан",
		slog.Int64("user_id", admin.ID),
		slog.String("username", admin.Username),
	)
	return nil
}
