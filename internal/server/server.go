// Пакет server — HTTP-сервер TTS Studio с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/ttsstudio/internal/api/handlers"
	"github.com/bigkaa/ttsstudio/internal/api/middleware"
	"github.com/bigkaa/ttsstudio/internal/config"
)

// Server — HTTP-сервер TTS Studio.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// Deps — обработчики и middleware, из которых собирается маршрутизатор.
type Deps struct {
	API    *handlers.Handler
	Health *handlers.HealthHandler
	Auth   *middleware.SessionAuth
	// Validator — проверка запросов по OpenAPI контракту; nil — без проверки
	Validator func(http.Handler) http.Handler
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, deps),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты API.
// Health и metrics доступны без сессии, остальные /api маршруты — через SessionAuth.
func NewRouter(logger *slog.Logger, deps Deps) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	router.Get("/health/live", deps.Health.HealthLive)
	router.Get("/health/ready", deps.Health.HealthReady)
	router.Get("/metrics", deps.Health.GetMetrics)

	validate := deps.Validator
	if validate == nil {
		validate = func(next http.Handler) http.Handler { return next }
	}

	h := deps.API
	router.Route("/api", func(r chi.Router) {
		r.Get("/openapi.yaml", handlers.OpenAPISpec)
		r.With(validate).Post("/session", h.Login)
		r.Delete("/session", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.Middleware())
			r.Use(validate)

			r.Get("/session", h.CurrentSession)

			r.Route("/directory", func(r chi.Router) {
				r.Post("/", h.CreateDirectory)
				r.Post("/append/{movedId}", h.MoveDirectory)
				r.Get("/{id}", h.GetDirectory)
				r.Post("/{id}", h.RenameDirectory)
				r.Delete("/{id}", h.DeleteDirectory)
				r.Get("/{id}/users", h.ListDirectoryUsers)
				r.Post("/{id}/permissions", h.GrantPermission)
				r.Delete("/{id}/permissions/{userId}", h.RevokePermission)
			})

			r.Route("/tts", func(r chi.Router) {
				r.Post("/", h.Synthesize)
				r.Get("/languages", h.ListLanguages)
				r.Get("/speakers/{languageId}", h.ListSpeakers)
				r.Post("/configuration-change/{configId}", h.ApplyConfiguration)
				r.Post("/duplicate/{id}", h.DuplicateRecord)
				r.Get("/record/list", h.ListRecords)
				r.Get("/record/play/{id}", h.PlayRecord)
				r.Get("/record/download/{id}", h.DownloadRecord)
				r.Get("/record/{id}", h.GetRecord)
				r.Post("/{id}", h.SaveRecord)
				r.Delete("/{id}", h.DeleteRecord)
			})

			r.Get("/mc-token", h.TokenConfigured)
			r.Get("/users/companies", h.ListCompanies)

			r.Route("/record-configuration", func(r chi.Router) {
				r.Get("/", h.ListConfigurations)
				r.Post("/", h.CreateConfiguration)
				r.Post("/{id}", h.UpdateConfiguration)
				r.Delete("/{id}", h.DeleteConfiguration)
			})

			r.Get("/statistics/{year}/{month}", h.MonthlyStatistics)

			// Администрирование
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Get("/mc-token/info", h.TokenInfo)
				r.Post("/mc-token", h.SetToken)
				r.Delete("/mc-token", h.DeleteToken)

				r.Post("/users/create", h.CreateUser)
				r.Post("/users/user-edit/{id}", h.UpdateUser)
				r.Post("/users/activate/{id}", h.ActivateUser)
				r.Get("/users/list/{state}", h.ListUsers)
				r.Post("/users/companies", h.CreateCompany)
			})
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
