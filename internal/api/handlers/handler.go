// handler.go — основной обработчик API TTS Studio.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/ttsstudio/internal/api/errors"
	"github.com/bigkaa/ttsstudio/internal/api/middleware"
	"github.com/bigkaa/ttsstudio/internal/domain/model"
	"github.com/bigkaa/ttsstudio/internal/service"
)

// maxBodyBytes — предел размера JSON-тела запроса.
const maxBodyBytes = 1 << 20

// Services — сервисы, которыми пользуются обработчики.
type Services struct {
	Tree       *service.TreeService
	Records    *service.RecordService
	Sessions   *service.SessionService
	Users      *service.UserService
	Tokens     *service.TokenService
	Catalog    *service.CatalogService
	Configs    *service.ConfigService
	Statistics *service.StatisticsService
}

// Handler — основной обработчик API.
type Handler struct {
	Services
	cookieSecure bool
	validate     *validator.Validate
	logger       *slog.Logger
}

// NewHandler создаёт обработчик API. cookieSecure — флаг Secure для cookie сессии.
func NewHandler(svc Services, cookieSecure bool, logger *slog.Logger) *Handler {
	return &Handler{
		Services:     svc,
		cookieSecure: cookieSecure,
		validate:     newValidator(),
		logger:       logger.With(slog.String("component", "api_handler")),
	}
}

// newValidator создаёт валидатор DTO, сообщающий имена полей из json-тегов.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// principal извлекает субъекта запроса. Без субъекта отвечает 401.
func principal(w http.ResponseWriter, r *http.Request) (model.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Требуется вход в систему")
	}
	return p, ok
}

// decodeAndValidate читает JSON-тело в dst и проверяет validate-теги.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: некорректное тело запроса: %v", service.ErrValidation, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: поле %s не прошло проверку %s", service.ErrValidation, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", service.ErrValidation, err)
	}
	return nil
}

// pathID читает целочисленный параметр пути.
func pathID(r *http.Request, name string) (int64, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Required:      true,
		})
	if err != nil {
		return 0, fmt.Errorf("%w: параметр %s: %v", service.ErrValidation, name, err)
	}
	return id, nil
}

// queryInt64 читает необязательный целочисленный query-параметр.
func queryInt64(r *http.Request, name string) (*int64, error) {
	var v *int64
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return nil, fmt.Errorf("%w: параметр %s: %v", service.ErrValidation, name, err)
	}
	return v, nil
}

// queryBool читает необязательный логический query-параметр (по умолчанию false).
func queryBool(r *http.Request, name string) (bool, error) {
	var v *bool
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return false, fmt.Errorf("%w: параметр %s: %v", service.ErrValidation, name, err)
	}
	return v != nil && *v, nil
}

// fail переводит ошибку сервиса в HTTP-ответ.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		apierrors.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrSpeechUnavailable):
		apierrors.SpeechUnavailable(w, err.Error())
	default:
		h.logger.Error("Ошибка обработки запроса",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
