// auth.go — middleware аутентификации по cookie сессии.
// Находит сессию по cookie, проверяет пользователя и помещает
// model.Principal в контекст запроса. Обработчики передают его в сервисы явно.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/ttsstudio/internal/api/errors"
	"github.com/bigkaa/ttsstudio/internal/domain/acl"
	"github.com/bigkaa/ttsstudio/internal/domain/model"
	"github.com/bigkaa/ttsstudio/internal/service"
)

// SessionCookieName — имя cookie с идентификатором сессии.
const SessionCookieName = "tts-session"

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyPrincipal — субъект запроса в контексте.
	ContextKeyPrincipal contextKey = "principal"

	contextKeyPrincipalHolder contextKey = "principal_holder"
)

// principalHolder передаёт пользователя запроса обратно в RequestLogger.
type principalHolder struct {
	set    bool
	userID int64
}

func withPrincipalHolder(ctx context.Context, h *principalHolder) context.Context {
	return context.WithValue(ctx, contextKeyPrincipalHolder, h)
}

// Authenticator возвращает субъекта по идентификатору сессии.
// Реализуется service.SessionService.
type Authenticator interface {
	Authenticate(ctx context.Context, sessionID string) (model.Principal, error)
}

// SessionAuth — middleware аутентификации по cookie сессии.
type SessionAuth struct {
	auth   Authenticator
	logger *slog.Logger
}

// NewSessionAuth создаёт middleware аутентификации.
func NewSessionAuth(auth Authenticator, logger *slog.Logger) *SessionAuth {
	return &SessionAuth{
		auth:   auth,
		logger: logger.With(slog.String("component", "session_auth")),
	}
}

// Middleware возвращает HTTP middleware: без действующей сессии активного
// пользователя запрос завершается 401.
func (a *SessionAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				apierrors.Unauthorized(w, "Требуется вход в систему")
				return
			}

			p, err := a.auth.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, service.ErrUnauthorized) {
					a.logger.Debug("Сессия отклонена",
						slog.String("error", err.Error()),
						slog.String("remote_addr", r.RemoteAddr),
					)
					apierrors.Unauthorized(w, "Сессия недействительна или истекла")
					return
				}
				a.logger.Error("Ошибка проверки сессии", slog.String("error", err.Error()))
				apierrors.InternalError(w, "Ошибка проверки сессии")
				return
			}

			if h, ok := r.Context().Value(contextKeyPrincipalHolder).(*principalHolder); ok {
				h.set = true
				h.userID = p.UserID
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAdmin пропускает только администраторов (роль A), остальным — 401.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok || !acl.IsAdmin(p) {
			apierrors.Unauthorized(w, "Требуется роль администратора")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithPrincipal помещает субъекта в контекст.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

// PrincipalFromContext извлекает субъекта из контекста запроса.
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(ContextKeyPrincipal).(model.Principal)
	return p, ok
}

// SetSessionCookie устанавливает cookie сессии на время ttl.
func SetSessionCookie(w http.ResponseWriter, sessionID string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie удаляет cookie сессии.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
