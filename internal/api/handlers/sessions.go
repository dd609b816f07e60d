// sessions.go — обработчики /api/session: вход, текущий пользователь, выход.
package handlers

import (
	"net/http"

	"github.com/bigkaa/ttsstudio/internal/api/middleware"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login — POST /api/session. Создаёт сессию и устанавливает cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	sess, user, err := h.Sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	middleware.SetSessionCookie(w, sess.ID, h.Sessions.TTL(), h.cookieSecure)
	writeJSON(w, http.StatusOK, mapUser(user))
}

// CurrentSession — GET /api/session. Возвращает пользователя текущей сессии.
func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	user, err := h.Sessions.Current(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(user))
}

// Logout — DELETE /api/session. Удаляет сессию и cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if err := h.Sessions.Logout(r.Context(), cookie.Value); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	middleware.ClearSessionCookie(w, h.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}
