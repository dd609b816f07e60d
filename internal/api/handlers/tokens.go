// tokens.go — обработчики /api/mc-token: ключ подписки речевого сервиса.
package handlers

import (
	"net/http"
)

type setTokenRequest struct {
	Token  string `json:"token" validate:"required"`
	Region string `json:"region" validate:"required"`
}

// TokenConfigured — GET /api/mc-token. Возвращает true, если ключ задан.
func (h *Handler) TokenConfigured(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Tokens.Configured(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

// TokenInfo — GET /api/mc-token/info. Только для администратора.
func (h *Handler) TokenInfo(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tokens.Info(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: t.Token, Region: t.Region, UpdatedAt: t.UpdatedAt})
}

// SetToken — POST /api/mc-token. Проверяет ключ, сохраняет и синхронизирует справочник голосов.
func (h *Handler) SetToken(w http.ResponseWriter, r *http.Request) {
	var req setTokenRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	t, err := h.Tokens.Set(r.Context(), req.Token, req.Region)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: t.Token, Region: t.Region, UpdatedAt: t.UpdatedAt})
}

// DeleteToken — DELETE /api/mc-token.
func (h *Handler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	if err := h.Tokens.Delete(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
