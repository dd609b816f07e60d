// configs.go — обработчики /api/record-configuration: пресеты голоса пользователя.
package handlers

import (
	"net/http"

	"github.com/bigkaa/ttsstudio/internal/service"
)

type configRequest struct {
	Name       string  `json:"name" validate:"required"`
	LanguageID int64   `json:"language_id" validate:"required"`
	SpeakerID  int64   `json:"speaker_id" validate:"required"`
	Rate       float64 `json:"rate" validate:"required"`
	Pitch      float64 `json:"pitch" validate:"required"`
}

func (c configRequest) input() service.ConfigInput {
	return service.ConfigInput{
		Name:       c.Name,
		LanguageID: c.LanguageID,
		SpeakerID:  c.SpeakerID,
		Rate:       c.Rate,
		Pitch:      c.Pitch,
	}
}

// ListConfigurations — GET /api/record-configuration. Только пресеты вызывающего.
func (h *Handler) ListConfigurations(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	cfgs, err := h.Configs.List(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := make([]configResponse, len(cfgs))
	for i, c := range cfgs {
		items[i] = mapConfig(c)
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateConfiguration — POST /api/record-configuration.
func (h *Handler) CreateConfiguration(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req configRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	cfg, err := h.Configs.Create(r.Context(), p, req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapConfig(cfg))
}

// UpdateConfiguration — POST /api/record-configuration/{id}. Только владелец.
func (h *Handler) UpdateConfiguration(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req configRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	cfg, err := h.Configs.Update(r.Context(), p, id, req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapConfig(cfg))
}

// DeleteConfiguration — DELETE /api/record-configuration/{id}. Только владелец.
func (h *Handler) DeleteConfiguration(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Configs.Delete(r.Context(), p, id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
