// records.go — обработчики /api/tts: синтез, сохранение, копирование,
// список и воспроизведение записей речи.
package handlers

import (
	"mime"
	"net/http"

	"github.com/bigkaa/ttsstudio/internal/service"
)

// synthesizeRequest — тело POST /api/tts. Имена полей совпадают с клиентом.
type synthesizeRequest struct {
	Text                  string  `json:"text" validate:"required"`
	LanguageID            int64   `json:"languageId" validate:"required"`
	SpeakerID             int64   `json:"speakerId" validate:"required"`
	Rate                  float64 `json:"rate" validate:"required"`
	Pitch                 float64 `json:"pitch" validate:"required"`
	RecordConfigurationID *int64  `json:"record_configuration_id"`
	ID                    *int64  `json:"id"`
	Name                  *string `json:"name"`
	DirectoryID           *int64  `json:"directoryId"`
}

type saveRecordRequest struct {
	Name *string `json:"name"`
}

type applyConfigurationResponse struct {
	Updated int64 `json:"updated"`
}

// Synthesize — POST /api/tts. Новая запись (без id) или пересинтез существующей.
func (h *Handler) Synthesize(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req synthesizeRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.Records.Synthesize(r.Context(), p, service.SynthesizeInput{
		Text:                  req.Text,
		LanguageID:            req.LanguageID,
		SpeakerID:             req.SpeakerID,
		Rate:                  req.Rate,
		Pitch:                 req.Pitch,
		RecordConfigurationID: req.RecordConfigurationID,
		ID:                    req.ID,
		Name:                  req.Name,
		DirectoryID:           req.DirectoryID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapRecord(view))
}

// ApplyConfiguration — POST /api/tts/configuration-change/{configId}. Тело — массив id узлов.
func (h *Handler) ApplyConfiguration(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	configID, err := pathID(r, "configId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var ids []int64
	if err := h.decodeAndValidate(w, r, &ids); err != nil {
		h.fail(w, r, err)
		return
	}

	n, err := h.Records.ApplyConfiguration(r.Context(), p, configID, ids)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, applyConfigurationResponse{Updated: n})
}

// SaveRecord — POST /api/tts/{id}. Сохраняет черновик под новым именем.
func (h *Handler) SaveRecord(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req saveRecordRequest
	if err := h.decodeAndValidate(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.Records.Save(r.Context(), p, id, req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapRecord(view))
}

// DeleteRecord — DELETE /api/tts/{id}.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Records.Delete(r.Context(), p, id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DuplicateRecord — POST /api/tts/duplicate/{id}.
func (h *Handler) DuplicateRecord(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.Records.Duplicate(r.Context(), p, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapRecord(view))
}

// ListRecords — GET /api/tts/record/list?directoryId=. Без directoryId — корень.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	directoryID, err := queryInt64(r, "directoryId")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	views, err := h.Records.List(r.Context(), p, directoryID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := make([]recordResponse, len(views))
	for i, v := range views {
		items[i] = mapRecord(v)
	}
	writeJSON(w, http.StatusOK, items)
}

// GetRecord — GET /api/tts/record/{id}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.Records.Get(r.Context(), p, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapRecord(view))
}

// PlayRecord — GET /api/tts/record/play/{id}. Поддерживает Range-запросы.
func (h *Handler) PlayRecord(w http.ResponseWriter, r *http.Request) {
	h.serveAudio(w, r, false)
}

// DownloadRecord — GET /api/tts/record/download/{id}. Отдаёт <name>.wav вложением.
func (h *Handler) DownloadRecord(w http.ResponseWriter, r *http.Request) {
	h.serveAudio(w, r, true)
}

func (h *Handler) serveAudio(w http.ResponseWriter, r *http.Request, attachment bool) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	obj, node, err := h.Records.OpenAudio(r.Context(), p, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "no-cache")
	if attachment {
		w.Header().Set("Content-Disposition",
			mime.FormatMediaType("attachment", map[string]string{"filename": node.Name + ".wav"}))
	}
	http.ServeContent(w, r, node.Name+".wav", obj.ModTime, obj.Content)
}
