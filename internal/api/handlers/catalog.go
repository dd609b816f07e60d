// catalog.go — обработчики справочника языков и голосов.
package handlers

import (
	"net/http"
)

// ListLanguages — GET /api/tts/languages.
func (h *Handler) ListLanguages(w http.ResponseWriter, r *http.Request) {
	langs, err := h.Catalog.Languages(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := make([]languageResponse, len(langs))
	for i, l := range langs {
		items[i] = languageResponse{ID: l.ID, Language: l.Language, LanguageKey: l.LanguageKey}
	}
	writeJSON(w, http.StatusOK, items)
}

// ListSpeakers — GET /api/tts/speakers/{languageId}.
func (h *Handler) ListSpeakers(w http.ResponseWriter, r *http.Request) {
	languageID, err := pathID(r, "languageId")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	voices, err := h.Catalog.Voices(r.Context(), languageID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items := make([]voiceResponse, len(voices))
	for i, v := range voices {
		items[i] = voiceResponse{
			ID:         v.ID,
			LanguageID: v.LanguageID,
			Speaker:    v.Speaker,
			SpeakerSex: v.SpeakerSex,
		}
	}
	writeJSON(w, http.StatusOK, items)
}
