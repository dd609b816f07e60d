// statistics.go — обработчик месячной статистики генераций.
package handlers

import (
	"net/http"
)

// MonthlyStatistics — GET /api/statistics/{year}/{month}.
// Область видимости строк зависит от роли вызывающего.
func (h *Handler) MonthlyStatistics(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	year, err := pathID(r, "year")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	month, err := pathID(r, "month")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rows, err := h.Statistics.Monthly(r.Context(), p, int(year), int(month))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUsage(rows))
}
