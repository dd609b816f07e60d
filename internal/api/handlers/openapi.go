package handlers

import (
	"net/http"

	"github.com/bigkaa/ttsstudio/internal/api/openapi"
)

// OpenAPISpec — GET /api/openapi.yaml. Отдаёт встроенный контракт API.
func OpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.Spec)
}
