package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/datachat-inc/datachat-engine/pkg/apperrors"
	"github.com/datachat-inc/datachat-engine/pkg/services"
)

// SchemaHandler exposes schema inspection and cache invalidation endpoints.
type SchemaHandler struct {
	schema services.SchemaService
	logger *zap.Logger
}

// NewSchemaHandler creates a new SchemaHandler.
func NewSchemaHandler(schema services.SchemaService, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{schema: schema, logger: logger}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/schema", h.GetSchema)
	mux.HandleFunc("POST /api/schema/refresh", h.Refresh)
}

// GetSchema handles GET /api/schema?database=name requests.
func (h *SchemaHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	database := r.URL.Query().Get("database")

	snapshot, err := h.schema.GetSchema(r.Context(), database)
	if err != nil {
		if errors.Is(err, apperrors.ErrSchemaUnavailable) {
			_ = ErrorResponse(w, http.StatusServiceUnavailable, "schema_unavailable",
				"could not introspect the database")
			return
		}
		h.logger.Error("schema fetch failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to fetch schema")
		return
	}

	if err := WriteJSON(w, http.StatusOK, snapshot); err != nil {
		h.logger.Error("Failed to encode schema response", zap.Error(err))
	}
}

// Refresh handles POST /api/schema/refresh?database=name requests, evicting
// both cache tiers so the next lookup re-introspects.
func (h *SchemaHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	database := r.URL.Query().Get("database")
	h.schema.Invalidate(r.Context(), database)
	if err := WriteJSON(w, http.StatusOK, map[string]string{"status": "invalidated"}); err != nil {
		h.logger.Error("Failed to encode refresh response", zap.Error(err))
	}
}
