package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dvolkov/taskdesk/internal/api/shared"
	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/store"
)

// SourceManager is the slice of the source service the admin surface needs.
type SourceManager interface {
	ListSources(ctx context.Context) ([]*domain.Source, error)
	CreateSource(ctx context.Context, channel domain.ChannelType, externalID string, name *string) (*domain.Source, error)
}

// CreateSourceRequest represents the request body for registering a source.
type CreateSourceRequest struct {
	Type       string `json:"type" validate:"required,oneof=TELEGRAM WAZZUP"`
	ExternalID string `json:"external_id" validate:"required"`
	Name       string `json:"name"`
}

// SourceHandler handles source administration HTTP requests.
type SourceHandler struct {
	sources SourceManager
}

// NewSourceHandler creates a new SourceHandler.
func NewSourceHandler(sources SourceManager) *SourceHandler {
	return &SourceHandler{sources: sources}
}

// ListSources handles GET /api/sources requests.
func (h *SourceHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.sources.ListSources(r.Context())
	if err != nil {
		slog.Error("failed to list sources", "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to list sources")
		return
	}

	responses := make([]SourceResponse, 0, len(sources))
	for _, source := range sources {
		responses = append(responses, sourceToResponse(source))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// CreateSource handles POST /api/sources requests.
func (h *SourceHandler) CreateSource(w http.ResponseWriter, r *http.Request) {
	var req CreateSourceRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	var name *string
	if req.Name != "" {
		name = &req.Name
	}

	source, err := h.sources.CreateSource(r.Context(), domain.ChannelType(req.Type), req.ExternalID, name)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidChannelType) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid source")
			return
		}
		if store.IsDuplicateError(err) {
			shared.RespondWithError(w, r, http.StatusConflict, "Source already exists")
			return
		}
		slog.Error("failed to create source", "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to create source")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, sourceToResponse(source))
}
