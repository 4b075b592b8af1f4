// Package handler exposes the administrator overlay endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"facreg/internal/overlay/models"
	"facreg/internal/platform/middleware"
	"facreg/pkg/domain"
	dErrors "facreg/pkg/domain-errors"
	"facreg/pkg/platform/httputil"
)

// Service defines the overlay operations the handler needs.
type Service interface {
	Get(ctx context.Context, key domain.FacilityKey) (*models.Overlay, error)
	Upsert(ctx context.Context, key domain.FacilityKey, patch models.Patch) (bool, error)
}

// Handler wires overlay endpoints to the overlay service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts overlay endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v0/facilities/{id}/cms-overlay", h.HandleGet)
	r.Post("/v0/facilities/{id}/cms-overlay", h.HandleUpsert)
}

// OverlayResponse wraps an overlay for the read endpoint.
type OverlayResponse struct {
	Overlay *models.Overlay `json:"overlay"`
}

// HandleGet handles GET /v0/facilities/{id}/cms-overlay.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key, err := domain.ParseFacilityKey(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "parse facility id"))
		return
	}

	ov, err := h.service.Get(ctx, key)
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "overlay read failed",
				"request_id", middleware.GetRequestID(ctx),
				"facility_id", key.String(),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OverlayResponse{Overlay: ov})
}

// HandleUpsert handles POST /v0/facilities/{id}/cms-overlay. The body is a
// partial update: only supplied nodes replace stored ones. Responds 200 when
// a live facility row was re-projected and 202 when the overlay was stored
// for a facility not (yet) in the registry.
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	key, err := domain.ParseFacilityKey(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "parse facility id"))
		return
	}

	var patch models.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "decode overlay"))
		return
	}
	if patch.OperatingStatus != nil {
		if _, err := models.ParseOperatingStatusCode(string(patch.OperatingStatus.Code)); err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "validate operating status"))
			return
		}
	}

	projected, err := h.service.Upsert(ctx, key, patch)
	if err != nil {
		h.logger.ErrorContext(ctx, "overlay upsert failed",
			"request_id", requestID,
			"facility_id", key.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "overlay upserted",
		"request_id", requestID,
		"facility_id", key.String(),
		"projected", projected,
	)
	if !projected {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.WriteHeader(http.StatusOK)
}
