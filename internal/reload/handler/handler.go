// Package handler exposes the internal management API: reload runs,
// graveyard inspection, and destructive facility/overlay maintenance.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	facilitymodels "facreg/internal/facility/models"
	overlaymodels "facreg/internal/overlay/models"
	"facreg/internal/platform/middleware"
	"facreg/internal/reload"
	"facreg/pkg/domain"
	dErrors "facreg/pkg/domain-errors"
	"facreg/pkg/platform/httputil"
)

// Engine runs reconciliation passes.
type Engine interface {
	Reload(ctx context.Context) (*reload.Report, error)
	Process(ctx context.Context, collected []facilitymodels.CollectedFacility, report *reload.Report) error
}

// FacilityStore is the slice of the live store the management API needs.
type FacilityStore interface {
	Get(ctx context.Context, key domain.FacilityKey) (*facilitymodels.FacilityRecord, error)
	Delete(ctx context.Context, key domain.FacilityKey) error
}

// GraveyardStore lists purged facilities for inspection.
type GraveyardStore interface {
	All(ctx context.Context) ([]facilitymodels.GraveyardRecord, error)
}

// OverlayService clears overlay nodes on behalf of operators.
type OverlayService interface {
	DeleteNode(ctx context.Context, key domain.FacilityKey, node overlaymodels.Node) (bool, error)
}

// Handler wires the management endpoints.
type Handler struct {
	engine     Engine
	facilities FacilityStore
	graveyard  GraveyardStore
	overlays   OverlayService
	logger     *slog.Logger
	clock      func() time.Time
}

func New(engine Engine, facilities FacilityStore, graveyard GraveyardStore, overlays OverlayService, logger *slog.Logger) *Handler {
	return &Handler{
		engine:     engine,
		facilities: facilities,
		graveyard:  graveyard,
		overlays:   overlays,
		logger:     logger,
		clock:      time.Now,
	}
}

// Register mounts the management endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/internal/management", func(r chi.Router) {
		r.Get("/reload", h.HandleReload)
		r.Post("/reload", h.HandleUpload)
		r.Get("/graveyard", h.HandleGraveyard)
		r.Delete("/facilities/{id}", h.HandleDeleteFacility)
		r.Delete("/facilities/{id}/cms-overlay", h.HandleDeleteOverlay)
		r.Delete("/facilities/{id}/cms-overlay/{node}", h.HandleDeleteOverlayNode)
	})
}

// HandleReload handles GET /internal/management/reload: collect the upstream
// snapshot and reconcile it. A failed run still returns its partial report so
// operators can see how far it got.
func (h *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	report, err := h.engine.Reload(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "reload failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, report)
		return
	}
	h.logger.InfoContext(ctx, "reload complete",
		"request_id", requestID,
		"total", report.TotalFacilities,
		"created", len(report.FacilitiesCreated),
		"updated", len(report.FacilitiesUpdated),
		"missing", len(report.FacilitiesMissing),
		"revived", len(report.FacilitiesRevived),
		"removed", len(report.FacilitiesRemoved),
		"problems", len(report.Problems),
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleUpload handles POST /internal/management/reload: reconcile a
// pre-collected batch supplied in the request body.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var collected []facilitymodels.CollectedFacility
	if err := json.NewDecoder(r.Body).Decode(&collected); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "decode facilities"))
		return
	}

	report := reload.StartReport(h.clock())
	if err := h.engine.Process(ctx, collected, report); err != nil {
		h.logger.ErrorContext(ctx, "upload reload failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, report)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// GraveyardResponse wraps the graveyard dump.
type GraveyardResponse struct {
	Facilities []facilitymodels.GraveyardRecord `json:"facilities"`
}

// HandleGraveyard handles GET /internal/management/graveyard.
func (h *Handler) HandleGraveyard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.graveyard.All(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "graveyard dump failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list graveyard"))
		return
	}
	if records == nil {
		records = []facilitymodels.GraveyardRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, GraveyardResponse{Facilities: records})
}

// HandleDeleteFacility handles DELETE /internal/management/facilities/{id}.
// Deleting an unknown or unparseable id is accepted and ignored.
func (h *Handler) HandleDeleteFacility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	key, err := domain.ParseFacilityKey(id)
	if err != nil {
		h.logger.InfoContext(ctx, "facility does not exist, ignoring delete", "facility_id", id)
		w.WriteHeader(http.StatusAccepted)
		return
	}
	rec, err := h.facilities.Get(ctx, key)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "load facility"))
		return
	}
	if rec == nil {
		h.logger.InfoContext(ctx, "facility does not exist, ignoring delete", "facility_id", id)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	h.logger.WarnContext(ctx, "deleting facility",
		"request_id", middleware.GetRequestID(ctx),
		"facility_id", id,
	)
	if err := h.facilities.Delete(ctx, key); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "delete facility"))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleDeleteOverlay handles DELETE .../facilities/{id}/cms-overlay,
// clearing both overlay nodes.
func (h *Handler) HandleDeleteOverlay(w http.ResponseWriter, r *http.Request) {
	h.deleteOverlayNode(w, r, overlaymodels.NodeAll)
}

// HandleDeleteOverlayNode handles DELETE .../facilities/{id}/cms-overlay/{node}.
func (h *Handler) HandleDeleteOverlayNode(w http.ResponseWriter, r *http.Request) {
	node, err := overlaymodels.ParseNode(chi.URLParam(r, "node"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "unknown overlay node"))
		return
	}
	h.deleteOverlayNode(w, r, node)
}

func (h *Handler) deleteOverlayNode(w http.ResponseWriter, r *http.Request, node overlaymodels.Node) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	key, err := domain.ParseFacilityKey(id)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "parse facility id"))
		return
	}

	deleted, err := h.overlays.DeleteNode(ctx, key, node)
	if err != nil {
		h.logger.ErrorContext(ctx, "overlay node delete failed",
			"request_id", middleware.GetRequestID(ctx),
			"facility_id", id,
			"node", string(node),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if !deleted {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	h.logger.WarnContext(ctx, "overlay node deleted",
		"request_id", middleware.GetRequestID(ctx),
		"facility_id", id,
		"node", string(node),
	)
	w.WriteHeader(http.StatusOK)
}
