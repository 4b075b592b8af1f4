// Package handler exposes the public facility read API.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"facreg/internal/facility/models"
	"facreg/internal/facility/service"
	"facreg/internal/platform/middleware"
	"facreg/pkg/domain"
	dErrors "facreg/pkg/domain-errors"
	"facreg/pkg/platform/httputil"
)

// Service defines the read operations the handler needs.
type Service interface {
	Get(ctx context.Context, key domain.FacilityKey) (*models.FacilityRecord, error)
	List(ctx context.Context, filter service.Filter, page service.Page) ([]models.FacilityRecord, int, error)
}

// Handler wires facility read endpoints to the facility service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts facility endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v0/facilities/{id}", h.HandleGet)
	r.Get("/v0/facilities", h.HandleList)
}

// FacilityResponse wraps a single facility.
type FacilityResponse struct {
	Data models.FacilityRecord `json:"data"`
}

// FacilityListResponse wraps a listing page.
type FacilityListResponse struct {
	Data []models.FacilityRecord `json:"data"`
	Meta ListMeta                `json:"meta"`
}

// ListMeta carries pagination bookkeeping.
type ListMeta struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

// HandleGet handles GET /v0/facilities/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key, err := domain.ParseFacilityKey(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "parse facility id"))
		return
	}

	rec, err := h.service.Get(ctx, key)
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "facility read failed",
				"request_id", middleware.GetRequestID(ctx),
				"facility_id", key.String(),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FacilityResponse{Data: *rec})
}

// HandleList handles GET /v0/facilities with type, state, and visn filters
// plus page/per_page pagination.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var filter service.Filter
	if raw := q.Get("type"); raw != "" {
		t, err := domain.ParseFacilityType(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "parse facility type"))
			return
		}
		filter.Type = t
	}
	filter.State = q.Get("state")
	filter.Visn = q.Get("visn")

	page, err := parsePage(q.Get("page"), q.Get("per_page"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, total, err := h.service.List(ctx, filter, page)
	if err != nil {
		h.logger.ErrorContext(ctx, "facility list failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FacilityListResponse{
		Data: records,
		Meta: ListMeta{Page: page.Number, PerPage: page.PerPage, Total: total},
	})
}

func parsePage(pageRaw, perPageRaw string) (service.Page, error) {
	page := service.Page{Number: 1, PerPage: 20}
	if pageRaw != "" {
		n, err := strconv.Atoi(pageRaw)
		if err != nil || n < 1 {
			return page, dErrors.Newf(dErrors.CodeBadRequest, "invalid page: %s", pageRaw)
		}
		page.Number = n
	}
	if perPageRaw != "" {
		n, err := strconv.Atoi(perPageRaw)
		if err != nil || n < 1 {
			return page, dErrors.Newf(dErrors.CodeBadRequest, "invalid per_page: %s", perPageRaw)
		}
		page.PerPage = n
	}
	return page, nil
}
