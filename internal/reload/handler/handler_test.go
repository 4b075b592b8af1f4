package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	facilitymodels "facreg/internal/facility/models"
	overlaymodels "facreg/internal/overlay/models"
	"facreg/internal/reload"
	"facreg/pkg/domain"
)

type stubEngine struct {
	report    *reload.Report
	reloadErr error

	processed  []facilitymodels.CollectedFacility
	processErr error
}

func (s *stubEngine) Reload(context.Context) (*reload.Report, error) {
	return s.report, s.reloadErr
}

func (s *stubEngine) Process(_ context.Context, collected []facilitymodels.CollectedFacility, report *reload.Report) error {
	s.processed = collected
	report.TotalFacilities = len(collected)
	return s.processErr
}

type stubFacilityStore struct {
	records map[string]*facilitymodels.FacilityRecord
	deleted []string
}

func (s *stubFacilityStore) Get(_ context.Context, key domain.FacilityKey) (*facilitymodels.FacilityRecord, error) {
	return s.records[key.String()], nil
}

func (s *stubFacilityStore) Delete(_ context.Context, key domain.FacilityKey) error {
	s.deleted = append(s.deleted, key.String())
	return nil
}

type stubGraveyard struct {
	records []facilitymodels.GraveyardRecord
	err     error
}

func (s *stubGraveyard) All(context.Context) ([]facilitymodels.GraveyardRecord, error) {
	return s.records, s.err
}

type stubOverlayService struct {
	deleted     bool
	err         error
	gotNode     overlaymodels.Node
	gotFacility string
}

func (s *stubOverlayService) DeleteNode(_ context.Context, key domain.FacilityKey, node overlaymodels.Node) (bool, error) {
	s.gotFacility = key.String()
	s.gotNode = node
	return s.deleted, s.err
}

type handlerFixture struct {
	engine    *stubEngine
	store     *stubFacilityStore
	graveyard *stubGraveyard
	overlays  *stubOverlayService
	router    chi.Router
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		engine:    &stubEngine{report: &reload.Report{}},
		store:     &stubFacilityStore{records: map[string]*facilitymodels.FacilityRecord{}},
		graveyard: &stubGraveyard{},
		overlays:  &stubOverlayService{},
		router:    chi.NewRouter(),
	}
	h := New(f.engine, f.store, f.graveyard, f.overlays, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.Register(f.router)
	return f
}

func (f *handlerFixture) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHandleReloadReturnsReport(t *testing.T) {
	f := newHandlerFixture(t)
	f.engine.report = &reload.Report{
		TotalFacilities:   2,
		FacilitiesCreated: []string{"vha_689"},
		FacilitiesUpdated: []string{"vba_306"},
	}

	w := f.do(t, http.MethodGet, "/internal/management/reload", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp reload.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalFacilities)
	assert.Equal(t, []string{"vha_689"}, resp.FacilitiesCreated)
}

func TestHandleReloadFailureStillReturnsPartialReport(t *testing.T) {
	f := newHandlerFixture(t)
	f.engine.report = &reload.Report{
		TotalFacilities: 5,
		Problems:        []reload.Problem{{FacilityID: "vha_689", Description: "Failed to save record: boom"}},
	}
	f.engine.reloadErr = errors.New("save failed")

	w := f.do(t, http.MethodGet, "/internal/management/reload", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp reload.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.TotalFacilities)
	require.Len(t, resp.Problems, 1)
}

func TestHandleUploadProcessesBatch(t *testing.T) {
	f := newHandlerFixture(t)
	lat, long := 40.73, -73.99
	body, err := json.Marshal([]facilitymodels.CollectedFacility{{
		ID: "vha_689",
		Attributes: facilitymodels.Attributes{
			Name:      "West Haven VA",
			Latitude:  &lat,
			Longitude: &long,
		},
	}})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/internal/management/reload", body)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.engine.processed, 1)
	assert.Equal(t, "vha_689", f.engine.processed[0].ID)
}

func TestHandleUploadRejectsBadJSON(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodPost, "/internal/management/reload", []byte("{not json"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGraveyardListsRecords(t *testing.T) {
	f := newHandlerFixture(t)
	key, err := domain.ParseFacilityKey("vha_689")
	require.NoError(t, err)
	f.graveyard.records = []facilitymodels.GraveyardRecord{{
		Key:          key,
		MissingSince: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}}

	w := f.do(t, http.MethodGet, "/internal/management/graveyard", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	facilities := resp["facilities"].([]any)
	assert.Len(t, facilities, 1)
}

func TestHandleGraveyardEmptyIsEmptyList(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/internal/management/graveyard", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"facilities":[]}`, w.Body.String())
}

func TestHandleDeleteFacility(t *testing.T) {
	f := newHandlerFixture(t)
	key, err := domain.ParseFacilityKey("vha_689")
	require.NoError(t, err)
	f.store.records["vha_689"] = &facilitymodels.FacilityRecord{Key: key}

	w := f.do(t, http.MethodDelete, "/internal/management/facilities/vha_689", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"vha_689"}, f.store.deleted)
}

func TestHandleDeleteFacilityAbsentIsAccepted(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodDelete, "/internal/management/facilities/vha_689", nil)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Empty(t, f.store.deleted)
}

func TestHandleDeleteFacilityBadIDIsAccepted(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodDelete, "/internal/management/facilities/bogus", nil)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestHandleDeleteOverlayClearsAllNodes(t *testing.T) {
	f := newHandlerFixture(t)
	f.overlays.deleted = true

	w := f.do(t, http.MethodDelete, "/internal/management/facilities/vha_689/cms-overlay", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, overlaymodels.NodeAll, f.overlays.gotNode)
	assert.Equal(t, "vha_689", f.overlays.gotFacility)
}

func TestHandleDeleteOverlayNodeStatuses(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		deleted bool
		want    int
	}{
		{
			name:    "real deletion",
			path:    "/internal/management/facilities/vha_689/cms-overlay/operating_status",
			deleted: true,
			want:    http.StatusOK,
		},
		{
			name: "no-op deletion",
			path: "/internal/management/facilities/vha_689/cms-overlay/detailed_services",
			want: http.StatusAccepted,
		},
		{
			name: "unknown node",
			path: "/internal/management/facilities/vha_689/cms-overlay/bogus",
			want: http.StatusNotFound,
		},
		{
			name: "bad facility id",
			path: "/internal/management/facilities/bogus/cms-overlay/operating_status",
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t)
			f.overlays.deleted = tt.deleted

			w := f.do(t, http.MethodDelete, tt.path, nil)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}
