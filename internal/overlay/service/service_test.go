package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	facilitymodels "facreg/internal/facility/models"
	facilitystore "facreg/internal/facility/store/facility"
	"facreg/internal/overlay/models"
	overlaystore "facreg/internal/overlay/store"
	"facreg/internal/taxonomy"
	"facreg/pkg/domain"
	dErrors "facreg/pkg/domain-errors"
)

type fixture struct {
	overlays   *overlaystore.InMemoryStore
	facilities *facilitystore.InMemoryStore
	service    *Service
	key        domain.FacilityKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := domain.ParseFacilityKey("vha_689")
	require.NoError(t, err)
	f := &fixture{
		overlays:   overlaystore.NewMemory(),
		facilities: facilitystore.NewMemory(),
		key:        key,
	}
	f.service = New(f.overlays, f.facilities, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	return f
}

func (f *fixture) seedFacility(t *testing.T) {
	t.Helper()
	require.NoError(t, f.facilities.Save(context.Background(), facilitymodels.FacilityRecord{
		Key: f.key,
		Attributes: facilitymodels.Attributes{
			Name:     "Anytown VA Medical Center",
			Services: facilitymodels.Services{Health: []string{"primaryCare"}},
		},
		Services: []string{"primaryCare"},
	}))
}

func detailedService(t *testing.T, serviceID string, active bool) models.DetailedService {
	t.Helper()
	info, ok := taxonomy.ResolveByID(serviceID)
	require.True(t, ok, "service id %s must resolve", serviceID)
	return models.DetailedService{Info: &info, Active: active}
}

func closedStatus() *models.OperatingStatus {
	return &models.OperatingStatus{Code: models.StatusClosed, AdditionalInfo: "Flooded"}
}

func TestGetMissingOverlayIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Get(context.Background(), f.key)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestUpsertCreatesOverlay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	projected, err := f.service.Upsert(ctx, f.key, models.Patch{OperatingStatus: closedStatus()})
	require.NoError(t, err)
	assert.False(t, projected, "no live facility row to project onto")

	got, err := f.service.Get(ctx, f.key)
	require.NoError(t, err)
	require.NotNil(t, got.OperatingStatus)
	assert.Equal(t, models.StatusClosed, got.OperatingStatus.Code)
	assert.Nil(t, got.DetailedServices)
}

func TestUpsertPartialUpdatePreservesOtherNode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	services := []models.DetailedService{detailedService(t, taxonomy.Covid19VaccineID, true)}
	_, err := f.service.Upsert(ctx, f.key, models.Patch{DetailedServices: &services})
	require.NoError(t, err)

	// A later patch touching only the status leaves the services node alone.
	_, err = f.service.Upsert(ctx, f.key, models.Patch{OperatingStatus: closedStatus()})
	require.NoError(t, err)

	got, err := f.service.Get(ctx, f.key)
	require.NoError(t, err)
	require.NotNil(t, got.OperatingStatus)
	require.Len(t, got.DetailedServices, 1)
	assert.Equal(t, taxonomy.Covid19VaccineID, got.DetailedServices[0].ServiceID())
	assert.Equal(t, []string{taxonomy.Covid19VaccineID}, got.ActiveServiceIDs)
}

func TestUpsertEmptyServicesClearsNode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	services := []models.DetailedService{detailedService(t, taxonomy.Covid19VaccineID, true)}
	_, err := f.service.Upsert(ctx, f.key, models.Patch{DetailedServices: &services})
	require.NoError(t, err)

	empty := []models.DetailedService{}
	_, err = f.service.Upsert(ctx, f.key, models.Patch{DetailedServices: &empty})
	require.NoError(t, err)

	stored, err := f.overlays.Get(ctx, f.key)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotNil(t, stored.DetailedServices, "cleared node stays supplied, not absent")
	assert.Empty(t, stored.DetailedServices)
	assert.Empty(t, stored.ActiveServiceIDs)
}

func TestUpsertDropsUnrecognizedServices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	services := []models.DetailedService{
		detailedService(t, taxonomy.Covid19VaccineID, true),
		{Info: nil, Active: true},
	}
	_, err := f.service.Upsert(ctx, f.key, models.Patch{DetailedServices: &services})
	require.NoError(t, err)

	got, err := f.service.Get(ctx, f.key)
	require.NoError(t, err)
	require.Len(t, got.DetailedServices, 1)
	assert.Equal(t, taxonomy.Covid19VaccineID, got.DetailedServices[0].ServiceID())
}

func TestUpsertProjectsOntoLiveFacility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedFacility(t)

	services := []models.DetailedService{detailedService(t, taxonomy.Covid19VaccineID, true)}
	projected, err := f.service.Upsert(ctx, f.key, models.Patch{
		OperatingStatus:  closedStatus(),
		DetailedServices: &services,
	})
	require.NoError(t, err)
	assert.True(t, projected)

	rec, err := f.facilities.Get(ctx, f.key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NotNil(t, rec.Attributes.OperatingStatus)
	assert.Equal(t, models.StatusClosed, rec.Attributes.OperatingStatus.Code)
	assert.Equal(t, []string{taxonomy.Covid19VaccineID}, rec.OverlayServices)
	assert.Contains(t, rec.Services, taxonomy.Covid19VaccineID, "active service is promoted into the service list")
	assert.Contains(t, rec.Services, "primaryCare")
}

func TestDeleteNodeOnMissingOverlayIsNoOp(t *testing.T) {
	f := newFixture(t)

	deleted, err := f.service.DeleteNode(context.Background(), f.key, models.NodeOperatingStatus)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteNodeOnEmptyNodeIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Upsert(ctx, f.key, models.Patch{OperatingStatus: closedStatus()})
	require.NoError(t, err)

	deleted, err := f.service.DeleteNode(ctx, f.key, models.NodeDetailedServices)
	require.NoError(t, err)
	assert.False(t, deleted)

	// The untouched node survives.
	got, err := f.service.Get(ctx, f.key)
	require.NoError(t, err)
	assert.NotNil(t, got.OperatingStatus)
}

func TestDeleteNodeRemovesSingleNode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	services := []models.DetailedService{detailedService(t, taxonomy.Covid19VaccineID, true)}
	_, err := f.service.Upsert(ctx, f.key, models.Patch{
		OperatingStatus:  closedStatus(),
		DetailedServices: &services,
	})
	require.NoError(t, err)

	deleted, err := f.service.DeleteNode(ctx, f.key, models.NodeOperatingStatus)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := f.service.Get(ctx, f.key)
	require.NoError(t, err)
	assert.Nil(t, got.OperatingStatus)
	require.Len(t, got.DetailedServices, 1)
}

func TestDeleteLastNodeRemovesOverlayRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Upsert(ctx, f.key, models.Patch{OperatingStatus: closedStatus()})
	require.NoError(t, err)

	deleted, err := f.service.DeleteNode(ctx, f.key, models.NodeOperatingStatus)
	require.NoError(t, err)
	assert.True(t, deleted)

	stored, err := f.overlays.Get(ctx, f.key)
	require.NoError(t, err)
	assert.Nil(t, stored, "empty overlay row is deleted, not persisted")
}

func TestDeleteAllNodeClearsEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedFacility(t)

	services := []models.DetailedService{detailedService(t, taxonomy.Covid19VaccineID, true)}
	_, err := f.service.Upsert(ctx, f.key, models.Patch{
		OperatingStatus:  closedStatus(),
		DetailedServices: &services,
	})
	require.NoError(t, err)

	deleted, err := f.service.DeleteNode(ctx, f.key, models.NodeAll)
	require.NoError(t, err)
	assert.True(t, deleted)

	stored, err := f.overlays.Get(ctx, f.key)
	require.NoError(t, err)
	assert.Nil(t, stored)

	// Projection drops the overlay-sourced services from the live row.
	rec, err := f.facilities.Get(ctx, f.key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Empty(t, rec.OverlayServices)
}
