//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facreg/internal/overlay/models"
	"facreg/internal/taxonomy"
	"facreg/pkg/domain"
	"facreg/pkg/testutil/containers"
)

func TestPostgresStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgres(pg.DB)
	ctx := context.Background()

	newKey := func(id string) domain.FacilityKey {
		k, err := domain.ParseFacilityKey(id)
		require.NoError(t, err)
		return k
	}

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))

		info, ok := taxonomy.ResolveByID(taxonomy.Covid19VaccineID)
		require.True(t, ok)
		ov := models.Overlay{
			Key: newKey("vha_689"),
			OperatingStatus: &models.OperatingStatus{
				Code:           models.StatusClosed,
				AdditionalInfo: "Flooded",
			},
			DetailedServices: []models.DetailedService{{Info: &info, Active: true}},
			ActiveServiceIDs: []string{taxonomy.Covid19VaccineID},
		}
		require.NoError(t, store.Save(ctx, ov))

		got, err := store.Get(ctx, ov.Key)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.NotNil(t, got.OperatingStatus)
		assert.Equal(t, models.StatusClosed, got.OperatingStatus.Code)
		assert.Equal(t, "Flooded", got.OperatingStatus.AdditionalInfo)
		require.Len(t, got.DetailedServices, 1)
		assert.Equal(t, taxonomy.Covid19VaccineID, got.DetailedServices[0].ServiceID())
		assert.True(t, got.DetailedServices[0].Active)
		assert.Equal(t, []string{taxonomy.Covid19VaccineID}, []string(got.ActiveServiceIDs))
	})

	t.Run("null versus empty services column", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))

		never := newKey("vha_1")
		cleared := newKey("vha_2")
		require.NoError(t, store.Save(ctx, models.Overlay{
			Key:             never,
			OperatingStatus: &models.OperatingStatus{Code: models.StatusNotice},
		}))
		require.NoError(t, store.Save(ctx, models.Overlay{
			Key:              cleared,
			OperatingStatus:  &models.OperatingStatus{Code: models.StatusNotice},
			DetailedServices: []models.DetailedService{},
		}))

		got, err := store.Get(ctx, never)
		require.NoError(t, err)
		assert.Nil(t, got.DetailedServices, "never-supplied node reads back nil")

		got, err = store.Get(ctx, cleared)
		require.NoError(t, err)
		assert.NotNil(t, got.DetailedServices, "cleared node reads back empty, not nil")
		assert.Empty(t, got.DetailedServices)
	})

	t.Run("get absent returns nil", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))

		got, err := store.Get(ctx, newKey("vha_999"))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("upsert overwrites by key", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))

		key := newKey("vha_689")
		require.NoError(t, store.Save(ctx, models.Overlay{
			Key:             key,
			OperatingStatus: &models.OperatingStatus{Code: models.StatusNotice},
		}))
		require.NoError(t, store.Save(ctx, models.Overlay{
			Key:             key,
			OperatingStatus: &models.OperatingStatus{Code: models.StatusClosed},
		}))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, models.StatusClosed, got.OperatingStatus.Code)
	})

	t.Run("delete and list", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))

		require.NoError(t, store.Save(ctx, models.Overlay{
			Key:             newKey("vha_689"),
			OperatingStatus: &models.OperatingStatus{Code: models.StatusNotice},
		}))
		require.NoError(t, store.Save(ctx, models.Overlay{
			Key:             newKey("vc_0434V"),
			OperatingStatus: &models.OperatingStatus{Code: models.StatusNotice},
		}))

		all, err := store.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		require.NoError(t, store.Delete(ctx, newKey("vha_689")))
		got, err := store.Get(ctx, newKey("vha_689"))
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
