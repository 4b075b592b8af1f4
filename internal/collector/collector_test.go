package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facreg/internal/facility/models"
)

type stubSource struct {
	name       string
	facilities []models.CollectedFacility
	err        error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Collect(context.Context) ([]models.CollectedFacility, error) {
	return s.facilities, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func collectedFacility(id string) models.CollectedFacility {
	return models.CollectedFacility{ID: id, Attributes: models.Attributes{Name: "Facility " + id}}
}

func writeReferenceFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reference.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestCollectFanInSortsAndDedupes(t *testing.T) {
	c := New([]Source{
		&stubSource{name: "health", facilities: []models.CollectedFacility{
			collectedFacility("vha_689"),
			collectedFacility("vha_402"),
		}},
		&stubSource{name: "benefits", facilities: []models.CollectedFacility{
			collectedFacility("vba_306"),
			collectedFacility("vha_689"),
		}},
	}, nil, discardLogger())

	got, err := c.CollectFacilities(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, cf := range got {
		ids = append(ids, cf.ID)
	}
	assert.Equal(t, []string{"vba_306", "vha_402", "vha_689"}, ids)
}

func TestCollectFailsWhenAnySourceFails(t *testing.T) {
	c := New([]Source{
		&stubSource{name: "health", facilities: []models.CollectedFacility{collectedFacility("vha_689")}},
		&stubSource{name: "benefits", err: errors.New("feed down")},
	}, nil, discardLogger())

	_, err := c.CollectFacilities(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect benefits")
}

func TestCollectAppliesReferenceEnrichment(t *testing.T) {
	path := writeReferenceFile(t, "facility_id,website,mobile\nvha_689,https://example.org/689,true\n")

	withSite := collectedFacility("vha_402")
	withSite.Attributes.Website = "https://example.org/402-original"
	c := New([]Source{
		&stubSource{name: "health", facilities: []models.CollectedFacility{
			collectedFacility("vha_689"),
			withSite,
		}},
	}, NewReferenceSource(path), discardLogger())

	got, err := c.CollectFacilities(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "https://example.org/402-original", got[0].Attributes.Website,
		"reference never overwrites source data")
	assert.Equal(t, "https://example.org/689", got[1].Attributes.Website)
	require.NotNil(t, got[1].Attributes.Mobile)
	assert.True(t, *got[1].Attributes.Mobile)
}

func TestReferenceLoad(t *testing.T) {
	path := writeReferenceFile(t, `facility_id,website,mobile
vha_689,https://example.org/689,true
vba_306,,no
nca_808,https://example.org/808,
,ignored,
`)

	refs, err := NewReferenceSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 3)

	require.NotNil(t, refs["vha_689"].Mobile)
	assert.True(t, *refs["vha_689"].Mobile)
	require.NotNil(t, refs["vba_306"].Mobile)
	assert.False(t, *refs["vba_306"].Mobile)
	assert.Nil(t, refs["nca_808"].Mobile, "blank mobile stays unknown")
	assert.Equal(t, "https://example.org/808", refs["nca_808"].Website)
}

func TestReferenceLoadMissingFile(t *testing.T) {
	_, err := NewReferenceSource("/nonexistent/reference.csv").Load(context.Background())
	require.Error(t, err)
}

func TestGeospatialCollect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"features": [
				{
					"attributes": {
						"station_number": "689",
						"name": "West Haven VA",
						"address1": "950 Campbell Ave",
						"city": "West Haven",
						"state": "CT",
						"zip": "06516",
						"phone": "203-932-5711",
						"monday": "730AM-430PM"
					},
					"geometry": {"x": -72.9578, "y": 41.2844}
				},
				{
					"attributes": {"station_number": "402", "name": "Togus VA"},
					"geometry": {}
				}
			]
		}`))
	}))
	defer server.Close()

	src, err := NewGeospatialSource(GeospatialConfig{Name: "health", URL: server.URL, Type: "vha"}, server.Client())
	require.NoError(t, err)

	got, err := src.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "vha_689", first.ID)
	assert.Equal(t, "West Haven VA", first.Attributes.Name)
	require.NotNil(t, first.Attributes.Latitude)
	assert.InDelta(t, 41.2844, *first.Attributes.Latitude, 0.0001)
	require.NotNil(t, first.Attributes.Address.Physical)
	assert.Equal(t, "CT", first.Attributes.Address.Physical.State)
	assert.Equal(t, "730AM-430PM", first.Attributes.Hours.Monday)
	assert.Equal(t, models.ActiveStatusActive, first.Attributes.ActiveStatus)

	// Missing geometry stays nil so reconciliation can record the problem.
	assert.Nil(t, got[1].Attributes.Latitude)
	assert.Nil(t, got[1].Attributes.Longitude)
}

func TestGeospatialRejectsUnknownType(t *testing.T) {
	_, err := NewGeospatialSource(GeospatialConfig{Name: "bad", URL: "http://example.org", Type: "hospital"}, http.DefaultClient)
	require.Error(t, err)
}

func TestGeospatialNon200IsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	src, err := NewGeospatialSource(GeospatialConfig{Name: "health", URL: server.URL, Type: "vha"}, server.Client())
	require.NoError(t, err)

	_, err = src.Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestCemeteriesCollect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<cems>
			<cem fac_id="808" cem_name="Albany Rural Cemetery" cem_url="https://example.org/808"
				lat="42.7148" long="-73.7357"
				address_line1="Cemetery Ave" city="Menands" state="NY" zip="12204"
				mailing_line1="PO Box 2" mailing_city="Albany" mailing_state="NY" mailing_zip="12201"
				phone="518-463-7017"/>
			<cem fac_id="809" cem_name="No Coordinates Cemetery" lat="" long="bogus"/>
		</cems>`))
	}))
	defer server.Close()

	got, err := NewCemeteriesSource(server.URL, server.Client()).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "nca_808", first.ID)
	assert.Equal(t, "Albany Rural Cemetery", first.Attributes.Name)
	assert.Equal(t, "State Cemetery", first.Attributes.Classification)
	require.NotNil(t, first.Attributes.Latitude)
	assert.InDelta(t, 42.7148, *first.Attributes.Latitude, 0.0001)
	require.NotNil(t, first.Attributes.Address.Mailing)
	assert.Equal(t, "12201", first.Attributes.Address.Mailing.Zip)
	assert.Equal(t, "518-463-7017", first.Attributes.Phone.Main)

	// Blank or malformed coordinates come through nil.
	assert.Nil(t, got[1].Attributes.Latitude)
	assert.Nil(t, got[1].Attributes.Longitude)
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
geospatial:
  - name: health
    url: https://example.org/health/query
    type: vha
warehouse:
  driver: postgres
  dsn: postgres://facreg@localhost/warehouse
cemeteries:
  url: https://example.org/cems.xml
reference:
  path: /etc/facreg/reference.csv
`), 0o600))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, m.Geospatial, 1)
	assert.Equal(t, "health", m.Geospatial[0].Name)
	assert.Equal(t, "vha", m.Geospatial[0].Type)
	assert.Equal(t, "postgres", m.Warehouse.Driver)
	assert.Equal(t, "https://example.org/cems.xml", m.Cemeteries.URL)
	assert.Equal(t, "/etc/facreg/reference.csv", m.Reference.Path)
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest("/nonexistent/sources.yaml")
	require.Error(t, err)
}
