package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"facreg/internal/facility/models"
	"facreg/pkg/domain"
)

// GeospatialSource reads one feature-service query endpoint. Each feature
// carries flat attributes plus a point geometry in WGS84.
type GeospatialSource struct {
	name   string
	url    string
	ftype  domain.FacilityType
	client *http.Client
}

func NewGeospatialSource(cfg GeospatialConfig, client *http.Client) (*GeospatialSource, error) {
	ftype, err := domain.ParseFacilityType(cfg.Type)
	if err != nil {
		return nil, err
	}
	return &GeospatialSource{name: cfg.Name, url: cfg.URL, ftype: ftype, client: client}, nil
}

func (s *GeospatialSource) Name() string { return s.name }

type featureCollection struct {
	Features []struct {
		Attributes featureAttributes `json:"attributes"`
		Geometry   struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
		} `json:"geometry"`
	} `json:"features"`
}

type featureAttributes struct {
	StationNumber string `json:"station_number"`
	Name          string `json:"name"`
	Address1      string `json:"address1"`
	Address2      string `json:"address2"`
	City          string `json:"city"`
	State         string `json:"state"`
	Zip           string `json:"zip"`
	Phone         string `json:"phone"`
	Monday        string `json:"monday"`
	Tuesday       string `json:"tuesday"`
	Wednesday     string `json:"wednesday"`
	Thursday      string `json:"thursday"`
	Friday        string `json:"friday"`
	Saturday      string `json:"saturday"`
	Sunday        string `json:"sunday"`
}

func (s *GeospatialSource) Collect(ctx context.Context) ([]models.CollectedFacility, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query feature service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feature service returned %d", resp.StatusCode)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	out := make([]models.CollectedFacility, 0, len(fc.Features))
	for _, f := range fc.Features {
		a := f.Attributes
		out = append(out, models.CollectedFacility{
			ID: fmt.Sprintf("%s_%s", s.ftype, a.StationNumber),
			Attributes: models.Attributes{
				Name:      a.Name,
				Latitude:  f.Geometry.Y,
				Longitude: f.Geometry.X,
				Address: models.Addresses{
					Physical: &models.Address{
						Address1: a.Address1,
						Address2: a.Address2,
						City:     a.City,
						State:    a.State,
						Zip:      a.Zip,
					},
				},
				Phone: models.Phone{Main: a.Phone},
				Hours: models.Hours{
					Monday:    a.Monday,
					Tuesday:   a.Tuesday,
					Wednesday: a.Wednesday,
					Thursday:  a.Thursday,
					Friday:    a.Friday,
					Saturday:  a.Saturday,
					Sunday:    a.Sunday,
				},
				ActiveStatus: models.ActiveStatusActive,
			},
		})
	}
	return out, nil
}
