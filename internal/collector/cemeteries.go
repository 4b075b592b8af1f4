package collector

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"facreg/internal/facility/models"
	"facreg/pkg/domain"
)

// CemeteriesSource reads the state cemeteries XML feed.
type CemeteriesSource struct {
	url    string
	client *http.Client
}

func NewCemeteriesSource(url string, client *http.Client) *CemeteriesSource {
	return &CemeteriesSource{url: url, client: client}
}

func (s *CemeteriesSource) Name() string { return "cemeteries" }

type cemeteryFeed struct {
	XMLName    xml.Name      `xml:"cems"`
	Cemeteries []cemeteryRow `xml:"cem"`
}

type cemeteryRow struct {
	ID        string `xml:"fac_id,attr"`
	Name      string `xml:"cem_name,attr"`
	URL       string `xml:"cem_url,attr"`
	Latitude  string `xml:"lat,attr"`
	Longitude string `xml:"long,attr"`
	Address1  string `xml:"address_line1,attr"`
	Address2  string `xml:"address_line2,attr"`
	City      string `xml:"city,attr"`
	State     string `xml:"state,attr"`
	Zip       string `xml:"zip,attr"`
	MailAddr1 string `xml:"mailing_line1,attr"`
	MailAddr2 string `xml:"mailing_line2,attr"`
	MailCity  string `xml:"mailing_city,attr"`
	MailState string `xml:"mailing_state,attr"`
	MailZip   string `xml:"mailing_zip,attr"`
	Phone     string `xml:"phone,attr"`
	Fax       string `xml:"fax,attr"`
}

func (s *CemeteriesSource) Collect(ctx context.Context) ([]models.CollectedFacility, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch cemeteries feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cemeteries feed returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read cemeteries feed: %w", err)
	}
	var feed cemeteryFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return nil, fmt.Errorf("parse cemeteries feed: %w", err)
	}

	out := make([]models.CollectedFacility, 0, len(feed.Cemeteries))
	for _, c := range feed.Cemeteries {
		out = append(out, models.CollectedFacility{
			ID: fmt.Sprintf("%s_%s", domain.TypeCemetery, c.ID),
			Attributes: models.Attributes{
				Name:           c.Name,
				Classification: "State Cemetery",
				Website:        c.URL,
				Latitude:       parseCoordinate(c.Latitude),
				Longitude:      parseCoordinate(c.Longitude),
				Address: models.Addresses{
					Physical: &models.Address{
						Address1: c.Address1,
						Address2: c.Address2,
						City:     c.City,
						State:    c.State,
						Zip:      c.Zip,
					},
					Mailing: &models.Address{
						Address1: c.MailAddr1,
						Address2: c.MailAddr2,
						City:     c.MailCity,
						State:    c.MailState,
						Zip:      c.MailZip,
					},
				},
				Phone:        models.Phone{Main: c.Phone, Fax: c.Fax},
				ActiveStatus: models.ActiveStatusActive,
			},
		})
	}
	return out, nil
}

func parseCoordinate(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
