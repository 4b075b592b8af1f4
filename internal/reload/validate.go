package reload

import (
	"fmt"
	"regexp"

	"facreg/internal/facility/models"
	"facreg/pkg/domain"
	platformstrings "facreg/pkg/platform/strings"
)

var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// Validator checks collected facility data for quality problems.
// Problems never block a save; they are reported alongside the reload
// result so data owners can fix the upstream source.
type Validator struct{}

// Validate returns one Problem per failed rule for the given facility.
// Rules vary by facility type: mailing addresses only matter for
// cemeteries, classification is not required for vet centers, and VISN
// is required for health facilities and vet centers.
func (Validator) Validate(key domain.FacilityKey, attrs models.Attributes) []Problem {
	var problems []Problem
	add := func(description string) {
		problems = append(problems, Problem{FacilityID: key.String(), Description: description})
	}

	physical := attrs.Address.Physical
	if physical == nil || !zipPattern.MatchString(physical.Zip) {
		add("Missing or invalid physical address zip")
	}
	if physical == nil || physical.State == "" {
		add("Missing physical address state")
	}
	if physical == nil || physical.City == "" {
		add("Missing physical address city")
	}
	if physical == nil || platformstrings.AllBlank(physical.Address1, physical.Address2, physical.Address3) {
		add("Missing physical address street information")
	}

	if key.Type == domain.TypeCemetery {
		mailing := attrs.Address.Mailing
		if mailing == nil || !zipPattern.MatchString(mailing.Zip) {
			add("Missing or invalid mailing address zip")
		}
		if mailing == nil || mailing.State == "" {
			add("Missing mailing address state")
		}
		if mailing == nil || mailing.City == "" {
			add("Missing mailing address city")
		}
		if mailing == nil || platformstrings.AllBlank(mailing.Address1, mailing.Address2, mailing.Address3) {
			add("Missing mailing address street information")
		}
	}

	if attrs.Phone.Main == "" {
		add("Missing main phone number")
	}

	hours := attrs.Hours
	for _, day := range []struct {
		name  string
		value string
	}{
		{"Monday", hours.Monday},
		{"Tuesday", hours.Tuesday},
		{"Wednesday", hours.Wednesday},
		{"Thursday", hours.Thursday},
		{"Friday", hours.Friday},
		{"Saturday", hours.Saturday},
		{"Sunday", hours.Sunday},
	} {
		if day.value == "" {
			add(fmt.Sprintf("Missing hours %s", day.name))
		}
	}

	if key.Type != domain.TypeVetCenter && attrs.Classification == "" {
		add("Missing classification")
	}

	if attrs.Latitude == nil || *attrs.Latitude > 90 || *attrs.Latitude < -90 {
		add("Missing or invalid location latitude")
	}
	if attrs.Longitude == nil || *attrs.Longitude > 180 || *attrs.Longitude < -180 {
		add("Missing or invalid location longitude")
	}

	switch key.Type {
	case domain.TypeBenefits:
		if len(attrs.Services.Benefits) == 0 {
			add("Missing services")
		}
	case domain.TypeHealth:
		if len(attrs.Services.Health) == 0 {
			add("Missing services")
		}
	}

	if key.Type == domain.TypeHealth || key.Type == domain.TypeVetCenter {
		if attrs.Visn == "" {
			add("Missing VISN")
		}
	}

	return problems
}
