package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facreg/internal/facility/models"
	overlaymodels "facreg/internal/overlay/models"
	"facreg/internal/taxonomy"
)

func covidService(active bool) overlaymodels.DetailedService {
	info, _ := taxonomy.ResolveByID(taxonomy.Covid19VaccineID)
	return overlaymodels.DetailedService{Info: &info, Active: active}
}

func namedService(id string, active bool) overlaymodels.DetailedService {
	info, ok := taxonomy.ResolveByID(id)
	if !ok {
		return overlaymodels.DetailedService{Active: active}
	}
	return overlaymodels.DetailedService{Info: &info, Active: active}
}

func TestApplyWithoutOverlay(t *testing.T) {
	attrs := models.Attributes{
		ActiveStatus: models.ActiveStatusActive,
		Services:     models.Services{Health: []string{"primaryCare"}},
	}

	out := Apply(attrs, nil)

	require.NotNil(t, out.OperatingStatus)
	assert.Equal(t, overlaymodels.StatusNormal, out.OperatingStatus.Code)
	assert.Nil(t, out.DetailedServices)
	assert.Equal(t, []string{"primaryCare"}, out.Services.Health)
}

func TestApplyDefaultsClosedForTerminatedFacility(t *testing.T) {
	attrs := models.Attributes{ActiveStatus: models.ActiveStatusTerminated}

	out := Apply(attrs, nil)

	require.NotNil(t, out.OperatingStatus)
	assert.Equal(t, overlaymodels.StatusClosed, out.OperatingStatus.Code)
}

func TestApplyOverlayStatusWins(t *testing.T) {
	attrs := models.Attributes{ActiveStatus: models.ActiveStatusTerminated}
	ov := &overlaymodels.Overlay{
		OperatingStatus: &overlaymodels.OperatingStatus{
			Code:           overlaymodels.StatusNotice,
			AdditionalInfo: "Limited services",
		},
	}

	out := Apply(attrs, ov)

	require.NotNil(t, out.OperatingStatus)
	assert.Equal(t, overlaymodels.StatusNotice, out.OperatingStatus.Code)
	assert.Equal(t, "Limited services", out.OperatingStatus.AdditionalInfo)
}

func TestApplyPromotesActiveCovidIntoHealthServices(t *testing.T) {
	attrs := models.Attributes{
		ActiveStatus: models.ActiveStatusActive,
		Services:     models.Services{Health: []string{"primaryCare", "audiology"}},
	}
	ov := &overlaymodels.Overlay{
		DetailedServices: []overlaymodels.DetailedService{covidService(true)},
	}

	out := Apply(attrs, ov)

	// Canonical catalog order: audiology < covid19Vaccine < primaryCare.
	assert.Equal(t, []string{"audiology", taxonomy.Covid19VaccineID, "primaryCare"}, out.Services.Health)
	require.Len(t, out.DetailedServices, 1)
	assert.Equal(t, taxonomy.Covid19VaccineID, out.DetailedServices[0].ServiceID())
}

func TestApplyInactiveCovidIsNotPromoted(t *testing.T) {
	attrs := models.Attributes{
		ActiveStatus: models.ActiveStatusActive,
		Services:     models.Services{Health: []string{"primaryCare"}},
	}
	ov := &overlaymodels.Overlay{
		DetailedServices: []overlaymodels.DetailedService{covidService(false)},
	}

	out := Apply(attrs, ov)

	assert.Equal(t, []string{"primaryCare"}, out.Services.Health)
	// The COVID-19 entry itself stays visible even while inactive.
	require.Len(t, out.DetailedServices, 1)
	assert.False(t, out.DetailedServices[0].Active)
}

func TestApplyNarrowsDetailedServicesToCovid(t *testing.T) {
	ov := &overlaymodels.Overlay{
		DetailedServices: []overlaymodels.DetailedService{
			namedService("cardiology", true),
			covidService(true),
			{Active: true}, // unresolved legacy entry
		},
	}

	out := Apply(models.Attributes{ActiveStatus: models.ActiveStatusActive}, ov)

	require.Len(t, out.DetailedServices, 1)
	assert.Equal(t, taxonomy.Covid19VaccineID, out.DetailedServices[0].ServiceID())
}

func TestApplyDedupesAndSortsServices(t *testing.T) {
	attrs := models.Attributes{
		ActiveStatus: models.ActiveStatusActive,
		Services: models.Services{
			Health:   []string{"primaryCare", "audiology", "primaryCare", " cardiology "},
			Benefits: []string{"pensions", "applyingForBenefits"},
		},
	}
	ov := &overlaymodels.Overlay{
		DetailedServices: []overlaymodels.DetailedService{covidService(true)},
	}

	out := Apply(attrs, ov)

	assert.Equal(t, []string{"audiology", "cardiology", taxonomy.Covid19VaccineID, "primaryCare"}, out.Services.Health)
	assert.Equal(t, []string{"applyingForBenefits", "pensions"}, out.Services.Benefits)
}

func TestApplyIsIdempotent(t *testing.T) {
	attrs := models.Attributes{
		ActiveStatus: models.ActiveStatusActive,
		Services:     models.Services{Health: []string{"primaryCare"}},
	}
	ov := &overlaymodels.Overlay{
		OperatingStatus:  &overlaymodels.OperatingStatus{Code: overlaymodels.StatusNotice},
		DetailedServices: []overlaymodels.DetailedService{covidService(true)},
	}

	once := Apply(attrs, ov)
	twice := Apply(once, ov)

	assert.Equal(t, once, twice)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	attrs := models.Attributes{
		ActiveStatus: models.ActiveStatusActive,
		Services:     models.Services{Health: []string{"primaryCare"}},
	}
	ov := &overlaymodels.Overlay{
		DetailedServices: []overlaymodels.DetailedService{covidService(true)},
	}

	_ = Apply(attrs, ov)

	assert.Equal(t, []string{"primaryCare"}, attrs.Services.Health)
	assert.Nil(t, attrs.OperatingStatus)
}

func TestActiveServiceIDs(t *testing.T) {
	ov := &overlaymodels.Overlay{
		DetailedServices: []overlaymodels.DetailedService{
			namedService("primaryCare", true),
			namedService("cardiology", false),
			covidService(true),
			{Active: true}, // unresolved legacy entry
		},
	}

	assert.Equal(t, []string{taxonomy.Covid19VaccineID, "primaryCare"}, ActiveServiceIDs(ov))
	assert.Nil(t, ActiveServiceIDs(nil))
}
