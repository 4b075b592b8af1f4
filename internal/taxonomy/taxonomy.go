// Package taxonomy is the fixed catalog of recognized facility services.
// It replaces free-floating service enums with a lookup table built once at
// init, resolvable by service id or by (case-insensitive) service name.
package taxonomy

import "strings"

// ServiceType buckets a service into one of the three catalogs.
type ServiceType string

const (
	TypeHealth   ServiceType = "Health"
	TypeBenefits ServiceType = "Benefits"
	TypeOther    ServiceType = "Other"
)

// ServiceInfo is the canonical triple for one recognized service.
type ServiceInfo struct {
	ServiceID string      `json:"serviceId"`
	Name      string      `json:"name"`
	Type      ServiceType `json:"serviceType"`
}

// Covid19VaccineID is special-cased throughout the overlay merge: it is the
// one detailed service surfaced on facility attributes and promoted into the
// health service list when active.
const Covid19VaccineID = "covid19Vaccine"

// covid19LegacyName is the human-readable display name used by legacy
// operator uploads. Both it and the canonical enum-style name resolve to
// Covid19VaccineID.
const covid19LegacyName = "COVID-19 vaccines"

type entry struct {
	info    ServiceInfo
	ordinal int
}

var (
	byID   = map[string]entry{}
	byName = map[string]entry{}
)

// catalog order is the canonical service ordering used when sorting merged
// service lists.
var catalog = []ServiceInfo{
	{"audiology", "Audiology", TypeHealth},
	{"cardiology", "Cardiology", TypeHealth},
	{"caregiverSupport", "CaregiverSupport", TypeHealth},
	{"covid19Vaccine", covid19LegacyName, TypeHealth},
	{"dentalServices", "DentalServices", TypeHealth},
	{"dermatology", "Dermatology", TypeHealth},
	{"emergencyCare", "EmergencyCare", TypeHealth},
	{"gastroenterology", "Gastroenterology", TypeHealth},
	{"gynecology", "Gynecology", TypeHealth},
	{"mentalHealthCare", "MentalHealthCare", TypeHealth},
	{"nutrition", "Nutrition", TypeHealth},
	{"ophthalmology", "Ophthalmology", TypeHealth},
	{"optometry", "Optometry", TypeHealth},
	{"orthopedics", "Orthopedics", TypeHealth},
	{"podiatry", "Podiatry", TypeHealth},
	{"primaryCare", "PrimaryCare", TypeHealth},
	{"specialtyCare", "SpecialtyCare", TypeHealth},
	{"urgentCare", "UrgentCare", TypeHealth},
	{"urology", "Urology", TypeHealth},
	{"womensHealth", "WomensHealth", TypeHealth},
	{"applyingForBenefits", "ApplyingForBenefits", TypeBenefits},
	{"burialClaimAssistance", "BurialClaimAssistance", TypeBenefits},
	{"disabilityClaimAssistance", "DisabilityClaimAssistance", TypeBenefits},
	{"eBenefitsRegistrationAssistance", "eBenefitsRegistrationAssistance", TypeBenefits},
	{"educationAndCareerCounseling", "EducationAndCareerCounseling", TypeBenefits},
	{"educationClaimAssistance", "EducationClaimAssistance", TypeBenefits},
	{"familyMemberClaimAssistance", "FamilyMemberClaimAssistance", TypeBenefits},
	{"homelessAssistance", "HomelessAssistance", TypeBenefits},
	{"homeLoanAssistance", "HomeLoanAssistance", TypeBenefits},
	{"insuranceClaimAssistanceAndFinancialCounseling", "InsuranceClaimAssistanceAndFinancialCounseling", TypeBenefits},
	{"pensions", "Pensions", TypeBenefits},
	{"transitionAssistance", "TransitionAssistance", TypeBenefits},
	{"updatingDirectDepositInformation", "UpdatingDirectDepositInformation", TypeBenefits},
	{"vocationalRehabilitationAndEmploymentAssistance", "VocationalRehabilitationAndEmploymentAssistance", TypeBenefits},
	{"onlineScheduling", "OnlineScheduling", TypeOther},
}

// covid19CanonicalName is the enum-style name kept as a synonym for the
// legacy display name above.
const covid19CanonicalName = "Covid19Vaccine"

func init() {
	for i, info := range catalog {
		e := entry{info: info, ordinal: i}
		byID[strings.ToLower(info.ServiceID)] = e
		byName[strings.ToLower(info.Name)] = e
	}
	byName[strings.ToLower(covid19CanonicalName)] = byID[strings.ToLower(Covid19VaccineID)]
}

// ResolveByID returns the canonical service info for a service id.
// Unknown ids resolve to (zero, false), never an error.
func ResolveByID(serviceID string) (ServiceInfo, bool) {
	e, ok := byID[strings.ToLower(strings.TrimSpace(serviceID))]
	if !ok {
		return ServiceInfo{}, false
	}
	return e.info, true
}

// ResolveByName returns the canonical service info for an exact canonical
// name, matched case-insensitively for backward compatibility with legacy
// free-text overlays.
func ResolveByName(name string) (ServiceInfo, bool) {
	e, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return ServiceInfo{}, false
	}
	return e.info, true
}

// IsRecognized reports whether a service id resolves in the catalog.
func IsRecognized(serviceID string) bool {
	_, ok := ResolveByID(serviceID)
	return ok
}

// Ordinal returns the canonical sort position for a service id. Unrecognized
// ids sort last.
func Ordinal(serviceID string) int {
	e, ok := byID[strings.ToLower(strings.TrimSpace(serviceID))]
	if !ok {
		return len(catalog)
	}
	return e.ordinal
}

// All returns the catalog in canonical order.
func All() []ServiceInfo {
	out := make([]ServiceInfo, len(catalog))
	copy(out, catalog)
	return out
}
