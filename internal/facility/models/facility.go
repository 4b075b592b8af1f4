// Package models defines the canonical facility record and its attribute
// payload as collected from upstream sources.
package models

import (
	"time"

	overlaymodels "facreg/internal/overlay/models"
	"facreg/pkg/domain"
)

// ActiveStatus mirrors the upstream active/closed flag.
type ActiveStatus string

const (
	ActiveStatusActive     ActiveStatus = "A"
	ActiveStatusTerminated ActiveStatus = "T"
)

// Address is a physical or mailing address.
type Address struct {
	Address1 string `json:"address_1,omitempty"`
	Address2 string `json:"address_2,omitempty"`
	Address3 string `json:"address_3,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Zip      string `json:"zip,omitempty"`
}

// Addresses groups the physical and (cemetery-only) mailing addresses.
type Addresses struct {
	Physical *Address `json:"physical,omitempty"`
	Mailing  *Address `json:"mailing,omitempty"`
}

// Phone holds the facility contact numbers.
type Phone struct {
	Main                  string `json:"main,omitempty"`
	Fax                   string `json:"fax,omitempty"`
	AfterHours            string `json:"after_hours,omitempty"`
	PatientAdvocate       string `json:"patient_advocate,omitempty"`
	EnrollmentCoordinator string `json:"enrollment_coordinator,omitempty"`
	Pharmacy              string `json:"pharmacy,omitempty"`
}

// Hours are free-text per-weekday operating hours.
type Hours struct {
	Monday    string `json:"monday,omitempty"`
	Tuesday   string `json:"tuesday,omitempty"`
	Wednesday string `json:"wednesday,omitempty"`
	Thursday  string `json:"thursday,omitempty"`
	Friday    string `json:"friday,omitempty"`
	Saturday  string `json:"saturday,omitempty"`
	Sunday    string `json:"sunday,omitempty"`
}

// Services carries the canonical service-id tags per catalog. These are
// derived from upstream data plus overlay promotion, never independently
// authoritative.
type Services struct {
	Health   []string `json:"health,omitempty"`
	Benefits []string `json:"benefits,omitempty"`
	Other    []string `json:"other,omitempty"`
}

// All returns every tagged service id across the three catalogs.
func (s Services) All() []string {
	out := make([]string, 0, len(s.Health)+len(s.Benefits)+len(s.Other))
	out = append(out, s.Health...)
	out = append(out, s.Benefits...)
	out = append(out, s.Other...)
	return out
}

// Attributes is the full versioned facility payload snapshot.
type Attributes struct {
	Name           string   `json:"name,omitempty"`
	Classification string   `json:"classification,omitempty"`
	Website        string   `json:"website,omitempty"`
	Latitude       *float64 `json:"lat,omitempty"`
	Longitude      *float64 `json:"long,omitempty"`

	Address Addresses `json:"address"`
	Phone   Phone     `json:"phone"`
	Hours   Hours     `json:"hours"`

	OperationalHoursSpecialInstructions string `json:"operational_hours_special_instructions,omitempty"`

	Services     Services     `json:"services"`
	ActiveStatus ActiveStatus `json:"active_status,omitempty"`
	Visn         string       `json:"visn,omitempty"`
	Mobile       *bool        `json:"mobile,omitempty"`

	// Operator-authored fields projected from the overlay.
	OperatingStatus  *overlaymodels.OperatingStatus  `json:"operating_status,omitempty"`
	DetailedServices []overlaymodels.DetailedService `json:"detailed_services,omitempty"`
}

// CollectedFacility is one normalized upstream record before identity
// parsing. The raw id is kept as a string so reconciliation can record a
// problem for ids that do not parse into a FacilityKey.
type CollectedFacility struct {
	ID         string     `json:"id"`
	Attributes Attributes `json:"attributes"`
}

// FacilityRecord is the canonical registry row for one facility: flattened
// query columns, the attribute snapshot, and lifecycle metadata.
// MissingSince is nil while the facility is present in the latest
// reconciliation and is set exactly once when it first disappears.
type FacilityRecord struct {
	Key       domain.FacilityKey `json:"id"`
	Latitude  float64            `json:"latitude"`
	Longitude float64            `json:"longitude"`
	State     string             `json:"state,omitempty"`
	Zip       string             `json:"zip,omitempty"`
	Visn      string             `json:"visn,omitempty"`
	Mobile    bool               `json:"mobile,omitempty"`

	// Services is the derived set of canonical service-id tags.
	Services []string `json:"services,omitempty"`
	// OverlayServices is the materialized set of active overlay service ids.
	OverlayServices []string `json:"overlay_services,omitempty"`

	Attributes Attributes `json:"attributes"`

	LastUpdated  time.Time  `json:"last_updated"`
	MissingSince *time.Time `json:"missing_since,omitempty"`
}

// GraveyardRecord is a facility stripped of currency fields after exceeding
// the missing grace window. Only the overlay-authored fields survive a later
// revival.
type GraveyardRecord struct {
	Key              domain.FacilityKey              `json:"id"`
	Attributes       Attributes                      `json:"attributes"`
	OperatingStatus  *overlaymodels.OperatingStatus  `json:"operating_status,omitempty"`
	DetailedServices []overlaymodels.DetailedService `json:"detailed_services,omitempty"`
	OverlayServices  []string                        `json:"overlay_services,omitempty"`
	MissingSince     time.Time                       `json:"missing_since"`
	MovedAt          time.Time                       `json:"moved_at"`
}
