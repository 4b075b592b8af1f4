// Package models defines the administrator overlay: operator-authored
// corrections layered onto collected facility data.
package models

import (
	"fmt"
	"strings"

	"facreg/internal/taxonomy"
	"facreg/pkg/domain"
)

// OperatingStatusCode is the operator-declared status of a facility.
type OperatingStatusCode string

const (
	StatusNormal OperatingStatusCode = "NORMAL"
	StatusNotice OperatingStatusCode = "NOTICE"
	StatusClosed OperatingStatusCode = "CLOSED"
)

// ParseOperatingStatusCode validates a status code.
func ParseOperatingStatusCode(s string) (OperatingStatusCode, error) {
	c := OperatingStatusCode(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case StatusNormal, StatusNotice, StatusClosed:
		return c, nil
	}
	return "", fmt.Errorf("unknown operating status code: %s", s)
}

// OperatingStatus is the operator-supplied status node of an overlay.
type OperatingStatus struct {
	Code           OperatingStatusCode `json:"code"`
	AdditionalInfo string              `json:"additional_info,omitempty"`
}

// AppointmentPhone is a contact number attached to a detailed service.
type AppointmentPhone struct {
	Extension string `json:"extension,omitempty"`
	Label     string `json:"label,omitempty"`
	Number    string `json:"number,omitempty"`
	Type      string `json:"type,omitempty"`
}

// ServiceAddress locates a detailed service within a facility.
type ServiceAddress struct {
	BuildingNameNumber    string `json:"building_name_number,omitempty"`
	ClinicName            string `json:"clinic_name,omitempty"`
	WingFloorOrRoomNumber string `json:"wing_floor_or_room_number,omitempty"`
	Address1              string `json:"address_line1,omitempty"`
	Address2              string `json:"address_line2,omitempty"`
	City                  string `json:"city,omitempty"`
	State                 string `json:"state,omitempty"`
	ZipCode               string `json:"zip_code,omitempty"`
	CountryCode           string `json:"country_code,omitempty"`
}

// ServiceHours are free-text per-day hours for a service location.
type ServiceHours struct {
	Monday    string `json:"Monday,omitempty"`
	Tuesday   string `json:"Tuesday,omitempty"`
	Wednesday string `json:"Wednesday,omitempty"`
	Thursday  string `json:"Thursday,omitempty"`
	Friday    string `json:"Friday,omitempty"`
	Saturday  string `json:"Saturday,omitempty"`
	Sunday    string `json:"Sunday,omitempty"`
}

// EmailContact is a labeled email address for a service location.
type EmailContact struct {
	EmailAddress string `json:"email_address,omitempty"`
	EmailLabel   string `json:"email_label,omitempty"`
}

// ServiceLocation describes where and when a detailed service is offered.
type ServiceLocation struct {
	AdditionalHoursInfo string             `json:"additional_hours_info,omitempty"`
	EmailContacts       []EmailContact     `json:"email_contacts,omitempty"`
	Hours               *ServiceHours      `json:"facility_service_hours,omitempty"`
	AppointmentPhones   []AppointmentPhone `json:"appointment_phones,omitempty"`
	Address             *ServiceAddress    `json:"service_location_address,omitempty"`
}

// DetailedService is a rich service record beyond the simple service-tag
// list. Info is nil when a legacy payload named a service the taxonomy does
// not recognize; such entries are dropped on ingestion and filtered out of
// every merged view.
type DetailedService struct {
	Info                      *taxonomy.ServiceInfo `json:"serviceInfo"`
	Active                    bool                  `json:"active"`
	AppointmentLeadIn         string                `json:"appointment_leadin,omitempty"`
	OnlineSchedulingAvailable string                `json:"online_scheduling_available,omitempty"`
	Path                      string                `json:"path,omitempty"`
	AppointmentPhones         []AppointmentPhone    `json:"appointment_phones,omitempty"`
	ReferralRequired          string                `json:"referral_required,omitempty"`
	WalkInsAccepted           string                `json:"walk_ins_accepted,omitempty"`
	ServiceLocations          []ServiceLocation     `json:"service_locations,omitempty"`
}

// ServiceID returns the resolved service id, or "" for unresolved legacy
// entries.
func (d DetailedService) ServiceID() string {
	if d.Info == nil {
		return ""
	}
	return d.Info.ServiceID
}

// Overlay is the persisted administrator overlay for one facility.
// DetailedServices is nil when the node was never supplied; an empty non-nil
// slice means the node was supplied and cleared.
type Overlay struct {
	Key              domain.FacilityKey `json:"-"`
	OperatingStatus  *OperatingStatus   `json:"operating_status,omitempty"`
	DetailedServices []DetailedService  `json:"detailed_services,omitempty"`
	ActiveServiceIDs []string           `json:"active_service_ids,omitempty"`
}

// IsEmpty reports whether both nodes are absent; empty overlays are deleted
// rather than persisted.
func (o Overlay) IsEmpty() bool {
	return o.OperatingStatus == nil && o.DetailedServices == nil
}

// Patch is a partial overlay update. A nil field means "not supplied, leave
// the stored node alone"; DetailedServices pointing at an empty slice means
// "supplied and empty", which clears the node.
type Patch struct {
	OperatingStatus  *OperatingStatus   `json:"operating_status,omitempty"`
	DetailedServices *[]DetailedService `json:"detailed_services,omitempty"`
}

// Node selects which part of an overlay a delete targets.
type Node string

const (
	NodeAll              Node = "all"
	NodeOperatingStatus  Node = "operating_status"
	NodeDetailedServices Node = "detailed_services"
)

// ParseNode validates a node name from a request path.
func ParseNode(s string) (Node, error) {
	n := Node(strings.ToLower(strings.TrimSpace(s)))
	switch n {
	case NodeAll, NodeOperatingStatus, NodeDetailedServices:
		return n, nil
	}
	return "", fmt.Errorf("unknown overlay node: %s", s)
}
