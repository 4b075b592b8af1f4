package models

import (
	"encoding/json"

	"facreg/internal/taxonomy"
)

// rawDetailedService is the wire shape for a detailed service. Legacy
// operator uploads predate the serviceInfo block and carry only a serviceId
// or a free-text name at the top level; deserialization is therefore two
// stage: decode the raw shape, then resolve it through the taxonomy. Entries
// that resolve nowhere end up with a nil Info.
type rawDetailedService struct {
	ServiceInfo    *rawServiceInfo `json:"serviceInfo"`
	ServiceID      string          `json:"serviceId"`
	ServiceIDSnake string          `json:"service_id"`
	Name           string          `json:"name"`

	Active                    bool               `json:"active"`
	AppointmentLeadIn         string             `json:"appointment_leadin"`
	OnlineSchedulingAvailable string             `json:"online_scheduling_available"`
	Path                      string             `json:"path"`
	AppointmentPhones         []AppointmentPhone `json:"appointment_phones"`
	ReferralRequired          string             `json:"referral_required"`
	WalkInsAccepted           string             `json:"walk_ins_accepted"`
	ServiceLocations          []ServiceLocation  `json:"service_locations"`
}

type rawServiceInfo struct {
	ServiceID string `json:"serviceId"`
	Name      string `json:"name"`
}

// UnmarshalJSON decodes both the current serviceInfo-block format and the
// legacy flat format, resolving the canonical service through the taxonomy.
func (d *DetailedService) UnmarshalJSON(data []byte) error {
	var raw rawDetailedService
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*d = DetailedService{
		Info:                      resolveServiceInfo(raw),
		Active:                    raw.Active,
		AppointmentLeadIn:         raw.AppointmentLeadIn,
		OnlineSchedulingAvailable: raw.OnlineSchedulingAvailable,
		Path:                      raw.Path,
		AppointmentPhones:         raw.AppointmentPhones,
		ReferralRequired:          raw.ReferralRequired,
		WalkInsAccepted:           raw.WalkInsAccepted,
		ServiceLocations:          raw.ServiceLocations,
	}
	return nil
}

func resolveServiceInfo(raw rawDetailedService) *taxonomy.ServiceInfo {
	candidates := []func() (taxonomy.ServiceInfo, bool){}
	if raw.ServiceInfo != nil {
		if raw.ServiceInfo.ServiceID != "" {
			candidates = append(candidates, func() (taxonomy.ServiceInfo, bool) {
				return taxonomy.ResolveByID(raw.ServiceInfo.ServiceID)
			})
		}
		if raw.ServiceInfo.Name != "" {
			candidates = append(candidates, func() (taxonomy.ServiceInfo, bool) {
				return taxonomy.ResolveByName(raw.ServiceInfo.Name)
			})
		}
	}
	if raw.ServiceID != "" {
		candidates = append(candidates, func() (taxonomy.ServiceInfo, bool) {
			return taxonomy.ResolveByID(raw.ServiceID)
		})
	}
	if raw.ServiceIDSnake != "" {
		candidates = append(candidates, func() (taxonomy.ServiceInfo, bool) {
			return taxonomy.ResolveByID(raw.ServiceIDSnake)
		})
	}
	if raw.Name != "" {
		candidates = append(candidates, func() (taxonomy.ServiceInfo, bool) {
			return taxonomy.ResolveByName(raw.Name)
		})
	}
	for _, resolve := range candidates {
		if info, ok := resolve(); ok {
			return &info
		}
	}
	return nil
}
