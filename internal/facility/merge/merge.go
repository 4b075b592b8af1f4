// Package merge layers an administrator overlay onto collected facility
// attributes, producing the externally visible attribute set. Both the read
// path and the reconciliation path call Apply so the two can never drift.
package merge

import (
	"sort"

	"facreg/internal/facility/models"
	overlaymodels "facreg/internal/overlay/models"
	"facreg/internal/taxonomy"
	pstrings "facreg/pkg/platform/strings"
)

// Apply is pure and idempotent: it never touches I/O, and applying it twice
// to the same (attrs, overlay) pair yields identical output.
//
// Rules, in order:
//  1. Operating status comes from the overlay when supplied, otherwise it is
//     defaulted from the active/closed flag.
//  2. Visible detailed services are the overlay's entries with a resolved
//     service info, narrowed to the COVID-19 entry; other overlay services
//     surface only through the generic service list.
//  3. An active COVID-19 overlay service is promoted into the health service
//     list even when absent from collected data; the list is deduplicated
//     and sorted in canonical catalog order.
func Apply(attrs models.Attributes, ov *overlaymodels.Overlay) models.Attributes {
	out := attrs

	out.OperatingStatus = operatingStatus(attrs, ov)
	out.DetailedServices = visibleDetailedServices(ov)

	health := append([]string(nil), attrs.Services.Health...)
	if covidActive(ov) {
		health = append(health, taxonomy.Covid19VaccineID)
	}
	out.Services.Health = sortCanonical(pstrings.DedupeAndTrim(health))
	out.Services.Benefits = sortCanonical(pstrings.DedupeAndTrim(attrs.Services.Benefits))
	out.Services.Other = sortCanonical(pstrings.DedupeAndTrim(attrs.Services.Other))
	return out
}

// ActiveServiceIDs returns the materialized set of active, recognized
// overlay service ids in canonical order.
func ActiveServiceIDs(ov *overlaymodels.Overlay) []string {
	if ov == nil {
		return nil
	}
	var ids []string
	for _, ds := range ov.DetailedServices {
		if ds.Info != nil && ds.Active {
			ids = append(ids, ds.Info.ServiceID)
		}
	}
	return sortCanonical(pstrings.DedupeAndTrim(ids))
}

func operatingStatus(attrs models.Attributes, ov *overlaymodels.Overlay) *overlaymodels.OperatingStatus {
	if ov != nil && ov.OperatingStatus != nil {
		status := *ov.OperatingStatus
		return &status
	}
	code := overlaymodels.StatusNormal
	if attrs.ActiveStatus == models.ActiveStatusTerminated {
		code = overlaymodels.StatusClosed
	}
	return &overlaymodels.OperatingStatus{Code: code}
}

// visibleDetailedServices filters out legacy entries whose service never
// resolved, then keeps only the COVID-19 block.
func visibleDetailedServices(ov *overlaymodels.Overlay) []overlaymodels.DetailedService {
	if ov == nil {
		return nil
	}
	var out []overlaymodels.DetailedService
	for _, ds := range ov.DetailedServices {
		if ds.Info == nil {
			continue
		}
		if ds.Info.ServiceID == taxonomy.Covid19VaccineID {
			out = append(out, ds)
		}
	}
	return out
}

func covidActive(ov *overlaymodels.Overlay) bool {
	if ov == nil {
		return false
	}
	for _, ds := range ov.DetailedServices {
		if ds.Info != nil && ds.Info.ServiceID == taxonomy.Covid19VaccineID {
			return ds.Active
		}
	}
	return false
}

func sortCanonical(ids []string) []string {
	sort.SliceStable(ids, func(i, j int) bool {
		oi, oj := taxonomy.Ordinal(ids[i]), taxonomy.Ordinal(ids[j])
		if oi != oj {
			return oi < oj
		}
		return ids[i] < ids[j]
	})
	return ids
}
