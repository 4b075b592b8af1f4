// Package service implements administrator overlay operations: partial
// upsert, node deletion, and projection of overlay data onto the live
// facility row.
package service

import (
	"context"
	"log/slog"

	"facreg/internal/facility/cache"
	"facreg/internal/facility/merge"
	facilitymodels "facreg/internal/facility/models"
	"facreg/internal/overlay/models"
	"facreg/internal/platform/metrics"
	"facreg/pkg/domain"
	dErrors "facreg/pkg/domain-errors"
	pstrings "facreg/pkg/platform/strings"
)

// OverlayStore is the persistence boundary for overlays.
type OverlayStore interface {
	Get(ctx context.Context, key domain.FacilityKey) (*models.Overlay, error)
	Save(ctx context.Context, ov models.Overlay) error
	Delete(ctx context.Context, key domain.FacilityKey) error
}

// FacilityStore is the slice of the live facility store the overlay service
// needs for projection.
type FacilityStore interface {
	Get(ctx context.Context, key domain.FacilityKey) (*facilitymodels.FacilityRecord, error)
	Save(ctx context.Context, rec facilitymodels.FacilityRecord) error
}

// Service orchestrates overlay administration. Overlay writes are
// last-writer-wins; no optimistic locking.
type Service struct {
	overlays   OverlayStore
	facilities FacilityStore
	cache      *cache.Cache
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func New(overlays OverlayStore, facilities FacilityStore, c *cache.Cache, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{overlays: overlays, facilities: facilities, cache: c, logger: logger, metrics: m}
}

// Get returns the stored overlay with unrecognized legacy services filtered
// out of the detailed-services node.
func (s *Service) Get(ctx context.Context, key domain.FacilityKey) (*models.Overlay, error) {
	ov, err := s.overlays.Get(ctx, key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load overlay")
	}
	if ov == nil {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no overlay for facility %s", key)
	}
	if ov.DetailedServices != nil {
		ov.DetailedServices = recognizedOnly(ov.DetailedServices)
	}
	return ov, nil
}

// Upsert applies a partial overlay update. Only fields present in the patch
// replace stored nodes; omission never erases existing data. Detailed
// services whose id does not resolve in the taxonomy are silently dropped.
// The second return reports whether a live facility row existed and was
// re-projected.
func (s *Service) Upsert(ctx context.Context, key domain.FacilityKey, patch models.Patch) (bool, error) {
	existing, err := s.overlays.Get(ctx, key)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "load overlay")
	}

	var ov models.Overlay
	if existing != nil {
		ov = *existing
	}
	ov.Key = key
	if patch.OperatingStatus != nil {
		status := *patch.OperatingStatus
		ov.OperatingStatus = &status
	}
	if patch.DetailedServices != nil {
		supplied := recognizedOnly(*patch.DetailedServices)
		if supplied == nil {
			// Supplied-but-empty stays distinguishable from absent.
			supplied = []models.DetailedService{}
		}
		ov.DetailedServices = supplied
	}
	ov.ActiveServiceIDs = merge.ActiveServiceIDs(&ov)

	if err := s.overlays.Save(ctx, ov); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "save overlay")
	}
	if s.metrics != nil {
		s.metrics.OverlayUpserts.Inc()
	}

	projected, err := s.project(ctx, key, &ov)
	if err != nil {
		return false, err
	}
	if !projected {
		s.logger.InfoContext(ctx, "overlay stored for unknown facility", "facility_id", key.String())
	}
	return projected, nil
}

// DeleteNode clears exactly the requested overlay node. Deleting a node that
// is already empty, or an overlay that does not exist, is a no-op success;
// the first return distinguishes a real deletion from a no-op. When both
// nodes end up empty the overlay row is deleted.
func (s *Service) DeleteNode(ctx context.Context, key domain.FacilityKey, node models.Node) (bool, error) {
	existing, err := s.overlays.Get(ctx, key)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "load overlay")
	}
	if existing == nil {
		s.logger.InfoContext(ctx, "overlay does not exist, ignoring delete", "facility_id", key.String())
		return false, nil
	}

	ov := *existing
	switch node {
	case models.NodeAll:
		ov.OperatingStatus = nil
		ov.DetailedServices = nil
	case models.NodeOperatingStatus:
		if ov.OperatingStatus == nil {
			s.logger.InfoContext(ctx, "overlay has no operating status, ignoring delete", "facility_id", key.String())
			return false, nil
		}
		ov.OperatingStatus = nil
	case models.NodeDetailedServices:
		if ov.DetailedServices == nil {
			s.logger.InfoContext(ctx, "overlay has no detailed services, ignoring delete", "facility_id", key.String())
			return false, nil
		}
		ov.DetailedServices = nil
	default:
		return false, dErrors.Newf(dErrors.CodeNotFound, "unknown overlay node: %s", node)
	}
	ov.ActiveServiceIDs = merge.ActiveServiceIDs(&ov)

	if ov.IsEmpty() {
		if err := s.overlays.Delete(ctx, key); err != nil {
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "delete overlay")
		}
	} else {
		if err := s.overlays.Save(ctx, ov); err != nil {
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "save overlay")
		}
	}

	if _, err := s.project(ctx, key, &ov); err != nil {
		return false, err
	}
	return true, nil
}

// project re-applies the overlay onto the live facility row, if one exists,
// with the same merge used by the read and reconciliation paths.
func (s *Service) project(ctx context.Context, key domain.FacilityKey, ov *models.Overlay) (bool, error) {
	rec, err := s.facilities.Get(ctx, key)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "load facility")
	}
	if rec == nil {
		return false, nil
	}

	rec.Attributes = merge.Apply(rec.Attributes, ov)
	rec.OverlayServices = ov.ActiveServiceIDs
	rec.Services = pstrings.DedupeAndTrim(rec.Attributes.Services.All())
	if err := s.facilities.Save(ctx, *rec); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "save facility")
	}
	s.cache.Invalidate(ctx, key)
	return true, nil
}

func recognizedOnly(services []models.DetailedService) []models.DetailedService {
	var out []models.DetailedService
	for _, ds := range services {
		if ds.Info != nil {
			out = append(out, ds)
		}
	}
	return out
}
