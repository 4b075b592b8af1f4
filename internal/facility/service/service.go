// Package service implements the facility read API: single-record reads
// through the optional cache and filtered, paged listing.
package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"facreg/internal/facility/cache"
	"facreg/internal/facility/models"
	"facreg/pkg/domain"
	dErrors "facreg/pkg/domain-errors"
)

// Store is the registry as the read path needs it.
type Store interface {
	Get(ctx context.Context, key domain.FacilityKey) (*models.FacilityRecord, error)
	All(ctx context.Context) ([]models.FacilityRecord, error)
}

// Filter narrows a facility listing. Zero values match everything.
type Filter struct {
	Type  domain.FacilityType
	State string
	Visn  string
}

// Page selects a listing window. Page numbers start at 1.
type Page struct {
	Number  int
	PerPage int
}

const (
	defaultPerPage = 20
	maxPerPage     = 1000
)

// Service serves merged facility records. Records already hold the
// overlay-merged attribute form; no merge happens at read time.
type Service struct {
	store  Store
	cache  *cache.Cache
	logger *slog.Logger
}

func New(store Store, c *cache.Cache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: c, logger: logger}
}

// Get returns one facility by canonical id.
func (s *Service) Get(ctx context.Context, key domain.FacilityKey) (*models.FacilityRecord, error) {
	if rec := s.cache.Get(ctx, key); rec != nil {
		return rec, nil
	}
	rec, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load facility")
	}
	if rec == nil {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "facility %s not found", key)
	}
	s.cache.Set(ctx, *rec)
	return rec, nil
}

// List returns the requested page of matching facilities in canonical id
// order, plus the total match count for pagination.
func (s *Service) List(ctx context.Context, filter Filter, page Page) ([]models.FacilityRecord, int, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "list facilities")
	}

	matched := make([]models.FacilityRecord, 0, len(all))
	for _, rec := range all {
		if filter.Type != "" && rec.Key.Type != filter.Type {
			continue
		}
		if filter.State != "" && !strings.EqualFold(rec.State, filter.State) {
			continue
		}
		if filter.Visn != "" && rec.Visn != filter.Visn {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Key.String() < matched[j].Key.String()
	})

	total := len(matched)
	number, perPage := page.Number, page.PerPage
	if number < 1 {
		number = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	lo := (number - 1) * perPage
	if lo >= total {
		return []models.FacilityRecord{}, total, nil
	}
	hi := lo + perPage
	if hi > total {
		hi = total
	}
	return matched[lo:hi], total, nil
}
