// Package store persists administrator overlays keyed by FacilityKey. The
// stores are pure I/O; partial-upsert and node-delete semantics live in the
// overlay service.
package store

import (
	"context"
	"sync"

	"facreg/internal/overlay/models"
	"facreg/pkg/domain"
)

// InMemoryStore is the map-backed overlay store. Writes are last-writer-wins;
// reads may run concurrently with administrator writes.
type InMemoryStore struct {
	mu       sync.RWMutex
	overlays map[domain.FacilityKey]models.Overlay
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{overlays: make(map[domain.FacilityKey]models.Overlay)}
}

func (s *InMemoryStore) Get(_ context.Context, key domain.FacilityKey) (*models.Overlay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ov, ok := s.overlays[key]
	if !ok {
		return nil, nil
	}
	out := cloneOverlay(ov)
	return &out, nil
}

func (s *InMemoryStore) Save(_ context.Context, ov models.Overlay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlays[ov.Key] = cloneOverlay(ov)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key domain.FacilityKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overlays, key)
	return nil
}

func (s *InMemoryStore) All(_ context.Context) ([]models.Overlay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Overlay, 0, len(s.overlays))
	for _, ov := range s.overlays {
		out = append(out, cloneOverlay(ov))
	}
	return out, nil
}

// cloneOverlay preserves the nil-versus-empty distinction on the detailed
// services node; that distinction carries partial-upsert semantics.
func cloneOverlay(ov models.Overlay) models.Overlay {
	out := ov
	if ov.OperatingStatus != nil {
		status := *ov.OperatingStatus
		out.OperatingStatus = &status
	}
	if ov.DetailedServices != nil {
		out.DetailedServices = append(ov.DetailedServices[:0:0], ov.DetailedServices...)
	}
	out.ActiveServiceIDs = append([]string(nil), ov.ActiveServiceIDs...)
	return out
}
