// Package facility persists live facility records keyed by FacilityKey.
package facility

import (
	"context"
	"sync"

	"facreg/internal/facility/models"
	"facreg/pkg/domain"
)

// InMemoryStore is the map-backed store used by unit tests and local runs.
// It is safe for concurrent upsert-by-key.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.FacilityKey]models.FacilityRecord
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[domain.FacilityKey]models.FacilityRecord)}
}

func (s *InMemoryStore) Get(_ context.Context, key domain.FacilityKey) (*models.FacilityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (s *InMemoryStore) Save(_ context.Context, rec models.FacilityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key] = cloneRecord(rec)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key domain.FacilityKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *InMemoryStore) AllKeys(_ context.Context) ([]domain.FacilityKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]domain.FacilityKey, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *InMemoryStore) All(_ context.Context) ([]models.FacilityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FacilityRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

// cloneRecord copies the record deeply enough that callers cannot mutate
// stored state through shared slices.
func cloneRecord(rec models.FacilityRecord) models.FacilityRecord {
	out := rec
	out.Services = append([]string(nil), rec.Services...)
	out.OverlayServices = append([]string(nil), rec.OverlayServices...)
	out.Attributes = cloneAttributes(rec.Attributes)
	if rec.MissingSince != nil {
		ms := *rec.MissingSince
		out.MissingSince = &ms
	}
	return out
}

func cloneAttributes(a models.Attributes) models.Attributes {
	out := a
	out.Services.Health = append([]string(nil), a.Services.Health...)
	out.Services.Benefits = append([]string(nil), a.Services.Benefits...)
	out.Services.Other = append([]string(nil), a.Services.Other...)
	out.DetailedServices = append(out.DetailedServices[:0:0], a.DetailedServices...)
	return out
}
