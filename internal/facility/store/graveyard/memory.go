// Package graveyard persists facilities soft-deleted after exceeding the
// missing grace window.
package graveyard

import (
	"context"
	"sync"

	"facreg/internal/facility/models"
	"facreg/pkg/domain"
)

// InMemoryStore is the map-backed graveyard used by unit tests and local
// runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.FacilityKey]models.GraveyardRecord
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[domain.FacilityKey]models.GraveyardRecord)}
}

func (s *InMemoryStore) Get(_ context.Context, key domain.FacilityKey) (*models.GraveyardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (s *InMemoryStore) Save(_ context.Context, rec models.GraveyardRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key] = rec
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key domain.FacilityKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *InMemoryStore) All(_ context.Context) ([]models.GraveyardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.GraveyardRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}
