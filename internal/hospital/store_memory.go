package hospital

import (
	"context"
	"sync"

	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemoryStore keeps hospitals in a map behind a RWMutex. It favors clarity
// over performance; the radius query is a linear haversine scan.
type InMemoryStore struct {
	mu        sync.RWMutex
	hospitals map[id.HospitalID]*Hospital
	licenses  map[string]id.HospitalID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		hospitals: make(map[id.HospitalID]*Hospital),
		licenses:  make(map[string]id.HospitalID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, h *Hospital) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.licenses[h.LicenseID]; taken {
		return sentinel.ErrConflict
	}
	cp := *h
	s.hospitals[h.ID] = &cp
	s.licenses[h.LicenseID] = h.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, hospitalID id.HospitalID) (*Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hospitals[hospitalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (s *InMemoryStore) Update(_ context.Context, h *Hospital) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.hospitals[h.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if h.LicenseID != existing.LicenseID {
		if owner, taken := s.licenses[h.LicenseID]; taken && owner != h.ID {
			return sentinel.ErrConflict
		}
		delete(s.licenses, existing.LicenseID)
		s.licenses[h.LicenseID] = h.ID
	}
	cp := *h
	s.hospitals[h.ID] = &cp
	return nil
}

func (s *InMemoryStore) ListWithinRadius(_ context.Context, origin id.Point, radiusKm float64) ([]*Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Hospital
	for _, h := range s.hospitals {
		if origin.WithinKm(h.Location, radiusKm) {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}
