package donor

import (
	"context"
	"sync"

	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemoryStore keeps donors in a map behind a RWMutex.
type InMemoryStore struct {
	mu     sync.RWMutex
	donors map[id.DonorID]*Donor
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{donors: make(map[id.DonorID]*Donor)}
}

func (s *InMemoryStore) Create(_ context.Context, d *Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.donors[d.ID]; exists {
		return sentinel.ErrConflict
	}
	s.donors[d.ID] = cloneDonor(d)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, donorID id.DonorID) (*Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donors[donorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneDonor(d), nil
}

func (s *InMemoryStore) Update(_ context.Context, d *Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donors[d.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.donors[d.ID] = cloneDonor(d)
	return nil
}

func (s *InMemoryStore) ListByBloodGroup(_ context.Context, group id.BloodGroup) ([]*Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Donor
	for _, d := range s.donors {
		if d.BloodGroup == group {
			out = append(out, cloneDonor(d))
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByBloodGroupWithin(_ context.Context, group id.BloodGroup, origin id.Point, radiusKm float64) ([]*Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Donor
	for _, d := range s.donors {
		if d.BloodGroup != group || d.Location == nil {
			continue
		}
		if origin.WithinKm(d.Location.Point, radiusKm) {
			out = append(out, cloneDonor(d))
		}
	}
	return out, nil
}

func cloneDonor(d *Donor) *Donor {
	cp := *d
	if d.Location != nil {
		loc := *d.Location
		cp.Location = &loc
	}
	return &cp
}
