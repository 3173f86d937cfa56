package request

import (
	"context"
	"sort"
	"sync"

	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemoryStore is the map-backed store for tests and single-node runs.
//
// One mutex guards the whole map. Execute holds it across validate and
// mutate, which is what makes concurrent accepts on the same request safe:
// the second accept observes the first one's append before validating.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*Request
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.RequestID]*Request)}
}

func (s *InMemoryStore) Create(_ context.Context, r *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; ok {
		return sentinel.ErrConflict
	}
	s.requests[r.ID] = r.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID id.RequestID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *InMemoryStore) Execute(_ context.Context, requestID id.RequestID, validate func(*Request) error, mutate func(*Request)) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	mutate(r)
	return r.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, r *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.requests[r.ID] = r.Clone()
	return nil
}

func (s *InMemoryStore) FindActiveByDonor(_ context.Context, donorID id.DonorID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.requests {
		if r.Status.IsActive() && r.HasDonor(donorID) {
			return r.Clone(), nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) ListOpenByHospitals(_ context.Context, hospitalIDs []id.HospitalID) ([]*Request, error) {
	wanted := make(map[id.HospitalID]struct{}, len(hospitalIDs))
	for _, h := range hospitalIDs {
		wanted[h] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, r := range s.requests {
		if r.Status != StatusOpen {
			continue
		}
		if _, ok := wanted[r.HospitalID]; !ok {
			continue
		}
		out = append(out, r.Clone())
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) ListByHospital(_ context.Context, hospitalID id.HospitalID, status *Status) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, r := range s.requests {
		if r.HospitalID != hospitalID {
			continue
		}
		if status != nil && r.Status != *status {
			continue
		}
		out = append(out, r.Clone())
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) CountByStatus(_ context.Context, hospitalID id.HospitalID) (map[Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int)
	for _, r := range s.requests {
		if r.HospitalID == hospitalID {
			counts[r.Status]++
		}
	}
	return counts, nil
}

func (s *InMemoryStore) DeleteByID(_ context.Context, hospitalID id.HospitalID, requestID id.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok || r.HospitalID != hospitalID {
		return sentinel.ErrNotFound
	}
	delete(s.requests, requestID)
	return nil
}

func (s *InMemoryStore) DeleteByHospital(_ context.Context, hospitalID id.HospitalID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for rid, r := range s.requests {
		if r.HospitalID == hospitalID {
			delete(s.requests, rid)
			deleted++
		}
	}
	return deleted, nil
}

func sortNewestFirst(rs []*Request) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].CreatedAt.After(rs[j].CreatedAt) })
}
