package history

import (
	"context"
	"sort"
	"sync"

	id "bloodlink/pkg/domain"
)

// InMemoryStore keeps the ledger as a slice per donor.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []DonationRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, record DonationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *InMemoryStore) LatestVerified(_ context.Context, donorID id.DonorID) (*DonationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *DonationRecord
	for i := range s.records {
		r := s.records[i]
		if r.DonorID != donorID || !r.Verified {
			continue
		}
		if latest == nil || r.DonatedAt.After(latest.DonatedAt) {
			cp := r
			latest = &cp
		}
	}
	return latest, nil
}

func (s *InMemoryStore) ListByDonor(_ context.Context, donorID id.DonorID) ([]DonationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DonationRecord
	for _, r := range s.records {
		if r.DonorID == donorID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DonatedAt.After(out[j].DonatedAt) })
	return out, nil
}

func (s *InMemoryStore) DonorSummaries(_ context.Context, hospitalID id.HospitalID) ([]DonorSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDonor := make(map[id.DonorID]*DonorSummary)
	for _, r := range s.records {
		if r.HospitalID != hospitalID {
			continue
		}
		sum, ok := byDonor[r.DonorID]
		if !ok {
			sum = &DonorSummary{DonorID: r.DonorID}
			byDonor[r.DonorID] = sum
		}
		sum.DonationCount++
		sum.TotalUnits += r.Units
		if r.DonatedAt.After(sum.LastDonationAt) {
			sum.LastDonationAt = r.DonatedAt
		}
	}

	out := make([]DonorSummary, 0, len(byDonor))
	for _, sum := range byDonor {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DonationCount > out[j].DonationCount })
	return out, nil
}
