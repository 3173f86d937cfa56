// Package history holds the donation ledger. Records are appended by an
// external verification collaborator; this core reads them to evaluate
// eligibility and to report donor statistics.
package history

import (
	"time"

	id "bloodlink/pkg/domain"
)

// DonationRecord links a donor to a hospital donation event.
//
// Invariant: only records with Verified = true count toward eligibility.
type DonationRecord struct {
	ID         id.DonationID `json:"id"`
	DonorID    id.DonorID    `json:"donor_id"`
	HospitalID id.HospitalID `json:"hospital_id"`
	RequestID  id.RequestID  `json:"request_id,omitempty"`
	BloodGroup id.BloodGroup `json:"blood_group,omitempty"`
	DonatedAt  time.Time     `json:"donated_at"`
	Units      int           `json:"units"`
	Verified   bool          `json:"verified"`
}

// Stats aggregates a donor's ledger for profile and history views.
type Stats struct {
	TotalDonations      int        `json:"total_donations"`
	VerifiedDonations   int        `json:"verified_donations"`
	PendingVerification int        `json:"pending_verification"`
	TotalUnits          int        `json:"total_units"`
	LastDonationAt      *time.Time `json:"last_donation_at,omitempty"`
}

// DonorSummary aggregates one donor's donations at a single hospital.
type DonorSummary struct {
	DonorID        id.DonorID `json:"donor_id"`
	DonationCount  int        `json:"donation_count"`
	TotalUnits     int        `json:"total_units"`
	LastDonationAt time.Time  `json:"last_donation_at"`
}

// StatsOf folds a donor's records (any order) into Stats.
func StatsOf(records []DonationRecord) Stats {
	var s Stats
	for _, r := range records {
		s.TotalDonations++
		s.TotalUnits += r.Units
		if r.Verified {
			s.VerifiedDonations++
		}
		if s.LastDonationAt == nil || r.DonatedAt.After(*s.LastDonationAt) {
			t := r.DonatedAt
			s.LastDonationAt = &t
		}
	}
	s.PendingVerification = s.TotalDonations - s.VerifiedDonations
	return s
}
