package history

import (
	"context"

	id "bloodlink/pkg/domain"
)

// Store is the append-mostly donation ledger.
type Store interface {
	Append(ctx context.Context, record DonationRecord) error
	// LatestVerified returns the donor's most recent verified donation, or
	// (nil, nil) when the donor has never had a verified donation.
	LatestVerified(ctx context.Context, donorID id.DonorID) (*DonationRecord, error)
	// ListByDonor returns all of a donor's records, most recent first.
	ListByDonor(ctx context.Context, donorID id.DonorID) ([]DonationRecord, error)
	// DonorSummaries aggregates donations per donor at a hospital, ordered
	// by donation count descending.
	DonorSummaries(ctx context.Context, hospitalID id.HospitalID) ([]DonorSummary, error)
}
