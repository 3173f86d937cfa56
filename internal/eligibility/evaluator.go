// Package eligibility decides whether a donor may donate again.
//
// The rule is calendar based: a donor becomes eligible three calendar months
// after their last verified donation. Donors with no verified donation on
// record are always eligible.
package eligibility

import (
	"context"
	"time"

	"bloodlink/internal/history"
	id "bloodlink/pkg/domain"
)

// WaitMonths is the number of calendar months between verified donations.
const WaitMonths = 3

// Evaluation is the outcome of an eligibility check at a point in time.
type Evaluation struct {
	Eligible       bool       `json:"eligible"`
	LastDonationAt *time.Time `json:"last_donation_at,omitempty"`
	NextEligibleAt *time.Time `json:"next_eligible_at,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}

// Evaluator reads the donation ledger to answer eligibility questions.
type Evaluator struct {
	ledger history.Store
}

func NewEvaluator(ledger history.Store) *Evaluator {
	return &Evaluator{ledger: ledger}
}

// Evaluate computes the donor's eligibility as of now. Unverified donations
// never affect the result.
func (e *Evaluator) Evaluate(ctx context.Context, donorID id.DonorID, now time.Time) (Evaluation, error) {
	last, err := e.ledger.LatestVerified(ctx, donorID)
	if err != nil {
		return Evaluation{}, err
	}
	if last == nil {
		return Evaluation{Eligible: true}, nil
	}
	return evaluateFrom(last.DonatedAt, now), nil
}

func evaluateFrom(lastDonatedAt, now time.Time) Evaluation {
	next := NextEligibleAt(lastDonatedAt)
	ev := Evaluation{
		LastDonationAt: &lastDonatedAt,
		NextEligibleAt: &next,
	}
	if now.Before(next) {
		ev.Reason = "Donor must wait " + waitDescription + " between verified donations"
		return ev
	}
	ev.Eligible = true
	return ev
}

// NextEligibleAt returns the first instant the donor may donate again after
// a verified donation at lastDonatedAt. Calendar months, not a fixed day
// count, so a donation on Jan 15 unlocks on Apr 15 regardless of month
// lengths in between.
func NextEligibleAt(lastDonatedAt time.Time) time.Time {
	return lastDonatedAt.AddDate(0, WaitMonths, 0)
}

const waitDescription = "3 months"
