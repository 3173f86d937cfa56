// Package request owns the blood request lifecycle: the Open/Accepted state
// machine driven by donor accept and reject actions, and the hospital-side
// edits on a request it owns.
package request

import (
	"time"

	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Status is the lifecycle state of a request.
type Status string

const (
	StatusOpen      Status = "open"
	StatusAccepted  Status = "accepted"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every valid status.
var Statuses = [4]Status{StatusOpen, StatusAccepted, StatusFulfilled, StatusCancelled}

// ParseStatus validates a status label from an untrusted source.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "status must be one of open, accepted, fulfilled, cancelled")
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next. Fulfilled and Cancelled are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusOpen:
		return next == StatusAccepted || next == StatusFulfilled || next == StatusCancelled
	case StatusAccepted:
		return next == StatusOpen || next == StatusFulfilled || next == StatusCancelled
	default:
		return false
	}
}

// IsActive reports whether the request still holds donor commitments.
func (s Status) IsActive() bool {
	return s == StatusOpen || s == StatusAccepted
}

// Request is a hospital's standing ask for blood.
//
// Invariants:
//   - Units >= 1
//   - AcceptedDonorIDs is insertion-ordered and free of duplicates
//   - len(AcceptedDonorIDs) <= Units, enforced by the Open->Accepted
//     transition under the store's Execute lock
type Request struct {
	ID               id.RequestID  `json:"id"`
	HospitalID       id.HospitalID `json:"hospital_id"`
	BloodGroup       id.BloodGroup `json:"blood_group"`
	Units            int           `json:"units"`
	Status           Status        `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	AcceptedDonorIDs []id.DonorID  `json:"accepted_donor_ids"`
}

// NewRequest constructs an open request, applying the default of one unit.
func NewRequest(requestID id.RequestID, hospitalID id.HospitalID, group id.BloodGroup, units int, now time.Time) (*Request, error) {
	if hospitalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "hospital id is required")
	}
	if !group.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "blood group must be one of the eight ABO/Rh types")
	}
	if units == 0 {
		units = 1
	}
	if units < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "units must be at least 1")
	}
	return &Request{
		ID:         requestID,
		HospitalID: hospitalID,
		BloodGroup: group,
		Units:      units,
		Status:     StatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// HasDonor reports whether the donor is in the accepted list.
func (r *Request) HasDonor(donorID id.DonorID) bool {
	for _, d := range r.AcceptedDonorIDs {
		if d == donorID {
			return true
		}
	}
	return false
}

// AcceptedCount is the number of donors currently committed.
func (r *Request) AcceptedCount() int {
	return len(r.AcceptedDonorIDs)
}

// CanAcceptDonor checks the per-request accept preconditions. Eligibility
// and the cross-request commitment check belong to the service; this method
// sees only the locked request.
// Use with ApplyAccept inside the store's Execute callback.
func (r *Request) CanAcceptDonor(donorID id.DonorID) error {
	if r.HasDonor(donorID) {
		return dErrors.New(dErrors.CodeInvariantViolation, "Donor has already accepted this request")
	}
	if r.Status != StatusOpen {
		return dErrors.New(dErrors.CodeInvariantViolation, "Request is no longer open")
	}
	return nil
}

// ApplyAccept appends the donor and, when the unit count is reached, moves
// the request to Accepted. Call CanAcceptDonor first under the same lock.
func (r *Request) ApplyAccept(donorID id.DonorID, now time.Time) {
	r.AcceptedDonorIDs = append(r.AcceptedDonorIDs, donorID)
	if len(r.AcceptedDonorIDs) >= r.Units {
		r.Status = StatusAccepted
	}
	r.UpdatedAt = now
}

// CanRejectDonor checks the reject preconditions.
// Use with ApplyReject inside the store's Execute callback.
func (r *Request) CanRejectDonor(donorID id.DonorID) error {
	if !r.HasDonor(donorID) {
		return dErrors.New(dErrors.CodeInvariantViolation, "Donor has not accepted this request")
	}
	return nil
}

// ApplyReject removes the donor, reverting Accepted to Open when the list
// drops below the unit count. Call CanRejectDonor first under the same lock.
func (r *Request) ApplyReject(donorID id.DonorID, now time.Time) {
	kept := r.AcceptedDonorIDs[:0]
	for _, d := range r.AcceptedDonorIDs {
		if d != donorID {
			kept = append(kept, d)
		}
	}
	r.AcceptedDonorIDs = kept
	if len(r.AcceptedDonorIDs) < r.Units && r.Status == StatusAccepted {
		r.Status = StatusOpen
	}
	r.UpdatedAt = now
}

// Clone returns a deep copy so store snapshots cannot alias the stored list.
func (r *Request) Clone() *Request {
	cp := *r
	if r.AcceptedDonorIDs != nil {
		cp.AcceptedDonorIDs = make([]id.DonorID, len(r.AcceptedDonorIDs))
		copy(cp.AcceptedDonorIDs, r.AcceptedDonorIDs)
	}
	return &cp
}
