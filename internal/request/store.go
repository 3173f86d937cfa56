package request

import (
	"context"

	id "bloodlink/pkg/domain"
)

// Store abstracts request persistence.
//
// All donor-driven mutations go through Execute so the acceptance list is
// never updated from a stale read. Stores return sentinel errors
// (pkg/platform/sentinel); the service translates them into domain errors.
type Store interface {
	Create(ctx context.Context, r *Request) error
	FindByID(ctx context.Context, requestID id.RequestID) (*Request, error)

	// Execute atomically loads the request, runs validate, and if validate
	// returns nil runs mutate and persists the result. The implementation
	// holds its lock (mutex or SELECT FOR UPDATE) across both callbacks,
	// so validate always observes the current acceptance list.
	// Returns the mutated request, or sentinel.ErrNotFound.
	Execute(ctx context.Context, requestID id.RequestID, validate func(*Request) error, mutate func(*Request)) (*Request, error)

	// Update persists hospital edits (status, units, blood group). The
	// caller is expected to have loaded the request via Execute or FindByID.
	Update(ctx context.Context, r *Request) error

	// FindActiveByDonor returns the Open or Accepted request whose accepted
	// list contains the donor, or (nil, nil) when the donor holds no active
	// commitment. At most one such request exists.
	FindActiveByDonor(ctx context.Context, donorID id.DonorID) (*Request, error)

	// ListOpenByHospitals returns open requests belonging to any of the
	// given hospitals, newest first.
	ListOpenByHospitals(ctx context.Context, hospitalIDs []id.HospitalID) ([]*Request, error)

	// ListByHospital returns all of a hospital's requests, newest first,
	// optionally filtered by status (nil means all).
	ListByHospital(ctx context.Context, hospitalID id.HospitalID, status *Status) ([]*Request, error)

	// CountByStatus aggregates a hospital's requests per status.
	CountByStatus(ctx context.Context, hospitalID id.HospitalID) (map[Status]int, error)

	// DeleteByID removes a request. Returns sentinel.ErrNotFound when it
	// does not exist or belongs to another hospital.
	DeleteByID(ctx context.Context, hospitalID id.HospitalID, requestID id.RequestID) error

	// DeleteByHospital removes all of a hospital's requests, returning the
	// number deleted.
	DeleteByHospital(ctx context.Context, hospitalID id.HospitalID) (int, error)
}
