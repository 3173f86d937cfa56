// Package domain holds identifier types and domain value objects shared
// across modules. Typed IDs prevent cross-entity assignment at compile time;
// Parse* constructors enforce validity at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "bloodlink/pkg/domain-errors"
)

// Typed IDs for the core entities. Each wraps uuid.UUID so a DonorID can
// never be passed where a RequestID is expected.
type (
	DonorID    uuid.UUID
	HospitalID uuid.UUID
	RequestID  uuid.UUID
	DonationID uuid.UUID
)

// ParseDonorID constructs a DonorID from external input.
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil UUID.
func ParseDonorID(s string) (DonorID, error) {
	u, err := parseUUID(s, "donor id")
	return DonorID(u), err
}

// ParseHospitalID constructs a HospitalID from external input.
func ParseHospitalID(s string) (HospitalID, error) {
	u, err := parseUUID(s, "hospital id")
	return HospitalID(u), err
}

// ParseRequestID constructs a RequestID from external input.
func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s, "request id")
	return RequestID(u), err
}

// ParseDonationID constructs a DonationID from external input.
func ParseDonationID(s string) (DonationID, error) {
	u, err := parseUUID(s, "donation id")
	return DonationID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be the nil UUID")
	}
	return u, nil
}

func (id DonorID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id HospitalID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id DonationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id DonorID) String() string    { return uuid.UUID(id).String() }
func (id HospitalID) String() string { return uuid.UUID(id).String() }
func (id RequestID) String() string  { return uuid.UUID(id).String() }
func (id DonationID) String() string { return uuid.UUID(id).String() }

// The ID types implement encoding.TextMarshaler/Unmarshaler so JSON carries
// the canonical UUID string rather than a byte array.

func (id DonorID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id HospitalID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id RequestID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id DonationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *DonorID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *HospitalID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RequestID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DonationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// NewDonorID returns a fresh random DonorID.
func NewDonorID() DonorID { return DonorID(uuid.New()) }

// NewHospitalID returns a fresh random HospitalID.
func NewHospitalID() HospitalID { return HospitalID(uuid.New()) }

// NewRequestID returns a fresh random RequestID.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// NewDonationID returns a fresh random DonationID.
func NewDonationID() DonationID { return DonationID(uuid.New()) }
