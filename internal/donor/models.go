// Package donor holds the donor aggregate, its stores, and the profile
// service. Donor records are created by an external registration
// collaborator; this module owns reads, location updates, and discovery.
package donor

import (
	"time"

	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// RegisteredBy records who created the donor record.
type RegisteredBy string

const (
	RegisteredSelf     RegisteredBy = "self"
	RegisteredHospital RegisteredBy = "hospital"
)

// Location is a donor's last known position.
type Location struct {
	Point     id.Point  `json:"point"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Donor is a registered blood donor.
//
// Invariants:
//   - BloodGroup is one of the eight ABO/Rh types
//   - RegisteredBy = hospital implies RegisteredHospitalID is set
//   - Location coordinates are valid WGS84 when present
type Donor struct {
	ID                   id.DonorID    `json:"id"`
	Name                 string        `json:"name"`
	Age                  int           `json:"age,omitempty"`
	Gender               string        `json:"gender,omitempty"`
	Phone                string        `json:"phone"`
	Email                string        `json:"email"`
	BloodGroup           id.BloodGroup `json:"blood_group"`
	RegisteredBy         RegisteredBy  `json:"registered_by"`
	RegisteredHospitalID id.HospitalID `json:"registered_hospital_id,omitempty"`
	Location             *Location     `json:"location,omitempty"`
}

// ValidateNew checks construction invariants before a donor is persisted.
// The conditional requirement (hospital registration needs a hospital ID)
// is an explicit check here, not a schema-level default.
func (d *Donor) ValidateNew() error {
	if d.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "donor name is required")
	}
	if d.Phone == "" {
		return dErrors.New(dErrors.CodeValidation, "donor phone is required")
	}
	if d.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "donor email is required")
	}
	if !d.BloodGroup.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "donor blood group must be one of the eight ABO/Rh types")
	}
	switch d.RegisteredBy {
	case RegisteredSelf:
	case RegisteredHospital:
		if d.RegisteredHospitalID.IsNil() {
			return dErrors.New(dErrors.CodeValidation, "hospital-registered donors require a registering hospital id")
		}
	default:
		return dErrors.New(dErrors.CodeValidation, "registered_by must be self or hospital")
	}
	if d.Location != nil {
		if _, err := id.NewPoint(d.Location.Point.Longitude, d.Location.Point.Latitude); err != nil {
			return err
		}
	}
	return nil
}
