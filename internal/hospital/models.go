// Package hospital holds the hospital aggregate and its stores. Hospitals
// own blood requests; their location anchors donor discovery.
package hospital

import (
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Hospital is a registered medical facility.
//
// Invariants:
//   - LicenseID is non-empty and unique across hospitals
//   - Location holds valid WGS84 coordinates
type Hospital struct {
	ID        id.HospitalID `json:"id"`
	Name      string        `json:"name"`
	LicenseID string        `json:"license_id"`
	Address   string        `json:"address"`
	Phone     string        `json:"phone"`
	Email     string        `json:"email"`
	Location  id.Point      `json:"location"`
}

// ValidateNew checks construction invariants before a hospital is persisted.
func (h *Hospital) ValidateNew() error {
	if h.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "hospital name is required")
	}
	if h.LicenseID == "" {
		return dErrors.New(dErrors.CodeValidation, "hospital license id is required")
	}
	if h.Address == "" {
		return dErrors.New(dErrors.CodeValidation, "hospital address is required")
	}
	if _, err := id.NewPoint(h.Location.Longitude, h.Location.Latitude); err != nil {
		return err
	}
	return nil
}
