package domain

import dErrors "bloodlink/pkg/domain-errors"

// BloodGroup is one of the eight ABO/Rh blood types.
// Invariant: the value must be one of the eight canonical labels.
//
// Usage: construct via ParseBloodGroup at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type BloodGroup string

const (
	BloodAPos  BloodGroup = "A+"
	BloodANeg  BloodGroup = "A-"
	BloodBPos  BloodGroup = "B+"
	BloodBNeg  BloodGroup = "B-"
	BloodABPos BloodGroup = "AB+"
	BloodABNeg BloodGroup = "AB-"
	BloodOPos  BloodGroup = "O+"
	BloodONeg  BloodGroup = "O-"
)

// BloodGroups lists all eight types in a stable order. Used to index the
// compatibility table and to enumerate in validation messages.
var BloodGroups = [8]BloodGroup{
	BloodAPos, BloodANeg,
	BloodBPos, BloodBNeg,
	BloodABPos, BloodABNeg,
	BloodOPos, BloodONeg,
}

var validBloodGroups = map[BloodGroup]bool{
	BloodAPos: true, BloodANeg: true,
	BloodBPos: true, BloodBNeg: true,
	BloodABPos: true, BloodABNeg: true,
	BloodOPos: true, BloodONeg: true,
}

// ParseBloodGroup constructs a BloodGroup from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or not one of the
// eight ABO/Rh labels; no other errors are expected.
func ParseBloodGroup(s string) (BloodGroup, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "blood group cannot be empty")
	}
	g := BloodGroup(s)
	if !g.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid blood group: "+s)
	}
	return g, nil
}

// IsValid checks whether the blood group is one of the eight supported labels.
func (g BloodGroup) IsValid() bool {
	return validBloodGroups[g]
}

// String returns the canonical label.
func (g BloodGroup) String() string {
	return string(g)
}
