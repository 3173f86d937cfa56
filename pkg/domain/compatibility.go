package domain

// Donor-to-recipient transfusion compatibility, fixed by medical convention.
//
// The relation is expressed as a total 8×8 table rather than a sparse map so
// that an unrecognized or missing key can never silently default the wrong
// way. Rows are donor types, columns recipient (requested) types, both in
// BloodGroups order: A+, A-, B+, B-, AB+, AB-, O+, O-.
var compatibilityTable = [8][8]bool{
	//           A+     A-     B+     B-     AB+    AB-    O+     O-
	/* A+  */ {true, false, false, false, true, false, false, false},
	/* A-  */ {true, true, false, false, true, true, false, false},
	/* B+  */ {false, false, true, false, true, false, false, false},
	/* B-  */ {false, false, true, true, true, true, false, false},
	/* AB+ */ {false, false, false, false, true, false, false, false},
	/* AB- */ {false, false, false, false, true, true, false, false},
	/* O+  */ {true, false, true, false, true, false, true, false},
	/* O-  */ {true, true, true, true, true, true, true, true},
}

var bloodGroupIndex = map[BloodGroup]int{
	BloodAPos: 0, BloodANeg: 1,
	BloodBPos: 2, BloodBNeg: 3,
	BloodABPos: 4, BloodABNeg: 5,
	BloodOPos: 6, BloodONeg: 7,
}

// CanDonateTo reports whether blood from a donor of type donor is safe to
// transfuse to a recipient needing type recipient. Unrecognized types are
// fail-closed: the answer is false, never an error.
func CanDonateTo(donor, recipient BloodGroup) bool {
	di, ok := bloodGroupIndex[donor]
	if !ok {
		return false
	}
	ri, ok := bloodGroupIndex[recipient]
	if !ok {
		return false
	}
	return compatibilityTable[di][ri]
}

// CompatibleDonors returns the donor types that may satisfy a request for
// the given blood group, in BloodGroups order.
func CompatibleDonors(recipient BloodGroup) []BloodGroup {
	var donors []BloodGroup
	for _, d := range BloodGroups {
		if CanDonateTo(d, recipient) {
			donors = append(donors, d)
		}
	}
	return donors
}
