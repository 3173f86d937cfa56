package donor

import (
	"context"

	id "bloodlink/pkg/domain"
)

// Store abstracts donor persistence for the profile service and the
// notification fanout path.
type Store interface {
	Create(ctx context.Context, d *Donor) error
	FindByID(ctx context.Context, donorID id.DonorID) (*Donor, error)
	Update(ctx context.Context, d *Donor) error
	// ListByBloodGroup returns every donor of the exact blood group.
	ListByBloodGroup(ctx context.Context, group id.BloodGroup) ([]*Donor, error)
	// ListByBloodGroupWithin returns donors of the exact blood group whose
	// location lies within radiusKm of origin. Donors without a location are
	// never matched. An empty result is not an error.
	ListByBloodGroupWithin(ctx context.Context, group id.BloodGroup, origin id.Point, radiusKm float64) ([]*Donor, error)
}
