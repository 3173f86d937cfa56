package hospital

import (
	"context"

	id "bloodlink/pkg/domain"
)

// Store is interface-driven so the in-memory and Postgres implementations
// are interchangeable under the services.
type Store interface {
	Create(ctx context.Context, h *Hospital) error
	FindByID(ctx context.Context, hospitalID id.HospitalID) (*Hospital, error)
	Update(ctx context.Context, h *Hospital) error
	// ListWithinRadius returns hospitals whose location lies within radiusKm
	// of origin by great-circle distance. An empty result is not an error.
	ListWithinRadius(ctx context.Context, origin id.Point, radiusKm float64) ([]*Hospital, error)
}
