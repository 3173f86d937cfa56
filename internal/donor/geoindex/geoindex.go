// Package geoindex maintains a Redis GEO index of donor locations, keyed per
// blood group. The notification fanout path uses it to find exact-match
// donors near a hospital without scanning the donor table.
package geoindex

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	id "bloodlink/pkg/domain"
)

// Index wraps the Redis GEO commands for donor locations.
//
// One sorted set per blood group keeps GEOSEARCH results pre-filtered to the
// exact type the fanout wants.
type Index struct {
	client *redis.Client
}

func New(client *redis.Client) *Index {
	return &Index{client: client}
}

func key(group id.BloodGroup) string {
	return "donors:geo:" + string(group)
}

// Upsert records a donor's current location under their blood group.
func (i *Index) Upsert(ctx context.Context, donorID id.DonorID, group id.BloodGroup, p id.Point) error {
	err := i.client.GeoAdd(ctx, key(group), &redis.GeoLocation{
		Name:      donorID.String(),
		Longitude: p.Longitude,
		Latitude:  p.Latitude,
	}).Err()
	if err != nil {
		return fmt.Errorf("geoadd donor %s: %w", donorID, err)
	}
	return nil
}

// Remove drops a donor from their blood group's index.
func (i *Index) Remove(ctx context.Context, donorID id.DonorID, group id.BloodGroup) error {
	if err := i.client.ZRem(ctx, key(group), donorID.String()).Err(); err != nil {
		return fmt.Errorf("zrem donor %s: %w", donorID, err)
	}
	return nil
}

// SearchWithin returns the IDs of donors of the exact blood group within
// radiusKm of origin. An empty result is not an error.
func (i *Index) SearchWithin(ctx context.Context, group id.BloodGroup, origin id.Point, radiusKm float64) ([]id.DonorID, error) {
	members, err := i.client.GeoSearch(ctx, key(group), &redis.GeoSearchQuery{
		Longitude:  origin.Longitude,
		Latitude:   origin.Latitude,
		Radius:     radiusKm,
		RadiusUnit: "km",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geosearch %s within %.3fkm: %w", group, radiusKm, err)
	}

	ids := make([]id.DonorID, 0, len(members))
	for _, member := range members {
		donorID, err := id.ParseDonorID(member)
		if err != nil {
			// Foreign keys in the index are skipped, not fatal.
			continue
		}
		ids = append(ids, donorID)
	}
	return ids, nil
}
