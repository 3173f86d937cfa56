//go:build integration

package geoindex_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/donor/geoindex"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/testutil/containers"
)

func TestIndexRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	redis := containers.NewRedisContainer(t)
	index := geoindex.New(redis.Client)

	origin := id.Point{Longitude: 77.59, Latitude: 12.91}

	near := id.NewDonorID()
	far := id.NewDonorID()
	otherGroup := id.NewDonorID()

	require.NoError(t, index.Upsert(ctx, near, id.BloodBPos, id.Point{Longitude: 77.59, Latitude: 12.928}))
	require.NoError(t, index.Upsert(ctx, far, id.BloodBPos, id.Point{Longitude: 77.59, Latitude: 13.50}))
	require.NoError(t, index.Upsert(ctx, otherGroup, id.BloodONeg, id.Point{Longitude: 77.59, Latitude: 12.928}))

	got, err := index.SearchWithin(ctx, id.BloodBPos, origin, 5)
	require.NoError(t, err)
	assert.Equal(t, []id.DonorID{near}, got)

	// Moving a donor re-scores the same member rather than duplicating it.
	require.NoError(t, index.Upsert(ctx, near, id.BloodBPos, id.Point{Longitude: 77.59, Latitude: 13.60}))
	got, err = index.SearchWithin(ctx, id.BloodBPos, origin, 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, index.Remove(ctx, far, id.BloodBPos))
	got, err = index.SearchWithin(ctx, id.BloodBPos, origin, 100)
	require.NoError(t, err)
	assert.Equal(t, []id.DonorID{near}, got)
}
