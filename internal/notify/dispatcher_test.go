package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/donor"
	"bloodlink/internal/hospital"
	"bloodlink/internal/request"
	id "bloodlink/pkg/domain"
)

type fakeNotifier struct {
	mu       sync.Mutex
	notified []id.DonorID
	failFor  map[id.DonorID]bool
}

func (n *fakeNotifier) Notify(_ context.Context, recipient *donor.Donor, _ Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[recipient.ID] {
		return errors.New("smtp unavailable")
	}
	n.notified = append(n.notified, recipient.ID)
	return nil
}

func (n *fakeNotifier) delivered() []id.DonorID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]id.DonorID(nil), n.notified...)
}

func testHospital() *hospital.Hospital {
	return &hospital.Hospital{
		ID:        id.NewHospitalID(),
		Name:      "City General",
		LicenseID: "LIC-1001",
		Address:   "1 Main St",
		Location:  id.Point{Longitude: 77.59, Latitude: 12.91},
	}
}

func seedDonor(t *testing.T, store donor.Store, group id.BloodGroup, lon, lat float64) id.DonorID {
	t.Helper()
	d := &donor.Donor{
		ID:           id.NewDonorID(),
		Name:         "Donor",
		Phone:        "555-0100",
		Email:        "donor@example.com",
		BloodGroup:   group,
		RegisteredBy: donor.RegisteredSelf,
		Location: &donor.Location{
			Point:     id.Point{Longitude: lon, Latitude: lat},
			UpdatedAt: time.Now(),
		},
	}
	require.NoError(t, store.Create(context.Background(), d))
	return d.ID
}

func TestDispatchExactMatchWithinRadius(t *testing.T) {
	donors := donor.NewInMemoryStore()
	h := testHospital()

	near := seedDonor(t, donors, id.BloodBPos, 77.59, 12.92)     // ~1.1 km
	seedDonor(t, donors, id.BloodONeg, 77.59, 12.92)             // compatible but not exact
	seedDonor(t, donors, id.BloodBPos, 77.59, 13.50) // ~65 km away
	seedDonor(t, donors, id.BloodBPos, 78.20, 12.91) // ~66 km away

	notifier := &fakeNotifier{}
	d := NewDispatcher(donors, nil, notifier, Config{RadiusKm: 5}, nil, nil)

	r, err := request.NewRequest(id.NewRequestID(), h.ID, id.BloodBPos, 2, time.Now())
	require.NoError(t, err)

	res, err := d.Dispatch(context.Background(), r, h)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalCandidates)
	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, []id.DonorID{near}, notifier.delivered())
}

func TestDispatchSwallowsDeliveryFailures(t *testing.T) {
	donors := donor.NewInMemoryStore()
	h := testHospital()

	ok := seedDonor(t, donors, id.BloodAPos, 77.59, 12.92)
	bad := seedDonor(t, donors, id.BloodAPos, 77.60, 12.91)

	notifier := &fakeNotifier{failFor: map[id.DonorID]bool{bad: true}}
	d := NewDispatcher(donors, nil, notifier, Config{RadiusKm: 5}, nil, nil)

	res, err := d.DispatchByBloodGroup(context.Background(), h, id.BloodAPos)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCandidates)
	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []id.DonorID{ok}, notifier.delivered())
}

func TestDispatchNoCandidates(t *testing.T) {
	donors := donor.NewInMemoryStore()
	notifier := &fakeNotifier{}
	d := NewDispatcher(donors, nil, notifier, Config{}, nil, nil)

	res, err := d.DispatchByBloodGroup(context.Background(), testHospital(), id.BloodABNeg)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, notifier.delivered())
}

func TestDispatchBoundsConcurrency(t *testing.T) {
	donors := donor.NewInMemoryStore()
	h := testHospital()
	for i := 0; i < 30; i++ {
		seedDonor(t, donors, id.BloodOPos, 77.59, 12.915)
	}

	notifier := &fakeNotifier{}
	d := NewDispatcher(donors, nil, notifier, Config{RadiusKm: 5, Workers: 4, DeliveriesPerSecond: 1000}, nil, nil)

	res, err := d.DispatchByBloodGroup(context.Background(), h, id.BloodOPos)
	require.NoError(t, err)
	assert.Equal(t, 30, res.TotalCandidates)
	assert.Equal(t, 30, res.Delivered)
}
