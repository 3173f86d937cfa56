package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/donor"
	"bloodlink/internal/eligibility"
	"bloodlink/internal/history"
	"bloodlink/internal/hospital"
	"bloodlink/internal/notify"
	"bloodlink/internal/request"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

type capturingNotifier struct {
	mu       sync.Mutex
	received []id.DonorID
	done     chan struct{}
	expect   int
}

func (n *capturingNotifier) Notify(_ context.Context, recipient *donor.Donor, _ notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, recipient.ID)
	if n.done != nil && len(n.received) == n.expect {
		close(n.done)
	}
	return nil
}

type fixture struct {
	service   *Service
	hospitals *hospital.InMemoryStore
	donors    *donor.InMemoryStore
	ledger    *history.InMemoryStore
	notifier  *capturingNotifier
}

func newFixture(t *testing.T, notifier *capturingNotifier) *fixture {
	t.Helper()
	hospitals := hospital.NewInMemoryStore()
	donors := donor.NewInMemoryStore()
	ledger := history.NewInMemoryStore()
	requests := request.NewService(request.NewInMemoryStore(), eligibility.NewEvaluator(ledger))
	if notifier == nil {
		notifier = &capturingNotifier{}
	}
	dispatcher := notify.NewDispatcher(donors, nil, notifier, notify.Config{RadiusKm: 5}, nil, nil)
	return &fixture{
		service:   New(hospitals, requests, dispatcher, ledger, nil),
		hospitals: hospitals,
		donors:    donors,
		ledger:    ledger,
		notifier:  notifier,
	}
}

func (f *fixture) seedHospital(t *testing.T) *hospital.Hospital {
	t.Helper()
	h := &hospital.Hospital{
		ID:        id.NewHospitalID(),
		Name:      "City General",
		LicenseID: "LIC-1001",
		Address:   "1 Main St",
		Location:  id.Point{Longitude: 77.59, Latitude: 12.91},
	}
	require.NoError(t, f.hospitals.Create(context.Background(), h))
	return h
}

func (f *fixture) seedDonor(t *testing.T, group id.BloodGroup) *donor.Donor {
	t.Helper()
	d := &donor.Donor{
		ID:           id.NewDonorID(),
		Name:         "Donor",
		Phone:        "555-0100",
		Email:        "donor@example.com",
		BloodGroup:   group,
		RegisteredBy: donor.RegisteredSelf,
		Location: &donor.Location{
			Point:     id.Point{Longitude: 77.59, Latitude: 12.92},
			UpdatedAt: time.Now(),
		},
	}
	require.NoError(t, f.donors.Create(context.Background(), d))
	return d
}

func TestCreateRequestUnknownHospital(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.service.CreateRequest(context.Background(), id.NewHospitalID(), id.BloodBPos, 1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCreateRequestTriggersFanout(t *testing.T) {
	notifier := &capturingNotifier{done: make(chan struct{}), expect: 1}
	f := newFixture(t, notifier)
	h := f.seedHospital(t)
	match := f.seedDonor(t, id.BloodBPos)
	f.seedDonor(t, id.BloodONeg) // compatible, but fanout is exact-match

	r, err := f.service.CreateRequest(context.Background(), h.ID, id.BloodBPos, 1)
	require.NoError(t, err)
	assert.Equal(t, request.StatusOpen, r.Status)

	select {
	case <-notifier.done:
	case <-time.After(2 * time.Second):
		t.Fatal("fanout did not reach the notifier")
	}
	assert.Equal(t, []id.DonorID{match.ID}, notifier.received)
}

func TestNotifyDonorsValidatesGroup(t *testing.T) {
	f := newFixture(t, nil)
	h := f.seedHospital(t)

	_, err := f.service.NotifyDonors(context.Background(), h.ID, id.BloodGroup("Z-"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestNotifyDonorsReturnsCounts(t *testing.T) {
	f := newFixture(t, nil)
	h := f.seedHospital(t)
	f.seedDonor(t, id.BloodAPos)
	f.seedDonor(t, id.BloodAPos)
	f.seedDonor(t, id.BloodBNeg)

	res, err := f.service.NotifyDonors(context.Background(), h.ID, id.BloodAPos)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCandidates)
	assert.Equal(t, 2, res.Delivered)
}

func TestDonorsSummariesOrderedByCount(t *testing.T) {
	f := newFixture(t, nil)
	h := f.seedHospital(t)
	frequent := f.seedDonor(t, id.BloodOPos)
	occasional := f.seedDonor(t, id.BloodOPos)

	now := time.Now()
	appendDonation := func(donorID id.DonorID, at time.Time) {
		require.NoError(t, f.ledger.Append(context.Background(), history.DonationRecord{
			ID:         id.NewDonationID(),
			DonorID:    donorID,
			HospitalID: h.ID,
			BloodGroup: id.BloodOPos,
			DonatedAt:  at,
			Units:      1,
			Verified:   true,
		}))
	}
	appendDonation(frequent.ID, now.AddDate(0, -8, 0))
	appendDonation(frequent.ID, now.AddDate(0, -4, 0))
	appendDonation(occasional.ID, now.AddDate(0, -6, 0))

	summaries, err := f.service.Donors(context.Background(), h.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, frequent.ID, summaries[0].DonorID)
	assert.Equal(t, 2, summaries[0].DonationCount)
	assert.Equal(t, occasional.ID, summaries[1].DonorID)
}
