//go:build integration

package request_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bloodlink/internal/hospital"
	"bloodlink/internal/request"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/testutil/containers"
)

const schema = `
CREATE TABLE IF NOT EXISTS hospitals (
    id          UUID PRIMARY KEY,
    name        TEXT NOT NULL,
    license_id  TEXT NOT NULL UNIQUE,
    address     TEXT NOT NULL,
    phone       TEXT NOT NULL DEFAULT '',
    email       TEXT NOT NULL DEFAULT '',
    longitude   DOUBLE PRECISION NOT NULL,
    latitude    DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS requests (
    id          UUID PRIMARY KEY,
    hospital_id UUID NOT NULL REFERENCES hospitals(id) ON DELETE CASCADE,
    blood_group TEXT NOT NULL,
    units       INTEGER NOT NULL CHECK (units >= 1),
    status      TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS request_donors (
    request_id UUID NOT NULL REFERENCES requests(id) ON DELETE CASCADE,
    donor_id   UUID NOT NULL,
    position   INTEGER NOT NULL,
    PRIMARY KEY (request_id, donor_id)
);
`

type PostgresStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	store     *request.PostgresStore
	hospitals *hospital.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), schema)
	s.store = request.NewPostgresStore(s.postgres.DB)
	s.hospitals = hospital.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.postgres.DB.Exec(`TRUNCATE request_donors, requests, hospitals CASCADE`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seedHospital() id.HospitalID {
	h := &hospital.Hospital{
		ID:        id.NewHospitalID(),
		Name:      "City General",
		LicenseID: "LIC-" + id.NewHospitalID().String(),
		Address:   "1 Main St",
		Location:  id.Point{Longitude: 77.59, Latitude: 12.91},
	}
	s.Require().NoError(s.hospitals.Create(context.Background(), h))
	return h.ID
}

func (s *PostgresStoreSuite) seedRequest(hospitalID id.HospitalID, units int) *request.Request {
	r, err := request.NewRequest(id.NewRequestID(), hospitalID, id.BloodBPos, units, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), r))
	return r
}

func (s *PostgresStoreSuite) TestRoundTripPreservesDonorOrder() {
	ctx := context.Background()
	r := s.seedRequest(s.seedHospital(), 3)

	donors := []id.DonorID{id.NewDonorID(), id.NewDonorID(), id.NewDonorID()}
	for _, donorID := range donors {
		_, err := s.store.Execute(ctx, r.ID,
			func(r *request.Request) error { return r.CanAcceptDonor(donorID) },
			func(r *request.Request) { r.ApplyAccept(donorID, time.Now().UTC()) },
		)
		s.Require().NoError(err)
	}

	got, err := s.store.FindByID(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(donors, got.AcceptedDonorIDs)
	s.Equal(request.StatusAccepted, got.Status)
}

// The FOR UPDATE row lock must serialize concurrent accepts so the accepted
// list never exceeds the unit count.
func (s *PostgresStoreSuite) TestExecuteUnitCapUnderConcurrency() {
	ctx := context.Background()
	const units = 2
	const contenders = 12
	r := s.seedRequest(s.seedHospital(), units)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		refused  int
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			donorID := id.NewDonorID()
			_, err := s.store.Execute(ctx, r.ID,
				func(r *request.Request) error { return r.CanAcceptDonor(donorID) },
				func(r *request.Request) { r.ApplyAccept(donorID, time.Now().UTC()) },
			)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				refused++
			} else {
				accepted++
			}
		}()
	}
	wg.Wait()

	s.Equal(units, accepted)
	s.Equal(contenders-units, refused)

	got, err := s.store.FindByID(ctx, r.ID)
	s.Require().NoError(err)
	s.Len(got.AcceptedDonorIDs, units)
	s.Equal(request.StatusAccepted, got.Status)
}

func (s *PostgresStoreSuite) TestFindActiveByDonor() {
	ctx := context.Background()
	r := s.seedRequest(s.seedHospital(), 2)
	donorID := id.NewDonorID()

	got, err := s.store.FindActiveByDonor(ctx, donorID)
	s.Require().NoError(err)
	s.Nil(got)

	_, err = s.store.Execute(ctx, r.ID,
		func(r *request.Request) error { return r.CanAcceptDonor(donorID) },
		func(r *request.Request) { r.ApplyAccept(donorID, time.Now().UTC()) },
	)
	s.Require().NoError(err)

	got, err = s.store.FindActiveByDonor(ctx, donorID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(r.ID, got.ID)
}

func (s *PostgresStoreSuite) TestListByHospitalNewestFirst() {
	ctx := context.Background()
	hospitalID := s.seedHospital()

	older, err := request.NewRequest(id.NewRequestID(), hospitalID, id.BloodAPos, 1, time.Now().UTC().Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, older))
	newer := s.seedRequest(hospitalID, 1)

	got, err := s.store.ListByHospital(ctx, hospitalID, nil)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(newer.ID, got[0].ID)
	s.Equal(older.ID, got[1].ID)
}

func (s *PostgresStoreSuite) TestDeleteByIDChecksOwnership() {
	ctx := context.Background()
	owner := s.seedHospital()
	r := s.seedRequest(owner, 1)

	err := s.store.DeleteByID(ctx, s.seedHospital(), r.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.DeleteByID(ctx, owner, r.ID))
	_, err = s.store.FindByID(ctx, r.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCountByStatus() {
	ctx := context.Background()
	hospitalID := s.seedHospital()
	s.seedRequest(hospitalID, 1)
	filled := s.seedRequest(hospitalID, 1)

	donorID := id.NewDonorID()
	_, err := s.store.Execute(ctx, filled.ID,
		func(r *request.Request) error { return r.CanAcceptDonor(donorID) },
		func(r *request.Request) { r.ApplyAccept(donorID, time.Now().UTC()) },
	)
	s.Require().NoError(err)

	counts, err := s.store.CountByStatus(ctx, hospitalID)
	s.Require().NoError(err)
	s.Equal(1, counts[request.StatusOpen])
	s.Equal(1, counts[request.StatusAccepted])
}
