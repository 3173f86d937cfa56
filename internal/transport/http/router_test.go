package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/donor"
	donorhandler "bloodlink/internal/donor/handler"
	"bloodlink/internal/eligibility"
	"bloodlink/internal/history"
	"bloodlink/internal/hospital"
	hospitalhandler "bloodlink/internal/hospital/handler"
	hospitalservice "bloodlink/internal/hospital/service"
	"bloodlink/internal/notify"
	"bloodlink/internal/request"
	"bloodlink/internal/token"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/testutil"
)

type env struct {
	router    http.Handler
	tokens    *token.Service
	donors    *donor.InMemoryStore
	hospitals *hospital.InMemoryStore
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := slog.Default()

	donors := donor.NewInMemoryStore()
	hospitals := hospital.NewInMemoryStore()
	ledger := history.NewInMemoryStore()
	evaluator := eligibility.NewEvaluator(ledger)
	requests := request.NewService(request.NewInMemoryStore(), evaluator)

	dispatcher := notify.NewDispatcher(donors, nil, notify.NewLogNotifier(log), notify.Config{RadiusKm: 5}, nil, log)
	donorService := donor.NewService(donors, hospitals, requests, evaluator, ledger, nil, 5, log)
	hospitalService := hospitalservice.New(hospitals, requests, dispatcher, ledger, log)

	tokens := token.NewService("test-secret", "bloodlink-test")
	router := NewRouter(
		donorhandler.New(donorService, requests, tokens, log),
		hospitalhandler.New(hospitalService, requests, tokens, log),
	)
	return &env{router: router, tokens: tokens, donors: donors, hospitals: hospitals}
}

func (e *env) seedHospital(t *testing.T, lon, lat float64) (*hospital.Hospital, string) {
	t.Helper()
	h := &hospital.Hospital{
		ID:        id.NewHospitalID(),
		Name:      "City General",
		LicenseID: "LIC-" + uuid.NewString()[:8],
		Address:   "1 Main St",
		Location:  id.Point{Longitude: lon, Latitude: lat},
	}
	require.NoError(t, e.hospitals.Create(context.Background(), h))
	bearer, err := e.tokens.Generate(uuid.UUID(h.ID), token.ActorHospital, time.Hour)
	require.NoError(t, err)
	return h, bearer
}

func (e *env) seedDonor(t *testing.T, group id.BloodGroup, lon, lat float64) (*donor.Donor, string) {
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
	require.NoError(t, e.donors.Create(context.Background(), d))
	bearer, err := e.tokens.Generate(uuid.UUID(d.ID), token.ActorDonor, time.Hour)
	require.NoError(t, err)
	return d, bearer
}

func authed(req *http.Request, bearer string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+bearer)
	return req
}

func TestRoutesRequireAuth(t *testing.T) {
	e := newEnv(t)

	rr := testutil.DoRequest(e.router, testutil.NewRequest(t, http.MethodGet, "/donor/requests/nearby"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = testutil.DoRequest(e.router, testutil.NewJSONRequest(t, http.MethodPost, "/hospital/requests", map[string]any{"blood_group": "B+"}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestActorTypeEnforced(t *testing.T) {
	e := newEnv(t)
	_, donorBearer := e.seedDonor(t, id.BloodOPos, 77.59, 12.91)

	req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/hospital/requests", map[string]any{"blood_group": "B+"}), donorBearer)
	rr := testutil.DoRequest(e.router, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	rr := testutil.DoRequest(e.router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	assert.Equal(t, http.StatusOK, rr.Code)
}

// A hospital posts a two-unit B+ request. A nearby B+ donor and a nearby O-
// donor both discover it, accept in turn, and fill it; a third donor then
// gets a conflict because the request is no longer open.
func TestRequestLifecycleEndToEnd(t *testing.T) {
	e := newEnv(t)
	_, hospitalBearer := e.seedHospital(t, 77.59, 12.91)

	donorA, bearerA := e.seedDonor(t, id.BloodBPos, 77.59, 12.928)  // ~2 km
	donorB, bearerB := e.seedDonor(t, id.BloodONeg, 77.59, 12.937)  // ~3 km
	_, bearerC := e.seedDonor(t, id.BloodABNeg, 77.59, 12.919)      // ~1 km

	// Hospital opens the request.
	req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/hospital/requests",
		map[string]any{"blood_group": "B+", "units": 2}), hospitalBearer)
	rr := testutil.DoRequest(e.router, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created request.Request
	testutil.DecodeJSON(t, rr, &created)
	require.False(t, created.ID.IsNil())

	// Both compatible donors see it.
	for _, bearer := range []string{bearerA, bearerB} {
		rr = testutil.DoRequest(e.router, authed(testutil.NewRequest(t, http.MethodGet, "/donor/requests/nearby"), bearer))
		require.Equal(t, http.StatusOK, rr.Code)
		var nearby donor.NearbyResult
		testutil.DecodeJSON(t, rr, &nearby)
		assert.True(t, nearby.Eligible)
		require.Len(t, nearby.Requests, 1)
		assert.Equal(t, created.ID, nearby.Requests[0].ID)
	}

	actionPath := "/donor/requests/" + created.ID.String() + "/action"
	acceptBody := map[string]string{"action": "accept"}

	// First accept keeps the request open.
	rr = testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPost, actionPath, acceptBody), bearerA))
	require.Equal(t, http.StatusOK, rr.Code)
	var res request.ActionResult
	testutil.DecodeJSON(t, rr, &res)
	assert.Equal(t, request.StatusOpen, res.Status)
	assert.Equal(t, 1, res.AcceptedCount)
	assert.Equal(t, []id.DonorID{donorA.ID}, res.Request.AcceptedDonorIDs)

	// Second accept fills it.
	rr = testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPost, actionPath, acceptBody), bearerB))
	require.Equal(t, http.StatusOK, rr.Code)
	testutil.DecodeJSON(t, rr, &res)
	assert.Equal(t, request.StatusAccepted, res.Status)
	assert.Equal(t, 2, res.AcceptedCount)
	assert.Equal(t, []id.DonorID{donorA.ID, donorB.ID}, res.Request.AcceptedDonorIDs)

	// A third donor is turned away.
	rr = testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPost, actionPath, acceptBody), bearerC))
	require.Equal(t, http.StatusConflict, rr.Code)
	var body map[string]any
	testutil.DecodeJSON(t, rr, &body)
	assert.Equal(t, "Request is no longer open", body["error_description"])

	// Hospital sees the filled request in its summary.
	rr = testutil.DoRequest(e.router, authed(testutil.NewRequest(t, http.MethodGet, "/hospital/requests/summary"), hospitalBearer))
	require.Equal(t, http.StatusOK, rr.Code)
	var summary struct {
		Summary map[string]int `json:"summary"`
	}
	testutil.DecodeJSON(t, rr, &summary)
	assert.Equal(t, 1, summary.Summary["accepted"])
	assert.Equal(t, 0, summary.Summary["open"])
}

func TestInvalidActionRejected(t *testing.T) {
	e := newEnv(t)
	_, hospitalBearer := e.seedHospital(t, 77.59, 12.91)
	_, bearer := e.seedDonor(t, id.BloodBPos, 77.59, 12.92)

	req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/hospital/requests",
		map[string]any{"blood_group": "B+"}), hospitalBearer)
	rr := testutil.DoRequest(e.router, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created request.Request
	testutil.DecodeJSON(t, rr, &created)

	rr = testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPost,
		"/donor/requests/"+created.ID.String()+"/action", map[string]string{"action": "maybe"}), bearer))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNotifyDonorsCountsExactMatches(t *testing.T) {
	e := newEnv(t)
	_, hospitalBearer := e.seedHospital(t, 77.59, 12.91)
	e.seedDonor(t, id.BloodAPos, 77.59, 12.92)  // exact, near
	e.seedDonor(t, id.BloodONeg, 77.59, 12.92)  // compatible, wrong group
	e.seedDonor(t, id.BloodAPos, 77.59, 13.50)  // exact, far

	req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/hospital/notify-donors",
		map[string]any{"blood_group": "A+"}), hospitalBearer)
	rr := testutil.DoRequest(e.router, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		NotifiedCount   int `json:"notified_count"`
		TotalCandidates int `json:"total_candidates"`
	}
	testutil.DecodeJSON(t, rr, &body)
	assert.Equal(t, 1, body.TotalCandidates)
	assert.Equal(t, 1, body.NotifiedCount)
}
