package donor

import (
	"context"
	"errors"
	"log/slog"

	"bloodlink/internal/donor/geoindex"
	"bloodlink/internal/eligibility"
	"bloodlink/internal/history"
	"bloodlink/internal/hospital"
	"bloodlink/internal/request"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

// Profile is the donor's own view of their record.
type Profile struct {
	Donor       *Donor                 `json:"donor"`
	Eligibility eligibility.Evaluation `json:"eligibility"`
}

// HistoryView pairs the donation ledger with its aggregates.
type HistoryView struct {
	Records []history.DonationRecord `json:"records"`
	Stats   history.Stats            `json:"stats"`
}

// NearbyResult is the donor discovery response: open requests at hospitals
// within the radius, filtered to blood groups this donor can serve.
type NearbyResult struct {
	Eligible    bool                   `json:"eligible"`
	Eligibility eligibility.Evaluation `json:"eligibility"`
	Requests    []*request.Request     `json:"requests"`
}

// UpdateProfileParams carries a donor's partial self-edit. Nil fields are
// left unchanged.
type UpdateProfileParams struct {
	Name     *string
	Age      *int
	Gender   *string
	Phone    *string
	Location *id.Point
}

// Service serves the donor-facing operations: profile, history, and the
// compatibility-filtered discovery of nearby open requests.
type Service struct {
	donors         Store
	hospitals      hospital.Store
	requests       *request.Service
	eligibility    *eligibility.Evaluator
	ledger         history.Store
	index          *geoindex.Index
	nearbyRadiusKm float64
	logger         *slog.Logger
}

// NewService wires the donor service. index may be nil when Redis is not
// configured.
func NewService(
	donors Store,
	hospitals hospital.Store,
	requests *request.Service,
	evaluator *eligibility.Evaluator,
	ledger history.Store,
	index *geoindex.Index,
	nearbyRadiusKm float64,
	logger *slog.Logger,
) *Service {
	if nearbyRadiusKm <= 0 {
		nearbyRadiusKm = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		donors:         donors,
		hospitals:      hospitals,
		requests:       requests,
		eligibility:    evaluator,
		ledger:         ledger,
		index:          index,
		nearbyRadiusKm: nearbyRadiusKm,
		logger:         logger,
	}
}

// GetProfile returns the donor record with a current eligibility evaluation.
func (s *Service) GetProfile(ctx context.Context, donorID id.DonorID) (*Profile, error) {
	d, err := s.donors.FindByID(ctx, donorID)
	if err != nil {
		return nil, wrapDonorErr(err)
	}
	ev, err := s.eligibility.Evaluate(ctx, donorID, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to evaluate eligibility")
	}
	return &Profile{Donor: d, Eligibility: ev}, nil
}

// UpdateProfile applies a donor's self-edit. A location change is also
// pushed into the geo index so fanout sees the new position; index failures
// are logged, not surfaced, since the store is the source of truth.
func (s *Service) UpdateProfile(ctx context.Context, donorID id.DonorID, params UpdateProfileParams) (*Donor, error) {
	d, err := s.donors.FindByID(ctx, donorID)
	if err != nil {
		return nil, wrapDonorErr(err)
	}

	if params.Name != nil {
		if *params.Name == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "donor name cannot be empty")
		}
		d.Name = *params.Name
	}
	if params.Age != nil {
		if *params.Age < 18 || *params.Age > 65 {
			return nil, dErrors.New(dErrors.CodeValidation, "donor age must be between 18 and 65")
		}
		d.Age = *params.Age
	}
	if params.Gender != nil {
		d.Gender = *params.Gender
	}
	if params.Phone != nil {
		if *params.Phone == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "donor phone cannot be empty")
		}
		d.Phone = *params.Phone
	}
	if params.Location != nil {
		p, err := id.NewPoint(params.Location.Longitude, params.Location.Latitude)
		if err != nil {
			return nil, err
		}
		d.Location = &Location{Point: p, UpdatedAt: requestcontext.Now(ctx)}
	}

	if err := s.donors.Update(ctx, d); err != nil {
		return nil, wrapDonorErr(err)
	}

	if params.Location != nil && s.index != nil {
		if err := s.index.Upsert(ctx, d.ID, d.BloodGroup, d.Location.Point); err != nil {
			s.logger.WarnContext(ctx, "failed to update donor geo index",
				"donor_id", d.ID, "error", err)
		}
	}
	return d, nil
}

// History returns the donor's donation ledger, newest first, with totals.
func (s *Service) History(ctx context.Context, donorID id.DonorID) (*HistoryView, error) {
	if _, err := s.donors.FindByID(ctx, donorID); err != nil {
		return nil, wrapDonorErr(err)
	}
	records, err := s.ledger.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donation history")
	}
	return &HistoryView{Records: records, Stats: history.StatsOf(records)}, nil
}

// NearbyRequests finds open requests the donor can serve: eligibility gate
// first, then hospitals within the radius of the donor's location, then
// open requests filtered through the compatibility table, newest first.
// An ineligible donor gets the evaluation detail and no requests.
func (s *Service) NearbyRequests(ctx context.Context, donorID id.DonorID) (*NearbyResult, error) {
	d, err := s.donors.FindByID(ctx, donorID)
	if err != nil {
		return nil, wrapDonorErr(err)
	}

	ev, err := s.eligibility.Evaluate(ctx, donorID, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to evaluate eligibility")
	}
	if !ev.Eligible {
		return &NearbyResult{Eligible: false, Eligibility: ev}, nil
	}

	if d.Location == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "donor location is not set; update your profile first")
	}

	hospitals, err := s.hospitals.ListWithinRadius(ctx, d.Location.Point, s.nearbyRadiusKm)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find nearby hospitals")
	}
	if len(hospitals) == 0 {
		return &NearbyResult{Eligible: true, Eligibility: ev}, nil
	}

	hospitalIDs := make([]id.HospitalID, len(hospitals))
	for i, h := range hospitals {
		hospitalIDs[i] = h.ID
	}
	open, err := s.requests.ListOpenByHospitals(ctx, hospitalIDs)
	if err != nil {
		return nil, err
	}

	matched := make([]*request.Request, 0, len(open))
	for _, r := range open {
		if id.CanDonateTo(d.BloodGroup, r.BloodGroup) {
			matched = append(matched, r)
		}
	}
	return &NearbyResult{Eligible: true, Eligibility: ev, Requests: matched}, nil
}

func wrapDonorErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "Donor not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "Donor already exists")
	default:
		var de *dErrors.DomainError
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "donor operation failed")
	}
}
