package request

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"bloodlink/internal/eligibility"
	"bloodlink/internal/events"
	requestmetrics "bloodlink/internal/request/metrics"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

var tracer = otel.Tracer("bloodlink/internal/request")

// ActionResult is returned to a donor after a successful accept or reject.
type ActionResult struct {
	Request       *Request `json:"request"`
	Status        Status   `json:"status"`
	AcceptedCount int      `json:"accepted_count"`
	RequiredUnits int      `json:"required_units"`
}

// UpdatePatch carries a hospital's partial edit of its own request.
// Nil fields are left unchanged.
type UpdatePatch struct {
	BloodGroup *id.BloodGroup
	Units      *int
	Status     *Status
}

// Service orchestrates the request lifecycle.
type Service struct {
	requests    Store
	eligibility *eligibility.Evaluator
	metrics     *requestmetrics.Metrics
	publisher   *events.Publisher
	logger      *slog.Logger
}

type serviceConfig struct {
	metrics   *requestmetrics.Metrics
	publisher *events.Publisher
	logger    *slog.Logger
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

func WithMetrics(m *requestmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

func WithPublisher(p *events.Publisher) Option {
	return func(c *serviceConfig) { c.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = l }
}

func NewService(requests Store, evaluator *eligibility.Evaluator, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Service{
		requests:    requests,
		eligibility: evaluator,
		metrics:     cfg.metrics,
		publisher:   cfg.publisher,
		logger:      cfg.logger,
	}
}

// Create opens a new request for the hospital and returns it. Fanout and
// event publication are side effects the caller triggers afterwards; the
// request itself is persisted before either runs.
func (s *Service) Create(ctx context.Context, hospitalID id.HospitalID, group id.BloodGroup, units int) (*Request, error) {
	now := requestcontext.Now(ctx)
	r, err := NewRequest(id.NewRequestID(), hospitalID, group, units, now)
	if err != nil {
		return nil, err
	}
	if err := s.requests.Create(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create request")
	}

	s.incrementCreated()
	s.publisher.Publish(ctx, events.Event{
		Type:       events.TypeRequestCreated,
		RequestID:  r.ID.String(),
		HospitalID: r.HospitalID.String(),
		BloodGroup: string(r.BloodGroup),
		Status:     string(r.Status),
		Timestamp:  now,
	})
	s.logger.InfoContext(ctx, "request created",
		"request_id", r.ID, "hospital_id", r.HospitalID,
		"blood_group", r.BloodGroup, "units", r.Units)
	return r, nil
}

// Accept commits the donor to the request.
//
// Preconditions checked in order: donor eligible, donor not committed to
// another active request, request open and donor not already in its list.
// The last two run inside the store's Execute callback so they are evaluated
// against the locked acceptance list. At most Units donors ever get in.
func (s *Service) Accept(ctx context.Context, requestID id.RequestID, donorID id.DonorID) (*ActionResult, error) {
	ctx, span := tracer.Start(ctx, "request.Accept")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.id", requestID.String()),
		attribute.String("donor.id", donorID.String()),
	)
	start := time.Now()
	now := requestcontext.Now(ctx)

	ev, err := s.eligibility.Evaluate(ctx, donorID, now)
	if err != nil {
		span.SetStatus(codes.Error, "eligibility check failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to evaluate donor eligibility")
	}
	if !ev.Eligible {
		s.incrementAcceptConflicts()
		conflict := dErrors.New(dErrors.CodeConflict, "Donor is not eligible to donate yet").
			WithDetail("reason", ev.Reason)
		if ev.NextEligibleAt != nil {
			conflict = conflict.WithDetail("nextEligibleDate", ev.NextEligibleAt)
		}
		return nil, conflict
	}

	// A donor may hold at most one active commitment across all requests.
	active, err := s.requests.FindActiveByDonor(ctx, donorID)
	if err != nil {
		span.SetStatus(codes.Error, "commitment check failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check donor commitments")
	}
	if active != nil {
		s.incrementAcceptConflicts()
		if active.ID == requestID {
			return nil, dErrors.New(dErrors.CodeConflict, "Donor has already accepted this request")
		}
		return nil, dErrors.New(dErrors.CodeConflict, "Donor is already committed to another active request").
			WithDetail("activeRequestId", active.ID.String())
	}

	r, err := s.requests.Execute(ctx, requestID,
		func(r *Request) error {
			if err := r.CanAcceptDonor(donorID); err != nil {
				return asConflict(err)
			}
			return nil
		},
		func(r *Request) {
			r.ApplyAccept(donorID, now)
		},
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.incrementAcceptConflicts()
		}
		return nil, wrapRequestErr(err)
	}

	s.incrementAccepts()
	s.observeAccept(start)
	s.publisher.Publish(ctx, events.Event{
		Type:       events.TypeRequestAccepted,
		RequestID:  r.ID.String(),
		HospitalID: r.HospitalID.String(),
		DonorID:    donorID.String(),
		BloodGroup: string(r.BloodGroup),
		Status:     string(r.Status),
		Timestamp:  now,
	})
	s.logger.InfoContext(ctx, "donor accepted request",
		"request_id", r.ID, "donor_id", donorID,
		"accepted", r.AcceptedCount(), "units", r.Units, "status", r.Status)
	return actionResult(r), nil
}

// Reject withdraws the donor's commitment, reopening the request when the
// list drops below the unit count.
func (s *Service) Reject(ctx context.Context, requestID id.RequestID, donorID id.DonorID) (*ActionResult, error) {
	ctx, span := tracer.Start(ctx, "request.Reject")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.id", requestID.String()),
		attribute.String("donor.id", donorID.String()),
	)
	now := requestcontext.Now(ctx)

	r, err := s.requests.Execute(ctx, requestID,
		func(r *Request) error {
			if err := r.CanRejectDonor(donorID); err != nil {
				return asConflict(err)
			}
			return nil
		},
		func(r *Request) {
			r.ApplyReject(donorID, now)
		},
	)
	if err != nil {
		return nil, wrapRequestErr(err)
	}

	s.incrementRejects()
	s.publisher.Publish(ctx, events.Event{
		Type:       events.TypeRequestRejected,
		RequestID:  r.ID.String(),
		HospitalID: r.HospitalID.String(),
		DonorID:    donorID.String(),
		BloodGroup: string(r.BloodGroup),
		Status:     string(r.Status),
		Timestamp:  now,
	})
	s.logger.InfoContext(ctx, "donor rejected request",
		"request_id", r.ID, "donor_id", donorID,
		"accepted", r.AcceptedCount(), "status", r.Status)
	return actionResult(r), nil
}

// Get returns a request by ID.
func (s *Service) Get(ctx context.Context, requestID id.RequestID) (*Request, error) {
	r, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err)
	}
	return r, nil
}

// ListOpenByHospitals returns open requests for the given hospitals,
// newest first. Used by the donor discovery path.
func (s *Service) ListOpenByHospitals(ctx context.Context, hospitalIDs []id.HospitalID) ([]*Request, error) {
	rs, err := s.requests.ListOpenByHospitals(ctx, hospitalIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list open requests")
	}
	return rs, nil
}

// ListByHospital returns the hospital's own requests, newest first.
func (s *Service) ListByHospital(ctx context.Context, hospitalID id.HospitalID, status *Status) ([]*Request, error) {
	rs, err := s.requests.ListByHospital(ctx, hospitalID, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list hospital requests")
	}
	return rs, nil
}

// Summary aggregates the hospital's request counts by status, with zero
// entries for statuses it has none of.
func (s *Service) Summary(ctx context.Context, hospitalID id.HospitalID) (map[Status]int, error) {
	counts, err := s.requests.CountByStatus(ctx, hospitalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to summarize requests")
	}
	for _, st := range Statuses {
		if _, ok := counts[st]; !ok {
			counts[st] = 0
		}
	}
	return counts, nil
}

// UpdateRequest applies a hospital's partial edit to a request it owns.
// Status edits must follow the state machine; shrinking units below the
// current acceptance count is refused.
func (s *Service) UpdateRequest(ctx context.Context, hospitalID id.HospitalID, requestID id.RequestID, patch UpdatePatch) (*Request, error) {
	now := requestcontext.Now(ctx)
	r, err := s.requests.Execute(ctx, requestID,
		func(r *Request) error {
			if r.HospitalID != hospitalID {
				// Ownership failures read as NotFound so a hospital cannot
				// probe for other hospitals' request IDs.
				return sentinel.ErrNotFound
			}
			if patch.Units != nil {
				if *patch.Units < 1 {
					return dErrors.New(dErrors.CodeValidation, "units must be at least 1")
				}
				if *patch.Units < r.AcceptedCount() {
					return dErrors.New(dErrors.CodeConflict, "units cannot be lower than the number of accepted donors")
				}
			}
			if patch.BloodGroup != nil && !patch.BloodGroup.IsValid() {
				return dErrors.New(dErrors.CodeValidation, "blood group must be one of the eight ABO/Rh types")
			}
			if patch.Status != nil && *patch.Status != r.Status && !r.Status.CanTransitionTo(*patch.Status) {
				return dErrors.New(dErrors.CodeConflict, "invalid status transition").
					WithDetail("from", string(r.Status)).
					WithDetail("to", string(*patch.Status))
			}
			return nil
		},
		func(r *Request) {
			if patch.BloodGroup != nil {
				r.BloodGroup = *patch.BloodGroup
			}
			if patch.Units != nil {
				r.Units = *patch.Units
				if r.Status.IsActive() {
					if r.AcceptedCount() >= r.Units {
						r.Status = StatusAccepted
					} else {
						r.Status = StatusOpen
					}
				}
			}
			if patch.Status != nil {
				r.Status = *patch.Status
			}
			r.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapRequestErr(err)
	}
	s.logger.InfoContext(ctx, "request updated",
		"request_id", r.ID, "hospital_id", hospitalID, "status", r.Status)
	return r, nil
}

// Delete removes a single request owned by the hospital.
func (s *Service) Delete(ctx context.Context, hospitalID id.HospitalID, requestID id.RequestID) error {
	if err := s.requests.DeleteByID(ctx, hospitalID, requestID); err != nil {
		return wrapRequestErr(err)
	}
	s.logger.InfoContext(ctx, "request deleted", "request_id", requestID, "hospital_id", hospitalID)
	return nil
}

// DeleteAll removes every request owned by the hospital and returns the
// number removed.
func (s *Service) DeleteAll(ctx context.Context, hospitalID id.HospitalID) (int, error) {
	deleted, err := s.requests.DeleteByHospital(ctx, hospitalID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete hospital requests")
	}
	s.logger.InfoContext(ctx, "hospital requests deleted", "hospital_id", hospitalID, "count", deleted)
	return deleted, nil
}

func actionResult(r *Request) *ActionResult {
	return &ActionResult{
		Request:       r,
		Status:        r.Status,
		AcceptedCount: r.AcceptedCount(),
		RequiredUnits: r.Units,
	}
}

// asConflict converts a model invariant violation into the Conflict the
// donor sees, keeping the model's message.
func asConflict(err error) error {
	var de *dErrors.DomainError
	if errors.As(err, &de) && de.Code == dErrors.CodeInvariantViolation {
		return dErrors.New(dErrors.CodeConflict, de.Message)
	}
	return err
}

func wrapRequestErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "Request not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "Request already exists")
	default:
		var de *dErrors.DomainError
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "request operation failed")
	}
}

func (s *Service) incrementCreated() {
	if s.metrics != nil {
		s.metrics.IncrementRequestsCreated()
	}
}

func (s *Service) incrementAccepts() {
	if s.metrics != nil {
		s.metrics.IncrementAccepts()
	}
}

func (s *Service) incrementRejects() {
	if s.metrics != nil {
		s.metrics.IncrementRejects()
	}
}

func (s *Service) incrementAcceptConflicts() {
	if s.metrics != nil {
		s.metrics.IncrementAcceptConflicts()
	}
}

func (s *Service) observeAccept(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveAccept(start)
	}
}
