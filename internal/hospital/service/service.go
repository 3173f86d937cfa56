// Package service orchestrates the hospital-facing operations: opening
// requests with their best-effort fanout, ad hoc donor notification, and
// donor statistics.
package service

import (
	"context"
	"errors"
	"log/slog"

	"bloodlink/internal/history"
	"bloodlink/internal/hospital"
	"bloodlink/internal/notify"
	"bloodlink/internal/request"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/sentinel"
)

// Service coordinates hospitals, their requests, and donor notification.
type Service struct {
	hospitals  hospital.Store
	requests   *request.Service
	dispatcher *notify.Dispatcher
	ledger     history.Store
	logger     *slog.Logger
}

func New(hospitals hospital.Store, requests *request.Service, dispatcher *notify.Dispatcher, ledger history.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		hospitals:  hospitals,
		requests:   requests,
		dispatcher: dispatcher,
		ledger:     ledger,
		logger:     logger,
	}
}

// CreateRequest opens a request and kicks off the notification fanout in the
// background. The request is already persisted when this returns; a slow or
// failing fanout never affects the caller.
func (s *Service) CreateRequest(ctx context.Context, hospitalID id.HospitalID, group id.BloodGroup, units int) (*request.Request, error) {
	h, err := s.hospitals.FindByID(ctx, hospitalID)
	if err != nil {
		return nil, wrapHospitalErr(err)
	}

	r, err := s.requests.Create(ctx, hospitalID, group, units)
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		// Detached from the request lifecycle but keeps its values (trace,
		// request ID) for log correlation.
		fanoutCtx := context.WithoutCancel(ctx)
		go func() {
			if _, err := s.dispatcher.Dispatch(fanoutCtx, r, h); err != nil {
				s.logger.ErrorContext(fanoutCtx, "request fanout failed",
					"request_id", r.ID, "hospital_id", h.ID, "error", err)
			}
		}()
	}
	return r, nil
}

// NotifyDonors runs the hospital-initiated exact-match fanout synchronously
// and reports how many donors were reached.
func (s *Service) NotifyDonors(ctx context.Context, hospitalID id.HospitalID, group id.BloodGroup) (notify.Result, error) {
	if !group.IsValid() {
		return notify.Result{}, dErrors.New(dErrors.CodeValidation, "blood group must be one of the eight ABO/Rh types")
	}
	h, err := s.hospitals.FindByID(ctx, hospitalID)
	if err != nil {
		return notify.Result{}, wrapHospitalErr(err)
	}
	if s.dispatcher == nil {
		return notify.Result{}, dErrors.New(dErrors.CodeInternal, "notification dispatcher is not configured")
	}
	res, err := s.dispatcher.DispatchByBloodGroup(ctx, h, group)
	if err != nil {
		return notify.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to notify donors")
	}
	return res, nil
}

// Donors lists donors who have donated at this hospital with their counts,
// most frequent first.
func (s *Service) Donors(ctx context.Context, hospitalID id.HospitalID) ([]history.DonorSummary, error) {
	if _, err := s.hospitals.FindByID(ctx, hospitalID); err != nil {
		return nil, wrapHospitalErr(err)
	}
	summaries, err := s.ledger.DonorSummaries(ctx, hospitalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor summaries")
	}
	return summaries, nil
}

// Get returns the hospital record.
func (s *Service) Get(ctx context.Context, hospitalID id.HospitalID) (*hospital.Hospital, error) {
	h, err := s.hospitals.FindByID(ctx, hospitalID)
	if err != nil {
		return nil, wrapHospitalErr(err)
	}
	return h, nil
}

func wrapHospitalErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "Hospital not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "Hospital license id is already registered")
	default:
		var de *dErrors.DomainError
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "hospital operation failed")
	}
}
