package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"bloodlink/internal/donor"
	"bloodlink/internal/donor/geoindex"
	"bloodlink/internal/hospital"
	"bloodlink/internal/request"
	id "bloodlink/pkg/domain"
)

// Dispatcher finds candidate donors for a request and hands each to the
// Notifier. Candidates are donors of the exact blood group within the
// configured radius of the hospital; the compatibility matrix is
// deliberately not applied here. Fanout wants a focused audience, the
// donor-side browse wants every donor able to help.
type Dispatcher struct {
	donors   donor.Store
	index    *geoindex.Index
	notifier Notifier
	cfg      Config
	metrics  *Metrics
	logger   *slog.Logger
}

// NewDispatcher wires the fanout. index may be nil; the donor store's
// radius query is the fallback locator.
func NewDispatcher(donors donor.Store, index *geoindex.Index, notifier Notifier, cfg Config, metrics *Metrics, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		donors:   donors,
		index:    index,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
		metrics:  metrics,
		logger:   logger,
	}
}

// Dispatch notifies exact-match donors near the hospital about the request.
// Individual delivery failures are counted and logged, never returned; the
// only error path is failing to enumerate candidates at all.
func (d *Dispatcher) Dispatch(ctx context.Context, r *request.Request, h *hospital.Hospital) (Result, error) {
	msg := Message{
		Subject:      fmt.Sprintf("Urgent: %s blood needed at %s", r.BloodGroup, h.Name),
		Body:         fmt.Sprintf("%s needs %d unit(s) of %s blood. Open the app to respond.", h.Name, r.Units, r.BloodGroup),
		HospitalName: h.Name,
		BloodGroup:   r.BloodGroup,
		RequestID:    r.ID,
	}
	return d.fanout(ctx, h, r.BloodGroup, msg)
}

// DispatchByBloodGroup is the hospital-initiated variant, independent of any
// request.
func (d *Dispatcher) DispatchByBloodGroup(ctx context.Context, h *hospital.Hospital, group id.BloodGroup) (Result, error) {
	msg := Message{
		Subject:      fmt.Sprintf("%s is looking for %s donors", h.Name, group),
		Body:         fmt.Sprintf("%s is looking for donors with %s blood near you.", h.Name, group),
		HospitalName: h.Name,
		BloodGroup:   group,
	}
	return d.fanout(ctx, h, group, msg)
}

func (d *Dispatcher) fanout(ctx context.Context, h *hospital.Hospital, group id.BloodGroup, msg Message) (Result, error) {
	candidates, err := d.candidates(ctx, h, group)
	if err != nil {
		return Result{}, err
	}

	limiter := rate.NewLimiter(rate.Limit(d.cfg.DeliveriesPerSecond), d.cfg.Workers)
	var delivered, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)
	for _, candidate := range candidates {
		candidate := candidate
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				failed.Add(1)
				return nil
			}
			if err := d.notifier.Notify(gctx, candidate, msg); err != nil {
				failed.Add(1)
				d.metrics.incrementFailed()
				d.logger.WarnContext(gctx, "notification delivery failed",
					"donor_id", candidate.ID, "blood_group", group, "error", err)
				return nil
			}
			delivered.Add(1)
			d.metrics.incrementDelivered()
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		TotalCandidates: len(candidates),
		Delivered:       int(delivered.Load()),
		Failed:          int(failed.Load()),
	}
	d.logger.InfoContext(ctx, "notification fanout complete",
		"hospital_id", h.ID, "blood_group", group,
		"candidates", res.TotalCandidates, "delivered", res.Delivered, "failed", res.Failed)
	return res, nil
}

// candidates prefers the Redis GEO index and falls back to the donor store
// when the index is absent or degraded.
func (d *Dispatcher) candidates(ctx context.Context, h *hospital.Hospital, group id.BloodGroup) ([]*donor.Donor, error) {
	if d.index != nil {
		ids, err := d.index.SearchWithin(ctx, group, h.Location, d.cfg.RadiusKm)
		if err == nil {
			return d.resolve(ctx, ids)
		}
		d.logger.WarnContext(ctx, "geo index unavailable, falling back to store scan", "error", err)
	}
	candidates, err := d.donors.ListByBloodGroupWithin(ctx, group, h.Location, d.cfg.RadiusKm)
	if err != nil {
		return nil, fmt.Errorf("list candidate donors: %w", err)
	}
	return candidates, nil
}

func (d *Dispatcher) resolve(ctx context.Context, ids []id.DonorID) ([]*donor.Donor, error) {
	out := make([]*donor.Donor, 0, len(ids))
	for _, donorID := range ids {
		candidate, err := d.donors.FindByID(ctx, donorID)
		if err != nil {
			// Index entries can outlive donor records; skip strays.
			continue
		}
		out = append(out, candidate)
	}
	return out, nil
}
