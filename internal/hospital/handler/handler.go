// Package handler exposes the hospital-facing HTTP routes.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	hospitalservice "bloodlink/internal/hospital/service"
	"bloodlink/internal/platform/middleware"
	"bloodlink/internal/request"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/requestcontext"
)

// Handler serves the hospital endpoints. Every route requires a hospital
// token; ownership of the targeted request is checked in the service.
type Handler struct {
	hospitals *hospitalservice.Service
	requests  *request.Service
	validator middleware.TokenValidator
	logger    *slog.Logger
}

func New(hospitals *hospitalservice.Service, requests *request.Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		hospitals: hospitals,
		requests:  requests,
		validator: validator,
		logger:    logger,
	}
}

// Register mounts the hospital routes.
func (h *Handler) Register(r chi.Router) {
	hospitalRouter := chi.NewRouter()
	hospitalRouter.Use(middleware.RequireHospital(h.validator, h.logger))
	hospitalRouter.Post("/requests", h.handleCreateRequest)
	hospitalRouter.Get("/requests", h.handleListRequests)
	hospitalRouter.Delete("/requests", h.handleDeleteAllRequests)
	hospitalRouter.Get("/requests/summary", h.handleSummary)
	hospitalRouter.Get("/requests/status/{status}", h.handleListByStatus)
	hospitalRouter.Patch("/requests/{requestID}", h.handleUpdateRequest)
	hospitalRouter.Delete("/requests/{requestID}", h.handleDeleteRequest)
	hospitalRouter.Post("/notify-donors", h.handleNotifyDonors)
	hospitalRouter.Get("/donors", h.handleDonors)

	r.Mount("/hospital", hospitalRouter)
}

// createRequestBody opens a request; units defaults to 1 when omitted.
type createRequestBody struct {
	BloodGroup string `json:"blood_group"`
	Units      int    `json:"units"`
}

func (c *createRequestBody) Validate() error {
	if c.BloodGroup == "" {
		return dErrors.New(dErrors.CodeValidation, "blood_group is required")
	}
	if _, err := id.ParseBloodGroup(c.BloodGroup); err != nil {
		return err
	}
	if c.Units < 0 {
		return dErrors.New(dErrors.CodeValidation, "units must be at least 1")
	}
	return nil
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hospitalID := requestcontext.HospitalID(ctx)

	body, ok := httputil.DecodeAndPrepare[createRequestBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	group, _ := id.ParseBloodGroup(body.BloodGroup)

	created, err := h.hospitals.CreateRequest(ctx, hospitalID, group, body.Units)
	if err != nil {
		h.logError(r, "create request failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rs, err := h.requests.ListByHospital(ctx, requestcontext.HospitalID(ctx), nil)
	if err != nil {
		h.logError(r, "list requests failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"requests": rs})
}

func (h *Handler) handleListByStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := request.ParseStatus(chi.URLParam(r, "status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rs, err := h.requests.ListByHospital(ctx, requestcontext.HospitalID(ctx), &status)
	if err != nil {
		h.logError(r, "list requests by status failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"requests": rs})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	counts, err := h.requests.Summary(ctx, requestcontext.HospitalID(ctx))
	if err != nil {
		h.logError(r, "request summary failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"summary": counts})
}

// updateRequestBody is a partial edit; absent fields are left unchanged.
type updateRequestBody struct {
	BloodGroup *string `json:"blood_group"`
	Units      *int    `json:"units"`
	Status     *string `json:"status"`
}

func (u *updateRequestBody) Validate() error {
	if u.BloodGroup == nil && u.Units == nil && u.Status == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one of blood_group, units, status is required")
	}
	if u.BloodGroup != nil {
		if _, err := id.ParseBloodGroup(*u.BloodGroup); err != nil {
			return err
		}
	}
	if u.Status != nil {
		if _, err := request.ParseStatus(*u.Status); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) handleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hospitalID := requestcontext.HospitalID(ctx)

	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request id"))
		return
	}
	body, ok := httputil.DecodeAndPrepare[updateRequestBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	var patch request.UpdatePatch
	if body.BloodGroup != nil {
		group, _ := id.ParseBloodGroup(*body.BloodGroup)
		patch.BloodGroup = &group
	}
	if body.Units != nil {
		patch.Units = body.Units
	}
	if body.Status != nil {
		status, _ := request.ParseStatus(*body.Status)
		patch.Status = &status
	}

	updated, err := h.requests.UpdateRequest(ctx, hospitalID, requestID, patch)
	if err != nil {
		h.logError(r, "update request failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request id"))
		return
	}
	if err := h.requests.Delete(ctx, requestcontext.HospitalID(ctx), requestID); err != nil {
		h.logError(r, "delete request failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteAllRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deleted, err := h.requests.DeleteAll(ctx, requestcontext.HospitalID(ctx))
	if err != nil {
		h.logError(r, "delete all requests failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// notifyDonorsBody is the hospital-initiated exact-match fanout.
type notifyDonorsBody struct {
	BloodGroup string `json:"blood_group"`
}

func (n *notifyDonorsBody) Validate() error {
	if n.BloodGroup == "" {
		return dErrors.New(dErrors.CodeValidation, "blood_group is required")
	}
	if _, err := id.ParseBloodGroup(n.BloodGroup); err != nil {
		return err
	}
	return nil
}

func (h *Handler) handleNotifyDonors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hospitalID := requestcontext.HospitalID(ctx)

	body, ok := httputil.DecodeAndPrepare[notifyDonorsBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	group, _ := id.ParseBloodGroup(body.BloodGroup)

	res, err := h.hospitals.NotifyDonors(ctx, hospitalID, group)
	if err != nil {
		h.logError(r, "notify donors failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"notified_count":   res.Delivered,
		"total_candidates": res.TotalCandidates,
	})
}

func (h *Handler) handleDonors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summaries, err := h.hospitals.Donors(ctx, requestcontext.HospitalID(ctx))
	if err != nil {
		h.logError(r, "list donors failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"donors": summaries})
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx), "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx), "error", err)
}
