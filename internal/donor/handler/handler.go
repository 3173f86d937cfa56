// Package handler exposes the donor-facing HTTP routes.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bloodlink/internal/donor"
	"bloodlink/internal/platform/middleware"
	"bloodlink/internal/request"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/requestcontext"
)

// Handler serves the donor endpoints. Every route requires a donor token.
type Handler struct {
	donors    *donor.Service
	requests  *request.Service
	validator middleware.TokenValidator
	logger    *slog.Logger
}

func New(donors *donor.Service, requests *request.Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		donors:    donors,
		requests:  requests,
		validator: validator,
		logger:    logger,
	}
}

// Register mounts the donor routes.
func (h *Handler) Register(r chi.Router) {
	donorRouter := chi.NewRouter()
	donorRouter.Use(middleware.RequireDonor(h.validator, h.logger))
	donorRouter.Get("/requests/nearby", h.handleNearbyRequests)
	donorRouter.Post("/requests/{requestID}/action", h.handleRequestAction)
	donorRouter.Get("/history", h.handleHistory)
	donorRouter.Get("/profile", h.handleGetProfile)
	donorRouter.Put("/profile", h.handleUpdateProfile)

	r.Mount("/donor", donorRouter)
}

func (h *Handler) handleNearbyRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donorID := requestcontext.DonorID(ctx)

	res, err := h.donors.NearbyRequests(ctx, donorID)
	if err != nil {
		h.logError(r, "nearby requests failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// actionRequest is the accept/reject body.
type actionRequest struct {
	Action string `json:"action"`
}

func (a *actionRequest) Validate() error {
	if a.Action != "accept" && a.Action != "reject" {
		return dErrors.New(dErrors.CodeValidation, "action must be accept or reject")
	}
	return nil
}

func (h *Handler) handleRequestAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donorID := requestcontext.DonorID(ctx)

	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request id"))
		return
	}

	body, ok := httputil.DecodeAndPrepare[actionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	var res *request.ActionResult
	switch body.Action {
	case "accept":
		res, err = h.requests.Accept(ctx, requestID, donorID)
	case "reject":
		res, err = h.requests.Reject(ctx, requestID, donorID)
	}
	if err != nil {
		h.logError(r, "request action failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.donors.History(ctx, requestcontext.DonorID(ctx))
	if err != nil {
		h.logError(r, "history lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile, err := h.donors.GetProfile(ctx, requestcontext.DonorID(ctx))
	if err != nil {
		h.logError(r, "profile lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// updateProfileRequest carries partial profile edits. Coordinates come as a
// pair; sending one without the other is rejected.
type updateProfileRequest struct {
	Name      *string  `json:"name"`
	Age       *int     `json:"age"`
	Gender    *string  `json:"gender"`
	Phone     *string  `json:"phone"`
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
}

func (u *updateProfileRequest) Validate() error {
	if (u.Longitude == nil) != (u.Latitude == nil) {
		return dErrors.New(dErrors.CodeValidation, "longitude and latitude must be provided together")
	}
	return nil
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donorID := requestcontext.DonorID(ctx)

	body, ok := httputil.DecodeAndPrepare[updateProfileRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	params := donor.UpdateProfileParams{
		Name:   body.Name,
		Age:    body.Age,
		Gender: body.Gender,
		Phone:  body.Phone,
	}
	if body.Longitude != nil {
		params.Location = &id.Point{Longitude: *body.Longitude, Latitude: *body.Latitude}
	}

	updated, err := h.donors.UpdateProfile(ctx, donorID, params)
	if err != nil {
		h.logError(r, "profile update failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
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
