// Package middleware provides the HTTP middleware chain: authentication,
// request IDs, and request-scoped time.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/requestcontext"

	"bloodlink/internal/token"
)

// TokenValidator validates bearer tokens into claims.
type TokenValidator interface {
	Validate(tokenString string) (*token.Claims, error)
}

// RequireDonor authenticates the request and ensures the caller is a donor,
// injecting the donor ID into the context.
func RequireDonor(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return requireActor(validator, logger, token.ActorDonor)
}

// RequireHospital authenticates the request and ensures the caller is a
// hospital, injecting the hospital ID into the context.
func RequireHospital(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return requireActor(validator, logger, token.ActorHospital)
}

func requireActor(validator TokenValidator, logger *slog.Logger, want token.ActorType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.Validate(raw)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			if claims.ActorType != want {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden,
					"this endpoint is restricted to "+string(want)+" accounts"))
				return
			}

			switch want {
			case token.ActorDonor:
				donorID, err := id.ParseDonorID(claims.ActorID)
				if err != nil {
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
					return
				}
				ctx = requestcontext.WithDonorID(ctx, donorID)
			case token.ActorHospital:
				hospitalID, err := id.ParseHospitalID(claims.ActorID)
				if err != nil {
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
					return
				}
				ctx = requestcontext.WithHospitalID(ctx, hospitalID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
