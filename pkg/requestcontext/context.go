// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them without importing
// net/http. Tests inject them directly:
//
//	ctx = requestcontext.WithDonorID(ctx, donorID)
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "bloodlink/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	donorIDKey     struct{}
	hospitalIDKey  struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// DonorID retrieves the authenticated donor ID from the context.
// Returns the zero value (nil UUID) if the caller is not a donor.
func DonorID(ctx context.Context) id.DonorID {
	if donorID, ok := ctx.Value(donorIDKey{}).(id.DonorID); ok {
		return donorID
	}
	return id.DonorID{}
}

// WithDonorID injects a donor ID into the context.
func WithDonorID(ctx context.Context, donorID id.DonorID) context.Context {
	return context.WithValue(ctx, donorIDKey{}, donorID)
}

// HospitalID retrieves the authenticated hospital ID from the context.
// Returns the zero value (nil UUID) if the caller is not a hospital.
func HospitalID(ctx context.Context) id.HospitalID {
	if hospitalID, ok := ctx.Value(hospitalIDKey{}).(id.HospitalID); ok {
		return hospitalID
	}
	return id.HospitalID{}
}

// WithHospitalID injects a hospital ID into the context.
func WithHospitalID(ctx context.Context, hospitalID id.HospitalID) context.Context {
	return context.WithValue(ctx, hospitalIDKey{}, hospitalID)
}

// RequestID retrieves the correlation ID for the current HTTP request.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context so every check within
// one call observes the same clock reading. Falls back to time.Now() for
// non-HTTP contexts (workers, tests that don't inject a time).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that pin the clock and for batch operations needing one timestamp.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
