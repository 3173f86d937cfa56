// Package httptransport assembles the HTTP surface: platform middleware,
// module handlers, health, and metrics.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	donorhandler "bloodlink/internal/donor/handler"
	hospitalhandler "bloodlink/internal/hospital/handler"
	"bloodlink/internal/platform/middleware"
	"bloodlink/pkg/platform/httputil"
)

// Registrar is implemented by module handlers that mount their own routes.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires the full route tree. The donor and hospital handlers carry
// their own auth middleware; health and metrics stay open.
func NewRouter(donors *donorhandler.Handler, hospitals *hospitalhandler.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)

	for _, h := range []Registrar{donors, hospitals} {
		h.Register(r)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
