package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the request module.
// Tracks lifecycle counts and the accept path duration.
type Metrics struct {
	RequestsCreated prometheus.Counter
	Accepts         prometheus.Counter
	Rejects         prometheus.Counter
	AcceptConflicts prometheus.Counter
	AcceptDuration  prometheus.Histogram
}

// New creates a Metrics instance with all request module metrics registered.
func New() *Metrics {
	return &Metrics{
		RequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_requests_created_total",
			Help: "Total number of blood requests created",
		}),
		Accepts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_request_accepts_total",
			Help: "Total number of successful donor accepts",
		}),
		Rejects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_request_rejects_total",
			Help: "Total number of successful donor rejects",
		}),
		AcceptConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_request_accept_conflicts_total",
			Help: "Accept attempts refused by a precondition (closed, duplicate, ineligible, committed elsewhere)",
		}),
		AcceptDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodlink_request_accept_duration_seconds",
			Help:    "Duration of Accept operations (donor action critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementRequestsCreated records a successful request creation.
func (m *Metrics) IncrementRequestsCreated() {
	m.RequestsCreated.Inc()
}

// IncrementAccepts records a successful donor accept.
func (m *Metrics) IncrementAccepts() {
	m.Accepts.Inc()
}

// IncrementRejects records a successful donor reject.
func (m *Metrics) IncrementRejects() {
	m.Rejects.Inc()
}

// IncrementAcceptConflicts records an accept refused by a precondition.
func (m *Metrics) IncrementAcceptConflicts() {
	m.AcceptConflicts.Inc()
}

// ObserveAccept records the duration of an Accept operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAccept(start time.Time) {
	m.AcceptDuration.Observe(time.Since(start).Seconds())
}
