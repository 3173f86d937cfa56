package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks notification delivery outcomes.
type Metrics struct {
	Delivered prometheus.Counter
	Failed    prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Delivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_notifications_delivered_total",
			Help: "Total number of donor notifications delivered",
		}),
		Failed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_notifications_failed_total",
			Help: "Total number of donor notification deliveries that failed",
		}),
	}
}

func (m *Metrics) incrementDelivered() {
	if m != nil {
		m.Delivered.Inc()
	}
}

func (m *Metrics) incrementFailed() {
	if m != nil {
		m.Failed.Inc()
	}
}
