// Package notify fans a blood request out to matching donors near the
// requesting hospital. Delivery goes through an external Notifier (email,
// SMS); the fanout is best-effort and never fails the operation that
// triggered it.
package notify

import (
	"context"

	"bloodlink/internal/donor"
	id "bloodlink/pkg/domain"
)

// Notifier is the external delivery collaborator.
type Notifier interface {
	Notify(ctx context.Context, recipient *donor.Donor, msg Message) error
}

// Message is what a candidate donor receives.
type Message struct {
	Subject      string
	Body         string
	HospitalName string
	BloodGroup   id.BloodGroup
	RequestID    id.RequestID
}

// Result reports how a dispatch went. Failed is informational; failures are
// already logged and never propagate.
type Result struct {
	TotalCandidates int `json:"total_candidates"`
	Delivered       int `json:"delivered"`
	Failed          int `json:"failed"`
}

// Config bounds the fanout. Injected at construction; there is no ambient
// transporter state.
type Config struct {
	RadiusKm            float64
	Workers             int
	DeliveriesPerSecond float64
}

func (c Config) withDefaults() Config {
	if c.RadiusKm <= 0 {
		c.RadiusKm = 5
	}
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.DeliveriesPerSecond <= 0 {
		c.DeliveriesPerSecond = 20
	}
	return c
}
