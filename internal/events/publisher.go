// Package events publishes request lifecycle events to Kafka for downstream
// consumers (dashboards, inventory planners). Publishing is best-effort:
// a broker outage never fails the operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Event types emitted by the request module.
const (
	TypeRequestCreated  = "request.created"
	TypeRequestAccepted = "request.accepted"
	TypeRequestRejected = "request.rejected"
)

// Event is the JSON record written to the topic.
type Event struct {
	Type       string    `json:"type"`
	RequestID  string    `json:"request_id"`
	HospitalID string    `json:"hospital_id"`
	DonorID    string    `json:"donor_id,omitempty"`
	BloodGroup string    `json:"blood_group"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher writes events with an async produce. A nil Publisher is a valid
// no-op, so callers never branch on whether Kafka is configured.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New connects a producer to the given brokers. Call Close on shutdown.
func New(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Publish enqueues the event. Delivery failures are logged, not returned.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil || p.client == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal event", "type", event.Type, "error", err)
		return
	}
	record := &kgo.Record{Key: []byte(event.RequestID), Value: payload}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.ErrorContext(ctx, "publish event", "type", event.Type, "request_id", event.RequestID, "error", err)
		}
	})
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}
