package notify

import (
	"context"
	"log/slog"

	"bloodlink/internal/donor"
)

// LogNotifier is the delivery stand-in used when no email/SMS gateway is
// configured. It records the would-be notification and succeeds.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, recipient *donor.Donor, msg Message) error {
	n.logger.InfoContext(ctx, "notification",
		"donor_id", recipient.ID, "email", recipient.Email, "subject", msg.Subject)
	return nil
}
