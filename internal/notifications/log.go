package notifications

import (
	"context"

	domain "github.com/vessia-direct/api/internal/domain"
)

// LogNotifier records notifications through a logging callback instead of delivering
// them. It backs local development and environments without a Pub/Sub topic.
type LogNotifier struct {
	log func(context.Context, string, map[string]any)
}

// NewLogNotifier constructs a notifier that only logs. A nil callback disables output.
func NewLogNotifier(log func(context.Context, string, map[string]any)) *LogNotifier {
	if log == nil {
		log = func(context.Context, string, map[string]any) {}
	}
	return &LogNotifier{log: log}
}

// Send logs the notification and reports success.
func (n *LogNotifier) Send(ctx context.Context, notification domain.Notification) error {
	n.log(ctx, "notification.sent", map[string]any{
		"type":          string(notification.Type),
		"recipientType": string(notification.RecipientType),
		"recipientId":   notification.RecipientID,
		"context":       notification.Context,
	})
	return nil
}
