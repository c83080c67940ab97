package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	domain "github.com/vessia-direct/api/internal/domain"
)

// PubSubNotifier publishes notification payloads to a Pub/Sub topic consumed by the
// external notification service. Delivery outcomes never feed back into the engine;
// callers treat Send as fire-and-forget.
type PubSubNotifier struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubNotifier constructs a Pub/Sub backed notifier.
func NewPubSubNotifier(topic *pubsub.Topic) (*PubSubNotifier, error) {
	if topic == nil {
		return nil, errors.New("pubsub notifier: topic is required")
	}
	return &PubSubNotifier{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// Send enqueues one notification message on the configured topic.
func (n *PubSubNotifier) Send(ctx context.Context, notification domain.Notification) error {
	if n == nil || n.topic == nil {
		return errors.New("pubsub notifier: not initialised")
	}

	data, err := n.marshal(notificationEnvelope{
		Type:          string(notification.Type),
		RecipientType: string(notification.RecipientType),
		RecipientID:   notification.RecipientID,
		Context:       notification.Context,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "type", string(notification.Type))
	setAttr(attrs, "recipientType", string(notification.RecipientType))
	setAttr(attrs, "recipientId", notification.RecipientID)

	result := n.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

type notificationEnvelope struct {
	Type          string         `json:"type"`
	RecipientType string         `json:"recipientType"`
	RecipientID   string         `json:"recipientId"`
	Context       map[string]any `json:"context,omitempty"`
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
