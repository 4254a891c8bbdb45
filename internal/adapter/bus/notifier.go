// Package bus implements a notifier.Notifier that publishes notification
// events onto the message queue for downstream consumers (UI, reporting).
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arbiterhq/arbiter/internal/port/messagequeue"
	"github.com/arbiterhq/arbiter/internal/port/notifier"
)

const providerName = "bus"

// Notifier publishes notifications to the notifications subject.
type Notifier struct {
	queue messagequeue.Queue
}

// NewNotifier creates a bus-backed notifier.
func NewNotifier(queue messagequeue.Queue) *Notifier {
	return &Notifier{queue: queue}
}

func (n *Notifier) Name() string { return providerName }

// Send publishes the notification as a notifications.events message.
func (n *Notifier) Send(ctx context.Context, notification notifier.Notification) error {
	payload := messagequeue.NotificationPayload{
		Title:   notification.Title,
		Message: notification.Message,
		Level:   notification.Level,
		Source:  notification.Source,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bus notifier marshal: %w", err)
	}
	return n.queue.Publish(ctx, messagequeue.SubjectNotifications, data)
}
