package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Lllllllleong/applicationsummaryflow/internal/models"
	"github.com/Lllllllleong/applicationsummaryflow/internal/queue"
)

// Notifier tells downstream consumers that a summary is stored.
type Notifier interface {
	Notify(ctx context.Context, note models.Notification) error
}

// NotifyOutcome reports what happened to a notification.
type NotifyOutcome string

const (
	NotifySent    NotifyOutcome = "sent"
	NotifySkipped NotifyOutcome = "skipped"
)

// QueueNotifier publishes notifications as JSON messages on a queue.
type QueueNotifier struct {
	queue queue.Queue
	name  string
}

func NewQueueNotifier(q queue.Queue, name string) *QueueNotifier {
	return &QueueNotifier{queue: q, name: name}
}

func (n *QueueNotifier) Notify(ctx context.Context, note models.Notification) error {
	body, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	return n.queue.Send(ctx, n.name, string(body))
}
