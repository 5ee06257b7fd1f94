package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultVisibilityTimeout is how long a received message stays hidden from
// other receivers when no timeout is configured.
const DefaultVisibilityTimeout = 5 * time.Minute

type memoryEntry struct {
	id           string
	body         string
	receipt      string
	invisibleTil time.Time
	receives     int
}

// Memory is an in-process Queue with visibility timeouts, used by tests.
type Memory struct {
	mu         sync.Mutex
	queues     map[string][]*memoryEntry
	visibility time.Duration
	now        func() time.Time
}

// NewMemory returns an empty queue whose received messages reappear after
// visibility unless deleted.
func NewMemory(visibility time.Duration) *Memory {
	if visibility <= 0 {
		visibility = DefaultVisibilityTimeout
	}
	return &Memory{
		queues:     make(map[string][]*memoryEntry),
		visibility: visibility,
		now:        time.Now,
	}
}

func (m *Memory) Send(ctx context.Context, queue, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[queue] = append(m.queues[queue], &memoryEntry{id: uuid.NewString(), body: body})
	return nil
}

func (m *Memory) Receive(ctx context.Context, queue string, max int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var out []Message
	for _, e := range m.queues[queue] {
		if len(out) == max {
			break
		}
		if now.Before(e.invisibleTil) {
			continue
		}
		e.receives++
		e.receipt = fmt.Sprintf("%s#%d", e.id, e.receives)
		e.invisibleTil = now.Add(m.visibility)
		out = append(out, Message{ID: e.id, Body: e.body, ReceiptHandle: e.receipt})
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, queue, receiptHandle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.queues[queue]
	for i, e := range entries {
		if e.receipt != "" && e.receipt == receiptHandle {
			m.queues[queue] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("queue %s: %w", queue, ErrUnknownReceipt)
}

// Len reports how many messages, visible or not, remain on queue.
func (m *Memory) Len(queue string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[queue])
}

// Bodies returns the bodies remaining on queue in send order.
func (m *Memory) Bodies(queue string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.queues[queue]))
	for _, e := range m.queues[queue] {
		out = append(out, e.body)
	}
	return out
}
