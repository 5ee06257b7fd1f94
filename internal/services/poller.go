package services

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/applicationsummaryflow/internal/platform/metrics"
	"github.com/Lllllllleong/applicationsummaryflow/internal/queue"
)

// MessageHandler processes one received message.
type MessageHandler interface {
	Process(ctx context.Context, msg queue.Message) error
}

type PollerConfig struct {
	Queue          string
	Interval       time.Duration
	BatchSize      int
	Concurrency    int
	MessageTimeout time.Duration
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	return c
}

// Poller receives batches from the source queue on a fixed interval and hands
// each message to the handler. Messages of a batch are independent: one
// failing never stops or cancels the others.
type Poller struct {
	queue   queue.Queue
	handler MessageHandler
	config  PollerConfig
	metrics *metrics.Metrics
}

func NewPoller(q queue.Queue, handler MessageHandler, config PollerConfig, m *metrics.Metrics) *Poller {
	return &Poller{queue: q, handler: handler, config: config.withDefaults(), metrics: m}
}

// BatchResult counts the outcomes of one poll.
type BatchResult struct {
	Received  int
	Succeeded int
	Failed    int
}

// Run polls until ctx is cancelled. The first poll happens immediately.
func (p *Poller) Run(ctx context.Context) error {
	slog.Info("Poller started.", "queue", p.config.Queue, "interval", p.config.Interval.String(),
		"batchSize", p.config.BatchSize, "concurrency", p.config.Concurrency)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Failed to receive from source queue", "queue", p.config.Queue, "error", err)
		}
		select {
		case <-ctx.Done():
			slog.Info("Poller stopped.", "queue", p.config.Queue)
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce receives one batch and processes it, returning when every message
// of the batch has finished.
func (p *Poller) PollOnce(ctx context.Context) (BatchResult, error) {
	msgs, err := p.queue.Receive(ctx, p.config.Queue, p.config.BatchSize)
	if err != nil {
		p.metrics.IncrementReceiveErrors()
		return BatchResult{}, err
	}
	if len(msgs) == 0 {
		return BatchResult{}, nil
	}
	p.metrics.IncrementBatches()
	slog.Debug("Received batch.", "queue", p.config.Queue, "count", len(msgs))

	var succeeded, failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(p.config.Concurrency)
	for _, msg := range msgs {
		g.Go(func() error {
			if err := p.process(ctx, msg); err != nil {
				failed.Add(1)
			} else {
				succeeded.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return BatchResult{
		Received:  len(msgs),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}, nil
}

func (p *Poller) process(ctx context.Context, msg queue.Message) (err error) {
	if p.config.MessageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.MessageTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Message handler panicked", "messageId", msg.ID, "panic", r)
			err = errors.New("message handler panicked")
		}
	}()
	return p.handler.Process(ctx, msg)
}
