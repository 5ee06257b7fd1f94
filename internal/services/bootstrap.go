package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Lllllllleong/applicationsummaryflow/internal/gcp"
	"github.com/Lllllllleong/applicationsummaryflow/internal/platform/config"
	"github.com/Lllllllleong/applicationsummaryflow/internal/platform/metrics"
	"github.com/Lllllllleong/applicationsummaryflow/internal/queue"
	"github.com/Lllllllleong/applicationsummaryflow/internal/render"
)

// Runtime is a fully wired pipeline and the clients it owns.
type Runtime struct {
	Function *SummaryFunction
	// Poller is nil unless the runtime consumes the source queue.
	Poller  *Poller
	Metrics *metrics.Metrics

	closers []func() error
}

// Close releases every client the runtime created.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// Bootstrap creates the production collaborators described by cfg: Cloud
// Storage for documents, Redis Streams for queues, a queue or workflow
// notifier, and a Firestore tracker when a project is configured. With
// consume set it also builds a Poller over the source queue.
func Bootstrap(ctx context.Context, cfg config.Config, reg prometheus.Registerer, consume bool) (_ *Runtime, err error) {
	rt := &Runtime{Metrics: metrics.New(reg)}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	style, err := render.LoadStyle(cfg.StyleFile)
	if err != nil {
		return nil, err
	}
	renderer, err := render.New(style)
	if err != nil {
		return nil, err
	}

	store, err := gcp.NewGCSStore(ctx)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, store.Close)

	var q queue.Queue
	if consume || cfg.NotifyMode == config.NotifyQueue {
		client, err := queue.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		rt.closers = append(rt.closers, client.Close)
		q, err = queue.NewRedis(client, queue.RedisConfig{
			Group:             cfg.ConsumerGroup,
			Consumer:          cfg.ConsumerName,
			VisibilityTimeout: cfg.VisibilityTimeout,
		})
		if err != nil {
			return nil, err
		}
	}

	var notifier Notifier
	switch cfg.NotifyMode {
	case config.NotifyWorkflow:
		wn, err := gcp.NewWorkflowNotifier(ctx, gcp.WorkflowConfig{
			ProjectID: cfg.ProjectID,
			Location:  cfg.WorkflowLocation,
			ID:        cfg.WorkflowID,
		})
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, wn.Close)
		notifier = wn
	default:
		notifier = NewQueueNotifier(q, cfg.NotifyQueue)
	}

	var tracker Tracker
	if cfg.ProjectID != "" {
		client, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, err
		}
		ft := gcp.NewFirestoreTracker(client, cfg.FirestoreCollection)
		rt.closers = append(rt.closers, ft.Close)
		tracker = ft
	}

	rt.Function, err = NewSummaryFunction(
		SummaryConfig{
			DocumentBucket: cfg.DocumentBucket,
			SourceQueue:    cfg.SourceQueue,
			WorkDir:        cfg.WorkDir,
		},
		SummaryDeps{
			Store:    store,
			Queue:    q,
			Notifier: notifier,
			Renderer: renderer,
			Tracker:  tracker,
			Metrics:  rt.Metrics,
		},
	)
	if err != nil {
		return nil, err
	}

	if consume {
		rt.Poller = NewPoller(q, rt.Function, PollerConfig{
			Queue:          cfg.SourceQueue,
			Interval:       cfg.PollInterval,
			BatchSize:      cfg.BatchSize,
			Concurrency:    cfg.Concurrency,
			MessageTimeout: cfg.MessageTimeout,
		}, rt.Metrics)
	}

	slog.Info("Application summary pipeline initialized.",
		"bucket", cfg.DocumentBucket, "notifyMode", cfg.NotifyMode, "tracking", cfg.ProjectID != "", "consume", consume)
	return rt, nil
}
