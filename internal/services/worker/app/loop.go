// Package app runs the worker processing loop over the memory outbox.
package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	memoriesstorage "github.com/keepsakehq/keepsake/internal/services/memories/storage"
	workerdomain "github.com/keepsakehq/keepsake/internal/services/worker/domain"
	workerstorage "github.com/keepsakehq/keepsake/internal/services/worker/storage"
)

const (
	defaultConsumer      = "keepsake-worker"
	defaultPollInterval  = 5 * time.Second
	defaultLeaseTTL      = time.Minute
	defaultMaxAttempts   = 5
	defaultRetryBackoff  = 10 * time.Second
	defaultRetryMaxDelay = 10 * time.Minute
	defaultBatchSize     = 16
)

// EventHandler processes one leased outbox event. Returning a
// workerdomain.Permanent error dead-letters the event immediately; any other
// error schedules a retry.
type EventHandler interface {
	Handle(ctx context.Context, event memoriesstorage.OutboxEvent) error
}

// EventSource is the outbox surface the loop drains.
type EventSource interface {
	LeaseOutboxEvents(ctx context.Context, consumer string, limit int, now time.Time, leaseTTL time.Duration) ([]memoriesstorage.OutboxEvent, error)
	MarkOutboxSucceeded(ctx context.Context, id string, consumer string, processedAt time.Time) error
	MarkOutboxRetry(ctx context.Context, id string, consumer string, nextAttemptAt time.Time, lastError string) error
	MarkOutboxDead(ctx context.Context, id string, consumer string, lastError string, processedAt time.Time) error
}

// AttemptRecorder persists per-event processing outcomes for inspection.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt workerstorage.AttemptRecord) error
}

// Config tunes the processing loop.
type Config struct {
	Consumer      string
	PollInterval  time.Duration
	LeaseTTL      time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	RetryMaxDelay time.Duration
	BatchSize     int
}

func (c Config) normalized() Config {
	if strings.TrimSpace(c.Consumer) == "" {
		c.Consumer = defaultConsumer
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = defaultLeaseTTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = defaultRetryMaxDelay
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	return c
}

// Loop leases due outbox events and dispatches them to handlers.
type Loop struct {
	source   EventSource
	attempts AttemptRecorder
	handlers map[string]EventHandler
	cfg      Config
	clock    func() time.Time
	logf     func(format string, args ...any)
}

// New creates a worker loop. attempts and logf may be nil.
func New(source EventSource, attempts AttemptRecorder, handlers map[string]EventHandler, cfg Config, clock func() time.Time) *Loop {
	if clock == nil {
		clock = time.Now
	}
	return &Loop{
		source:   source,
		attempts: attempts,
		handlers: handlers,
		cfg:      cfg.normalized(),
		clock:    clock,
		logf:     log.Printf,
	}
}

// Run polls until the context is canceled.
func (l *Loop) Run(ctx context.Context) error {
	if l == nil || l.source == nil {
		return fmt.Errorf("worker loop is not configured")
	}
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := l.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logf("worker tick: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick leases and processes one batch of due events.
func (l *Loop) Tick(ctx context.Context) error {
	now := l.clock().UTC()
	events, err := l.source.LeaseOutboxEvents(ctx, l.cfg.Consumer, l.cfg.BatchSize, now, l.cfg.LeaseTTL)
	if err != nil {
		return fmt.Errorf("lease outbox events: %w", err)
	}
	for _, event := range events {
		l.process(ctx, event)
	}
	return nil
}

func (l *Loop) process(ctx context.Context, event memoriesstorage.OutboxEvent) {
	handler, ok := l.handlers[event.EventType]
	if !ok {
		l.finish(ctx, event, "dead", fmt.Sprintf("no handler for event type %q", event.EventType))
		return
	}

	err := handler.Handle(ctx, event)
	switch {
	case err == nil:
		l.finish(ctx, event, "succeeded", "")
	case workerdomain.IsPermanent(err):
		l.finish(ctx, event, "dead", err.Error())
	case int(event.AttemptCount)+1 >= l.cfg.MaxAttempts:
		l.finish(ctx, event, "dead", err.Error())
	default:
		l.finish(ctx, event, "retry", err.Error())
	}
}

// finish acks the event with its outcome and records a durable attempt row.
func (l *Loop) finish(ctx context.Context, event memoriesstorage.OutboxEvent, outcome string, lastError string) {
	now := l.clock().UTC()
	var err error
	switch outcome {
	case "succeeded":
		err = l.source.MarkOutboxSucceeded(ctx, event.ID, l.cfg.Consumer, now)
	case "retry":
		err = l.source.MarkOutboxRetry(ctx, event.ID, l.cfg.Consumer, now.Add(l.backoff(event.AttemptCount)), lastError)
	case "dead":
		err = l.source.MarkOutboxDead(ctx, event.ID, l.cfg.Consumer, lastError, now)
	}
	if err != nil {
		l.logf("worker ack %s for event %s: %v", outcome, event.ID, err)
	}
	if l.attempts == nil {
		return
	}
	record := workerstorage.AttemptRecord{
		EventID:      event.ID,
		EventType:    event.EventType,
		Consumer:     l.cfg.Consumer,
		Outcome:      outcome,
		AttemptCount: event.AttemptCount + 1,
		LastError:    lastError,
		CreatedAt:    now,
	}
	if err := l.attempts.RecordAttempt(ctx, record); err != nil {
		l.logf("worker record attempt for event %s: %v", event.ID, err)
	}
}

// backoff computes the capped exponential retry delay for an event that has
// already failed attemptCount times.
func (l *Loop) backoff(attemptCount int32) time.Duration {
	delay := l.cfg.RetryBackoff
	for i := int32(0); i < attemptCount; i++ {
		delay *= 2
		if delay >= l.cfg.RetryMaxDelay {
			return l.cfg.RetryMaxDelay
		}
	}
	if delay > l.cfg.RetryMaxDelay {
		return l.cfg.RetryMaxDelay
	}
	return delay
}
