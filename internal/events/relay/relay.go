// Package relay moves outbox entries to Kafka. Delivery is at-least-once:
// an entry is marked published only after the broker acknowledged it, so a
// crash between the two replays it.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cardiotrack/internal/events/outbox"
	"cardiotrack/internal/platform/kafka"
)

type Store interface {
	FetchUnpublished(ctx context.Context, limit int) ([]outbox.Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

type Publisher interface {
	Publish(ctx context.Context, msgs []kafka.Message) error
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Relay struct {
	store     Store
	publisher Publisher
	tx        TxRunner
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *Metrics
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func New(store Store, publisher Publisher, tx TxRunner, interval time.Duration, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		tx:        tx,
		interval:  interval,
		batchSize: 100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drains the outbox every interval until ctx is cancelled. Publish
// failures are logged and retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RelayOnce publishes one batch and returns how many entries it published.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	published := 0
	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		entries, err := r.store.FetchUnpublished(txCtx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		msgs := make([]kafka.Message, len(entries))
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			msgs[i] = kafka.Message{
				Key:   e.AggregateType + ":" + e.AggregateID,
				Value: e.Payload,
				Headers: map[string]string{
					"event_type": e.EventType,
					"event_id":   e.ID.String(),
				},
			}
			ids[i] = e.ID
		}

		if err := r.publisher.Publish(txCtx, msgs); err != nil {
			r.metrics.incFailed()
			return err
		}
		if err := r.store.MarkPublished(txCtx, ids); err != nil {
			return err
		}
		published = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.metrics.addPublished(published)
	return published, nil
}

// LogPublisher stands in for Kafka when no brokers are configured. It logs
// each event and reports success so the outbox does not grow unbounded.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, msgs []kafka.Message) error {
	for _, m := range msgs {
		p.Logger.DebugContext(ctx, "event published",
			"key", m.Key,
			"event_type", m.Headers["event_type"],
		)
	}
	return nil
}
