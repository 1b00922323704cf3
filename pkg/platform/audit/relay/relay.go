// Package relay publishes audit outbox rows to Kafka.
//
// The relay polls the audit_outbox table, claims unpublished rows with
// FOR UPDATE SKIP LOCKED so multiple replicas never double-claim, produces
// them to the audit topic and stamps published_at in the same transaction.
// Delivery is at-least-once: a crash between produce and commit re-sends
// the batch, and consumers deduplicate on entry id.
package relay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

type Relay struct {
	db        *sql.DB
	client    *kgo.Client
	topic     string
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// Option configures the Relay.
type Option func(*Relay)

// WithInterval overrides the outbox poll interval.
func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBatchSize overrides how many rows one poll claims.
func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// New connects to the Kafka brokers and ensures the audit topic exists.
func New(db *sql.DB, brokers []string, topic string, logger *slog.Logger, opts ...Option) (*Relay, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	r := &Relay{
		db:        db,
		client:    client,
		topic:     topic,
		logger:    logger,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.ensureTopic(context.Background()); err != nil {
		client.Close()
		return nil, err
	}
	return r, nil
}

func (r *Relay) ensureTopic(ctx context.Context) error {
	adm := kadm.NewClient(r.client)
	_, err := adm.CreateTopic(ctx, 1, 1, nil, r.topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic %q: %w", r.topic, err)
	}
	return nil
}

// Run polls the outbox until ctx is cancelled. Relay errors are logged and
// retried on the next tick; they never stop the loop.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := r.relayOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "audit relay pass failed", "error", err)
			} else if n > 0 {
				r.logger.DebugContext(ctx, "audit entries published", "count", n)
			}
		}
	}
}

// relayOnce claims one batch of unpublished rows, produces them and marks
// them published.
func (r *Relay) relayOnce(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin relay batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, entity_id, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim outbox rows: %w", err)
	}

	var ids []string
	var records []*kgo.Record
	for rows.Next() {
		var id, entityID string
		var payload []byte
		if err := rows.Scan(&id, &entityID, &payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		ids = append(ids, id)
		records = append(records, &kgo.Record{
			Topic: r.topic,
			Key:   []byte(entityID),
			Value: payload,
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox rows: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return 0, fmt.Errorf("produce audit batch: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE audit_outbox SET published_at = NOW() WHERE id = ANY($1::uuid[])`,
		pq.Array(ids),
	)
	if err != nil {
		return 0, fmt.Errorf("mark outbox rows published: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit relay batch: %w", err)
	}
	return len(records), nil
}

// Close flushes and closes the Kafka client.
func (r *Relay) Close() {
	r.client.Close()
}
