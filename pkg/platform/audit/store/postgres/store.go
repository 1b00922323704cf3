// Package postgres implements the audit store as a transactional outbox.
// Entries are written to the audit_outbox table and published to Kafka by
// the relay worker; Kafka is the downstream source of truth.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	audit "medcat/pkg/platform/audit"
	txcontext "medcat/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer resolves the executor from context so an outbox write issued
// while a transaction is open joins it.
func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append writes an audit entry to the outbox for Kafka publishing.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	query := `
		INSERT INTO audit_outbox (id, entity_type, entity_id, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		entry.ID, entry.EntityType, entry.EntityID, string(entry.Action),
		payload, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert audit outbox entry: %w", err)
	}
	return nil
}
