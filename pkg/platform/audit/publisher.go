package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence contract for audit entries. Implementations are
// append-only.
type Store interface {
	Append(ctx context.Context, entry Entry) error
}

// Publisher validates and persists audit entries. It uses the storage layer
// for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit fills in system fields and appends the entry. The caller decides
// whether a failure is fatal; for catalog mutations it is logged and the
// primary write stands.
func (p *Publisher) Emit(ctx context.Context, entry Entry) error {
	if entry.Action == "" {
		return fmt.Errorf("audit entry requires an action")
	}
	if entry.EntityID == "" {
		return fmt.Errorf("audit entry requires an entity id")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.EntityType == "" {
		entry.EntityType = "Competency"
	}
	return p.store.Append(ctx, entry)
}
