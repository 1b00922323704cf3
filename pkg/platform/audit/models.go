// Package audit captures the state-changing actions of the catalog as an
// append-only trail.
//
// Entries are emitted from domain logic after the primary write commits.
// Persistence backends fan out from the Store interface: an in-memory sink
// for tests and light deployments, and a Postgres transactional outbox that
// a relay worker publishes to Kafka.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind names a mutating catalog operation.
type ActionKind string

const (
	ActionCompetencyCreated    ActionKind = "COMPETENCY_CREATED"
	ActionCompetencyReviewed   ActionKind = "COMPETENCY_REVIEWED"
	ActionCompetencyActivated  ActionKind = "COMPETENCY_ACTIVATED"
	ActionCompetencyDeprecated ActionKind = "COMPETENCY_DEPRECATED"
)

// Entry is one audit record. Keep it transport-agnostic so stores and
// sinks can fan out.
type Entry struct {
	ID          uuid.UUID         `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	ActorID     string            `json:"actorId"`
	Action      ActionKind        `json:"action"`
	EntityType  string            `json:"entityType"`
	EntityID    string            `json:"entityId"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	RequestID   string            `json:"requestId,omitempty"`
}
