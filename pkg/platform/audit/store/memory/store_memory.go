package memory

import (
	"context"
	"sync"

	audit "medcat/pkg/platform/audit"
)

// Store keeps audit entries in memory, append-only.
type Store struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// ListByEntity returns the recorded entries for one entity, oldest first.
func (s *Store) ListByEntity(_ context.Context, entityID string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []audit.Entry
	for _, e := range s.entries {
		if e.EntityID == entityID {
			result = append(result, e)
		}
	}
	return result, nil
}

// All returns every recorded entry, oldest first.
func (s *Store) All(_ context.Context) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Entry{}, s.entries...), nil
}
