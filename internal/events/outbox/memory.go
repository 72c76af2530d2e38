package outbox

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore holds only pending entries. MarkPublished removes entries
// rather than stamping them, so memory use tracks the relay backlog.
type InMemoryStore struct {
	mu      sync.Mutex
	pending []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, e)
	return nil
}

// FetchUnpublished returns up to limit pending entries in append order.
func (s *InMemoryStore) FetchUnpublished(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(limit, len(s.pending))
	if n <= 0 {
		return nil, nil
	}
	return append([]Entry(nil), s.pending[:n]...), nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	done := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		done[id] = struct{}{}
	}
	kept := s.pending[:0]
	for _, e := range s.pending {
		if _, ok := done[e.ID]; !ok {
			kept = append(kept, e)
		}
	}
	clear(s.pending[len(kept):])
	s.pending = kept
	return nil
}

func (s *InMemoryStore) CountUnpublished(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending), nil
}

// Pending returns a snapshot of the entries awaiting publication, for tests.
func (s *InMemoryStore) Pending() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.pending...)
}
