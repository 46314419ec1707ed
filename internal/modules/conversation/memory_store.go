package conversation

import (
	"context"
	"sync"
)

// MemoryStore keeps history in process. Used when Redis is not configured and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string][]Turn)}
}

func (s *MemoryStore) Append(_ context.Context, conversationID string, turns ...Turn) error {
	if conversationID == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all := append(s.turns[conversationID], turns...)
	if len(all) > MaxTurns {
		all = append([]Turn(nil), all[len(all)-MaxTurns:]...)
	}
	s.turns[conversationID] = all
	return nil
}

func (s *MemoryStore) History(_ context.Context, conversationID string, limit int) ([]Turn, error) {
	if conversationID == "" {
		return nil, ErrEmptyID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.turns[conversationID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]Turn(nil), all...), nil
}
