package cache

import (
	"sync"

	"github.com/adithya/forensiq/internal/domain"
)

// MemoryStore is an in-process Store for tests and ephemeral deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.AnalysisResult
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.AnalysisResult)}
}

func (s *MemoryStore) Put(sessionID string, result *domain.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = result
	return nil
}

func (s *MemoryStore) Get(sessionID string) (*domain.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return result, nil
}

func (s *MemoryStore) Close() error { return nil }
