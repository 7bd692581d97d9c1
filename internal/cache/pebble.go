package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"

	"github.com/adithya/forensiq/internal/domain"
)

// PebbleStore is the on-disk Store. Results are stored as JSON snapshots,
// one key per session.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (or creates) the session database under dir.
func NewPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(filepath.Join(dir, "sessions"), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble db: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Put(sessionID string, result *domain.AnalysisResult) error {
	value, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", sessionID, err)
	}
	if err := s.db.Set([]byte(sessionID), value, pebble.Sync); err != nil {
		return fmt.Errorf("storing session %s: %w", sessionID, err)
	}
	return nil
}

func (s *PebbleStore) Get(sessionID string) (*domain.AnalysisResult, error) {
	value, closer, err := s.db.Get([]byte(sessionID))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	defer closer.Close()

	var result domain.AnalysisResult
	if err := json.Unmarshal(value, &result); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", sessionID, err)
	}
	return &result, nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
