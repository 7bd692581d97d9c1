// Package cache persists analysis results by session id so clients can
// re-fetch a finished run without re-uploading the batch.
package cache

import (
	"errors"

	"github.com/adithya/forensiq/internal/domain"
)

// ErrNotFound is returned when no result exists for a session id.
var ErrNotFound = errors.New("session not found")

// Store saves and loads analysis results keyed by session id.
type Store interface {
	Put(sessionID string, result *domain.AnalysisResult) error
	Get(sessionID string) (*domain.AnalysisResult, error)
	Close() error
}
