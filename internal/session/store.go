// Package session provides keyed conversation history storage with
// append-only semantics.
package session

import (
	"errors"

	"github.com/voicedev/vox/internal/domain"
)

// ErrNotFound is returned when a session id is unknown
var ErrNotFound = errors.New("session not found")

// Store is the session persistence abstraction. Append is the only
// mutation path for history; implementations serialize concurrent
// appends to the same session and never reorder entries.
type Store interface {
	// Create makes a new session with the given sticky context
	Create(context domain.Context) (*domain.Session, error)

	// Get returns a session snapshot or ErrNotFound
	Get(id string) (*domain.Session, error)

	// Append adds one conversation entry or returns ErrNotFound
	Append(id, role, content string) error

	// Delete removes a session or returns ErrNotFound
	Delete(id string) error

	// List returns summaries of all sessions
	List() ([]domain.Summary, error)

	// SaveRun records a finished pipeline run. sessionID may be empty for
	// runs started outside any session.
	SaveRun(sessionID string, run *domain.PipelineRun) error

	// Runs returns the recorded runs for a session in start order, or
	// ErrNotFound when the session id is unknown. An empty sessionID
	// selects runs not bound to any session.
	Runs(sessionID string) ([]domain.PipelineRun, error)

	// Close releases underlying resources
	Close() error
}
