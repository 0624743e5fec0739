// Package session persists analysis runs: their lifecycle status and,
// once finished, the full participant results.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/codeGROOVE-dev/threadsift/comment"
)

// ErrNotFound means no session exists with the given ID.
var ErrNotFound = errors.New("session not found")

// Status is the lifecycle state of a session.
type Status string

// Session lifecycle states.
const (
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Record is one analysis run.
type Record struct {
	ID          string
	URL         string
	Status      Status
	Error       string // set when Status is FAILED
	Outcome     *comment.Outcome
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time // zero until Status is COMPLETED
}

// Store persists sessions. A session is created in PROCESSING and moves
// exactly once to COMPLETED or FAILED; a failed session never holds
// partial results.
type Store interface {
	// Create registers a new PROCESSING session for url.
	Create(ctx context.Context, url string) (Record, error)
	// Complete transitions a session to COMPLETED with its outcome.
	Complete(ctx context.Context, id string, outcome *comment.Outcome) error
	// Fail transitions a session to FAILED with a diagnostic message.
	Fail(ctx context.Context, id, message string) error
	// Get returns a session, including its outcome when completed.
	Get(ctx context.Context, id string) (Record, error)
	// List returns all sessions, newest first, without outcomes.
	List(ctx context.Context) ([]Record, error)
	// Delete removes a session and its results.
	Delete(ctx context.Context, id string) error
	// Close releases any underlying resources.
	Close() error
}
