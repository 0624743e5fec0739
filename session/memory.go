package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeGROOVE-dev/threadsift/comment"
)

// Memory is an in-process Store for tests and one-shot CLI runs.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]Record)}
}

// Create registers a new PROCESSING session.
func (m *Memory) Create(_ context.Context, url string) (Record, error) {
	now := time.Now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		URL:       url,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.sessions[rec.ID] = rec
	m.mu.Unlock()
	return rec, nil
}

// Complete transitions a session to COMPLETED with its outcome.
func (m *Memory) Complete(_ context.Context, id string, outcome *comment.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	rec.Status = StatusCompleted
	rec.Outcome = outcome
	rec.UpdatedAt = now
	rec.CompletedAt = now
	m.sessions[id] = rec
	return nil
}

// Fail transitions a session to FAILED.
func (m *Memory) Fail(_ context.Context, id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	rec.Status = StatusFailed
	rec.Error = message
	rec.Outcome = nil
	rec.UpdatedAt = time.Now().UTC()
	m.sessions[id] = rec
	return nil
}

// Get returns a session by ID.
func (m *Memory) Get(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.sessions[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// List returns all sessions, newest first, without outcomes.
func (m *Memory) List(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]Record, 0, len(m.sessions))
	for _, rec := range m.sessions {
		rec.Outcome = nil
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Delete removes a session.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }
