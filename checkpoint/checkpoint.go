// Package checkpoint persists conversation session snapshots so a new
// invocation with the same session identifier resumes instead of restarting.
package checkpoint

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound signals that no snapshot exists for a session identifier.
// Callers start a fresh session in that case.
var ErrNotFound = errors.New("checkpoint: session not found")

// Store is the checkpoint boundary: an opaque snapshot per session id.
type Store interface {
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Save(ctx context.Context, sessionID string, snapshot []byte) error
}

// MemoryStore keeps snapshots in memory; used by tests and short-lived runs.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string][]byte)}
}

func (m *MemoryStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.snapshots[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m *MemoryStore) Save(ctx context.Context, sessionID string, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, len(snapshot))
	copy(b, snapshot)
	m.snapshots[sessionID] = b
	return nil
}
