// Package limiter counts durable per-caller creations for the guest create quota.
package limiter

import (
	"context"
	"crypto/sha256"
	"sync"
)

// Quota counts creations per hashed caller key.
type Quota interface {
	// Reserve atomically takes one slot for key if fewer than limit are used.
	// It reports whether the slot was taken and the count after the call.
	Reserve(ctx context.Context, key []byte, limit int) (bool, int, error)
	// Release gives back a slot taken by Reserve whose creation failed.
	Release(ctx context.Context, key []byte) error
	// Used returns the number of slots held by key.
	Used(ctx context.Context, key []byte) (int, error)
}

// HashKey returns a stable hash for a device or user identifier so raw values are never stored.
func HashKey(key string) []byte {
	h := sha256.Sum256([]byte(key))
	return h[:]
}

// Memory is an in-process Quota, used by tests and the database-less dev mode.
type Memory struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemory returns an empty in-process quota.
func NewMemory() *Memory {
	return &Memory{counts: make(map[string]int)}
}

func (m *Memory) Reserve(_ context.Context, key []byte, limit int) (bool, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.counts[string(key)]
	if n >= limit {
		return false, n, nil
	}
	n++
	m.counts[string(key)] = n
	return true, n, nil
}

func (m *Memory) Release(_ context.Context, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.counts[string(key)]; n > 0 {
		m.counts[string(key)] = n - 1
	}
	return nil
}

func (m *Memory) Used(_ context.Context, key []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[string(key)], nil
}
