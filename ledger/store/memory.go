// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records map[key][]byte
}

type key struct {
	EntityKind string
	UserID     string
}

func NewMemory() *Memory {
	return &Memory{records: make(map[key][]byte)}
}

// Get returns (nil, nil) for absent keys. Absence is not an error.
func (m *Memory) Get(_ context.Context, entityKind, userID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.records[key{EntityKind: entityKind, UserID: userID}]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) Set(_ context.Context, entityKind, userID string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.records[key{EntityKind: entityKind, UserID: userID}] = stored
	return nil
}

func (m *Memory) Remove(_ context.Context, entityKind, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, key{EntityKind: entityKind, UserID: userID})
	return nil
}

func (m *Memory) ListKinds(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	kinds := []string{}
	for k := range m.records {
		if k.UserID == userID {
			kinds = append(kinds, k.EntityKind)
		}
	}
	sort.Strings(kinds)
	return kinds, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	users := []string{}
	for k := range m.records {
		if !seen[k.UserID] {
			seen[k.UserID] = true
			users = append(users, k.UserID)
		}
	}
	sort.Strings(users)
	return users, nil
}
