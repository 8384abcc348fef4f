// Package settings persists the user's configuration and the last-viewed
// marker in a small two-scope key-value store.
//
// The sync scope holds what the user configures (server URL, identity,
// window, sort order); the local scope holds per-machine state such as the
// last time the report was opened. Values are plain strings; there is no
// schema versioning.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type Scope string

const (
	ScopeSync  Scope = "sync"
	ScopeLocal Scope = "local"
)

var ErrUnknownScope = errors.New("unknown settings scope")

// Store is a scoped key-value store. Get returns only the keys that are set.
type Store interface {
	Get(ctx context.Context, scope Scope, keys ...string) (map[string]string, error)
	Set(ctx context.Context, scope Scope, values map[string]string) error
	Close() error
}

const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// Open returns the store for backend, creating its file at path if needed.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendBolt, "":
		return OpenBolt(path)
	case BackendSQLite:
		return OpenSQL(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q (memory|bolt|sqlite)", backend)
	}
}

func checkScope(scope Scope) error {
	switch scope {
	case ScopeSync, ScopeLocal:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownScope, scope)
}

// MemoryStore keeps settings in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	scopes map[Scope]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scopes: map[Scope]map[string]string{
			ScopeSync:  {},
			ScopeLocal: {},
		},
	}
}

func (m *MemoryStore) Get(_ context.Context, scope Scope, keys ...string) (map[string]string, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.scopes[scope][k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, scope Scope, values map[string]string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range values {
		m.scopes[scope][k] = v
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
