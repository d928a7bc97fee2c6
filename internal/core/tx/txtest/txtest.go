// Package txtest provides an in-memory tx.Manager for service tests.
package txtest

import (
	"context"
	"sync"

	"bizzplus/internal/core/tx"
)

// Snapshotter is implemented by in-memory fakes that can roll back.
// Snapshot captures the current state and returns a function restoring it.
type Snapshotter interface {
	Snapshot() (restore func())
}

// Manager runs fn directly. When fn fails, every registered store is
// restored to its state at the start of the outermost transaction.
type Manager struct {
	mu      sync.Mutex
	stores  []Snapshotter
	Commits int
	Aborts  int
}

var _ tx.Manager = (*Manager)(nil)

// New creates a manager that rolls back the given stores.
func New(stores ...Snapshotter) *Manager {
	return &Manager{stores: stores}
}

// RunInTransaction implements tx.Manager. Outermost calls are serialized.
func (m *Manager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(activeKey{}) != nil {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	restores := make([]func(), 0, len(m.stores))
	for _, s := range m.stores {
		restores = append(restores, s.Snapshot())
	}

	if err := fn(context.WithValue(ctx, activeKey{}, true)); err != nil {
		for _, restore := range restores {
			restore()
		}
		m.Aborts++
		return err
	}
	m.Commits++
	return nil
}

type activeKey struct{}
