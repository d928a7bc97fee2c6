// Package audittest provides an in-memory audit.Recorder.
package audittest

import (
	"context"
	"sync"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain/audit"
)

// Recorder keeps entries in memory and supports txtest rollback.
type Recorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

var _ audit.Recorder = (*Recorder)(nil)

// Record implements audit.Recorder.
func (r *Recorder) Record(_ context.Context, entry audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// History implements audit.Recorder, newest first.
func (r *Recorder) History(_ context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.Entry
	for i := len(r.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		e := r.entries[i]
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Actions lists recorded actions for an entity in insertion order.
func (r *Recorder) Actions(entityID id.ID) []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.Action
	for _, e := range r.entries {
		if e.EntityID == entityID {
			out = append(out, e.Action)
		}
	}
	return out
}

// Snapshot implements txtest.Snapshotter.
func (r *Recorder) Snapshot() func() {
	r.mu.Lock()
	n := len(r.entries)
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.entries = r.entries[:n]
		r.mu.Unlock()
	}
}
