// Package partytest provides an in-memory party.Repository.
package partytest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/party"
)

// Repo stores parties in memory.
type Repo struct {
	mu      sync.RWMutex
	parties map[party.Ref]*party.Party
}

var _ party.Repository = (*Repo)(nil)

// New returns a repository holding ps.
func New(ps ...*party.Party) *Repo {
	r := &Repo{parties: map[party.Ref]*party.Party{}}
	for _, p := range ps {
		r.parties[p.Ref] = p
	}
	return r
}

// Get implements party.Repository.
func (r *Repo) Get(_ context.Context, ref party.Ref) (*party.Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parties[ref]
	if !ok {
		return nil, apperror.NewNotFound(string(ref.Kind), ref.ID)
	}
	cp := *p
	return &cp, nil
}

// List implements party.Repository.
func (r *Repo) List(_ context.Context, kind party.Kind, f domain.ListFilter) (domain.ListResult[*party.Party], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*party.Party
	for ref, p := range r.parties {
		if ref.Kind != kind {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := int64(len(out))
	if f.Offset < len(out) {
		out = out[f.Offset:]
	} else {
		out = nil
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return domain.NewListResult(out, total, f), nil
}
