// Package vouchertest provides in-memory voucher collaborators.
package vouchertest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/voucher"
)

// Repo stores vouchers in memory.
type Repo struct {
	mu       sync.Mutex
	vouchers map[id.ID]*voucher.Voucher
	order    []id.ID
}

var _ voucher.Repository = (*Repo)(nil)

// NewRepo creates an empty repository.
func NewRepo() *Repo {
	return &Repo{vouchers: map[id.ID]*voucher.Voucher{}}
}

// CreateBatch rejects a second system voucher of one type for an order, like
// the uq_vouchers_order_type index.
func (r *Repo) CreateBatch(_ context.Context, vs []*voucher.Voucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range vs {
		if v.Source != voucher.SourceSystem || v.OrderID == nil {
			continue
		}
		for _, existing := range r.vouchers {
			if existing.Source == voucher.SourceSystem && existing.OrderID != nil &&
				*existing.OrderID == *v.OrderID && existing.Type == v.Type {
				return voucher.ErrOrderExported(v.OrderNumber)
			}
		}
	}
	for _, v := range vs {
		cp := *v
		r.vouchers[v.ID] = &cp
		r.order = append(r.order, v.ID)
	}
	return nil
}

func (r *Repo) GetByID(_ context.Context, voucherID id.ID) (*voucher.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vouchers[voucherID]
	if !ok {
		return nil, apperror.NewNotFound("voucher", voucherID)
	}
	cp := *v
	return &cp, nil
}

func (r *Repo) List(_ context.Context, f voucher.ListFilter) (domain.ListResult[*voucher.Voucher], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*voucher.Voucher
	for _, vid := range r.order {
		v := r.vouchers[vid]
		if f.Party != nil && v.Party() != *f.Party {
			continue
		}
		if f.Type != "" && v.Type != f.Type {
			continue
		}
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		if f.OrderNumber != "" && v.OrderNumber != f.OrderNumber {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if f.Offset < len(out) {
		out = out[f.Offset:]
	} else {
		out = nil
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return domain.NewListResult(out, total, f.ListFilter), nil
}

func (r *Repo) ExistsForOrder(_ context.Context, orderNumber string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.vouchers {
		if v.OrderNumber == orderNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repo) MarkSent(_ context.Context, voucherID id.ID, externalID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vouchers[voucherID]
	if !ok || v.Status != voucher.StatusQueued {
		return false, nil
	}
	v.Status = voucher.StatusSent
	v.ExternalID = &externalID
	v.SentAt = &at
	v.ErrorMessage = nil
	v.Attempts++
	v.UpdatedAt = at
	return true, nil
}

func (r *Repo) MarkError(_ context.Context, voucherID id.ID, message string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vouchers[voucherID]
	if !ok || v.Status != voucher.StatusQueued {
		return false, nil
	}
	v.Status = voucher.StatusError
	v.ErrorMessage = &message
	v.Attempts++
	v.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *Repo) RecordAttempt(_ context.Context, voucherID id.ID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.vouchers[voucherID]; ok {
		v.Attempts++
		v.ErrorMessage = &message
		v.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *Repo) ClaimStale(_ context.Context, before time.Time, limit int) ([]id.ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []id.ID
	for _, vid := range r.order {
		v := r.vouchers[vid]
		if v.Status != voucher.StatusQueued || !v.UpdatedAt.Before(before) {
			continue
		}
		v.UpdatedAt = time.Now().UTC()
		out = append(out, vid)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All returns every voucher in insertion order.
func (r *Repo) All() []*voucher.Voucher {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*voucher.Voucher, 0, len(r.order))
	for _, vid := range r.order {
		cp := *r.vouchers[vid]
		out = append(out, &cp)
	}
	return out
}

// Age moves a voucher's UpdatedAt back by d.
func (r *Repo) Age(voucherID id.ID, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.vouchers[voucherID]; ok {
		v.UpdatedAt = v.UpdatedAt.Add(-d)
	}
}

// Snapshot implements txtest.Snapshotter.
func (r *Repo) Snapshot() func() {
	r.mu.Lock()
	saved := make(map[id.ID]voucher.Voucher, len(r.vouchers))
	for k, v := range r.vouchers {
		saved[k] = *v
	}
	order := append([]id.ID(nil), r.order...)
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.vouchers = make(map[id.ID]*voucher.Voucher, len(saved))
		for k, v := range saved {
			cp := v
			r.vouchers[k] = &cp
		}
		r.order = order
	}
}

// Queue records enqueued ids. Set Err to make Enqueue fail.
type Queue struct {
	mu  sync.Mutex
	ids []id.ID
	Err error
}

var _ voucher.Queue = (*Queue)(nil)

func (q *Queue) Enqueue(_ context.Context, voucherID id.ID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	q.ids = append(q.ids, voucherID)
	return nil
}

// IDs returns enqueued ids in order.
func (q *Queue) IDs() []id.ID {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]id.ID(nil), q.ids...)
}

// Reset forgets enqueued ids.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = nil
}

// ErrExport is returned by a failing Exporter.
var ErrExport = errors.New("ledger unavailable")

// Exporter returns ExternalID, or ErrExport while Fail is set.
type Exporter struct {
	mu         sync.Mutex
	Fail       bool
	ExternalID string
	Calls      int
}

var _ voucher.Exporter = (*Exporter)(nil)

func (e *Exporter) Export(_ context.Context, _ *voucher.Voucher) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls++
	if e.Fail {
		return "", ErrExport
	}
	if e.ExternalID == "" {
		return "TALLY-1", nil
	}
	return e.ExternalID, nil
}
