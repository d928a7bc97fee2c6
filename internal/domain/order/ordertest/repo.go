// Package ordertest provides an in-memory order.Repository.
package ordertest

import (
	"context"
	"slices"
	"sort"
	"sync"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/order"
)

// Repo stores orders in memory. GetForUpdate records locked ids.
type Repo struct {
	mu     sync.Mutex
	orders map[id.ID]order.Order
	items  map[id.ID][]order.Item
	Locked []id.ID
}

var _ order.Repository = (*Repo)(nil)

// New creates an empty repository.
func New() *Repo {
	return &Repo{orders: map[id.ID]order.Order{}, items: map[id.ID][]order.Item{}}
}

func (r *Repo) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orders {
		if existing.Number == o.Number {
			return apperror.NewDuplicate("orders", "number", o.Number)
		}
	}
	header := *o
	header.Items, header.Manufacturer, header.Distributor = nil, nil, nil
	r.orders[o.ID] = header
	r.items[o.ID] = append([]order.Item(nil), o.Items...)
	return nil
}

func (r *Repo) GetByID(_ context.Context, orderID id.ID) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("order", orderID)
	}
	return &o, nil
}

func (r *Repo) GetForUpdate(ctx context.Context, orderID id.ID) (*order.Order, error) {
	o, err := r.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.Locked = append(r.Locked, orderID)
	r.mu.Unlock()
	return o, nil
}

func (r *Repo) GetItems(_ context.Context, orderID id.ID) ([]order.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]order.Item(nil), r.items[orderID]...), nil
}

func (r *Repo) UpdateStatus(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[o.ID]
	if !ok {
		return apperror.NewNotFound("order", o.ID)
	}
	if stored.Version != o.Version {
		return apperror.NewConcurrentModification("order", o.ID)
	}
	o.Version++
	stored.Status = o.Status
	stored.PlacedAt = o.PlacedAt
	stored.FulfilledAt = o.FulfilledAt
	stored.UpdatedAt = o.UpdatedAt
	stored.Version = o.Version
	r.orders[o.ID] = stored
	return nil
}

func (r *Repo) List(_ context.Context, f order.ListFilter) (domain.ListResult[*order.Order], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.orders {
		if !id.IsNil(f.ManufacturerID) && o.ManufacturerID != f.ManufacturerID {
			continue
		}
		if !id.IsNil(f.DistributorID) && o.DistributorID != f.DistributorID {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.Status) {
			continue
		}
		cp := o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
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

// Bump simulates a concurrent writer by advancing the stored version.
func (r *Repo) Bump(orderID id.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.orders[orderID]
	o.Version++
	r.orders[orderID] = o
}

// Snapshot implements txtest.Snapshotter.
func (r *Repo) Snapshot() func() {
	r.mu.Lock()
	orders := make(map[id.ID]order.Order, len(r.orders))
	for k, v := range r.orders {
		orders[k] = v
	}
	items := make(map[id.ID][]order.Item, len(r.items))
	for k, v := range r.items {
		items[k] = v
	}
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.orders, r.items = orders, items
	}
}
