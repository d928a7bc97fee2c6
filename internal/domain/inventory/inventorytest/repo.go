// Package inventorytest provides an in-memory inventory.Repository.
package inventorytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/core/id"
	"bizzplus/internal/core/types"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/inventory"
)

type pair struct {
	distributor id.ID
	sku         id.ID
}

// Repo stores balances in memory.
type Repo struct {
	mu       sync.Mutex
	balances map[pair]*inventory.Balance
	// Locked lists pairs in GetForUpdate order.
	Locked []id.ID
}

var _ inventory.Repository = (*Repo)(nil)

// New creates an empty repository.
func New() *Repo {
	return &Repo{balances: map[pair]*inventory.Balance{}}
}

// Set stores a balance for the pair.
func (r *Repo) Set(distributorID, skuID id.ID, onHand types.Quantity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[pair{distributorID, skuID}] = &inventory.Balance{
		ID: id.New(), DistributorID: distributorID, SKUID: skuID, OnHand: onHand, UpdatedAt: time.Now(),
	}
}

// OnHand returns the pair's on-hand quantity, or zero if absent.
func (r *Repo) OnHand(distributorID, skuID id.ID) types.Quantity {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.balances[pair{distributorID, skuID}]; ok {
		return b.OnHand
	}
	return types.Quantity{}
}

// Count returns the number of balance rows.
func (r *Repo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.balances)
}

func (r *Repo) Ensure(_ context.Context, distributorID, skuID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := pair{distributorID, skuID}
	if _, ok := r.balances[k]; !ok {
		r.balances[k] = &inventory.Balance{ID: id.New(), DistributorID: distributorID, SKUID: skuID, UpdatedAt: time.Now()}
	}
	return nil
}

func (r *Repo) GetForUpdate(_ context.Context, distributorID, skuID id.ID) (*inventory.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[pair{distributorID, skuID}]
	if !ok {
		return nil, apperror.NewNotFound("inventory balance", skuID)
	}
	r.Locked = append(r.Locked, skuID)
	cp := *b
	return &cp, nil
}

func (r *Repo) AddOnHand(_ context.Context, balanceID id.ID, qty types.Quantity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.balances {
		if b.ID == balanceID {
			b.OnHand = b.OnHand.Add(qty)
			b.UpdatedAt = time.Now()
			return nil
		}
	}
	return apperror.NewNotFound("inventory balance", balanceID)
}

func (r *Repo) List(ctx context.Context, distributorID id.ID, f domain.ListFilter) (domain.ListResult[*inventory.BalanceView], error) {
	all, _ := r.ListAll(ctx, distributorID)
	return domain.NewListResult(all, int64(len(all)), f), nil
}

func (r *Repo) ListAll(_ context.Context, distributorID id.ID) ([]*inventory.BalanceView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.BalanceView
	for k, b := range r.balances {
		if k.distributor == distributorID {
			out = append(out, &inventory.BalanceView{Balance: *b, SKUCode: k.sku.String()[:8]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKUID.String() < out[j].SKUID.String() })
	return out, nil
}

// Snapshot implements txtest.Snapshotter.
func (r *Repo) Snapshot() func() {
	r.mu.Lock()
	saved := make(map[pair]inventory.Balance, len(r.balances))
	for k, b := range r.balances {
		saved[k] = *b
	}
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.balances = make(map[pair]*inventory.Balance, len(saved))
		for k, b := range saved {
			b := b
			r.balances[k] = &b
		}
	}
}
