// Package catalogtest provides an in-memory catalog.Repository.
package catalogtest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/core/id"
	"bizzplus/internal/core/types"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/catalog"
)

// Repo stores SKUs and prices in memory.
type Repo struct {
	mu     sync.RWMutex
	skus   map[id.ID]catalog.SKU
	prices []catalog.Price
	// Locks counts GetSKUForUpdate calls.
	Locks int
}

var _ catalog.Repository = (*Repo)(nil)

// New creates an empty repository.
func New() *Repo {
	return &Repo{skus: map[id.ID]catalog.SKU{}}
}

// AddSKU stores a SKU.
func (r *Repo) AddSKU(s catalog.SKU) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skus[s.ID] = s
}

// AddPrice stores a price row as-is.
func (r *Repo) AddPrice(p catalog.Price) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id.IsNil(p.ID) {
		p.ID = id.New()
	}
	r.prices = append(r.prices, p)
}

// OpenCount returns the number of open prices for a SKU.
func (r *Repo) OpenCount(skuID id.ID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.prices {
		if p.SKUID == skuID && p.IsOpen() {
			n++
		}
	}
	return n
}

func (r *Repo) GetSKU(_ context.Context, skuID id.ID) (*catalog.SKU, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skus[skuID]
	if !ok {
		return nil, apperror.NewNotFound("sku", skuID)
	}
	return &s, nil
}

func (r *Repo) GetSKUForUpdate(ctx context.Context, skuID id.ID) (*catalog.SKU, error) {
	r.mu.Lock()
	r.Locks++
	r.mu.Unlock()
	return r.GetSKU(ctx, skuID)
}

func (r *Repo) GetSKUByCodeForUpdate(_ context.Context, manufacturerID id.ID, code string) (*catalog.SKU, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Locks++
	for _, s := range r.skus {
		if s.ManufacturerID == manufacturerID && s.Code == code {
			return &s, nil
		}
	}
	return nil, apperror.NewNotFound("sku", code)
}

// UpsertSKU matches on manufacturer and code like uq_skus_manufacturer_code.
func (r *Repo) UpsertSKU(_ context.Context, sku *catalog.SKU) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.skus {
		if s.ManufacturerID == sku.ManufacturerID && s.Code == sku.Code {
			s.Name, s.HSN, s.GSTPercent, s.UOM, s.UpdatedAt = sku.Name, sku.HSN, sku.GSTPercent, sku.UOM, sku.UpdatedAt
			r.skus[s.ID] = s
			*sku = s
			return false, nil
		}
	}
	r.skus[sku.ID] = *sku
	return true, nil
}

func (r *Repo) UpdateSKU(_ context.Context, sku *catalog.SKU) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.skus[sku.ID]; !ok {
		return apperror.NewNotFound("sku", sku.ID)
	}
	r.skus[sku.ID] = *sku
	return nil
}

// SKUs returns a manufacturer's SKUs ordered by code.
func (r *Repo) SKUs(manufacturerID id.ID) []catalog.SKU {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []catalog.SKU
	for _, s := range r.skus {
		if s.ManufacturerID == manufacturerID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (r *Repo) ListSKUs(_ context.Context, manufacturerID id.ID, f domain.ListFilter) (domain.ListResult[*catalog.SKUWithPrice], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now()
	var out []*catalog.SKUWithPrice
	for _, s := range r.skus {
		if s.ManufacturerID != manufacturerID {
			continue
		}
		q := strings.ToLower(f.Search)
		if q != "" && !strings.Contains(strings.ToLower(s.Name), q) && !strings.Contains(strings.ToLower(s.Code), q) {
			continue
		}
		row := &catalog.SKUWithPrice{SKU: s}
		if p := catalog.SelectActive(r.pricesOf(s.ID), now); p != nil {
			price := p.Price
			row.CurrentPrice = &price
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return domain.NewListResult(out, int64(len(out)), f), nil
}

func (r *Repo) pricesOf(skuID id.ID) []catalog.Price {
	var out []catalog.Price
	for _, p := range r.prices {
		if p.SKUID == skuID {
			out = append(out, p)
		}
	}
	return out
}

func (r *Repo) ActivePrice(_ context.Context, skuID id.ID, at time.Time) (*catalog.Price, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := catalog.SelectActive(r.pricesOf(skuID), at)
	if p == nil {
		return nil, apperror.NewNotFound("active price", skuID)
	}
	return p, nil
}

func (r *Repo) OpenPrice(_ context.Context, skuID id.ID) (*catalog.Price, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.prices {
		if p.SKUID == skuID && p.IsOpen() {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *Repo) ClosePrice(_ context.Context, priceID id.ID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.prices {
		if r.prices[i].ID == priceID {
			end := at
			r.prices[i].EffectiveTo = &end
			return nil
		}
	}
	return apperror.NewNotFound("price", priceID)
}

// InsertPrice enforces the one-open-price rule like the partial unique index.
func (r *Repo) InsertPrice(_ context.Context, p *catalog.Price) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.IsOpen() {
		for _, existing := range r.prices {
			if existing.SKUID == p.SKUID && existing.IsOpen() {
				return apperror.NewDuplicate("sku_prices", "uq_sku_prices_open", p.SKUID.String())
			}
		}
	}
	r.prices = append(r.prices, *p)
	return nil
}

func (r *Repo) PriceHistory(_ context.Context, skuID id.ID, limit int) ([]catalog.Price, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.pricesOf(skuID)
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveFrom.After(out[j].EffectiveFrom) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Snapshot implements txtest.Snapshotter.
func (r *Repo) Snapshot() func() {
	r.mu.RLock()
	skus := make(map[id.ID]catalog.SKU, len(r.skus))
	for k, s := range r.skus {
		skus[k] = s
	}
	prices := make([]catalog.Price, len(r.prices))
	for i, p := range r.prices {
		if p.EffectiveTo != nil {
			end := *p.EffectiveTo
			p.EffectiveTo = &end
		}
		prices[i] = p
	}
	r.mu.RUnlock()
	return func() {
		r.mu.Lock()
		r.skus = skus
		r.prices = prices
		r.mu.Unlock()
	}
}

// Money is a test shorthand.
func Money(s string) types.Money { return types.MustMoney(s) }
