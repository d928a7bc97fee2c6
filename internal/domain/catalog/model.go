// Package catalog holds manufacturer SKUs and their time-bounded prices.
package catalog

import (
	"sort"
	"time"

	"bizzplus/internal/core/id"
	"bizzplus/internal/core/types"
)

// DefaultCurrency is used when a price is set without one.
const DefaultCurrency = "INR"

// SKU is a sellable product scoped to one manufacturer.
type SKU struct {
	ID             id.ID         `db:"id" json:"id"`
	ManufacturerID id.ID         `db:"manufacturer_id" json:"manufacturerId"`
	Code           string        `db:"sku_code" json:"skuCode"`
	Name           string        `db:"name" json:"name"`
	HSN            string        `db:"hsn" json:"hsn,omitempty"`
	GSTPercent     types.Percent `db:"gst_percent" json:"gstPercent"`
	UOM            string        `db:"uom" json:"uom"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updatedAt"`
}

// SKUWithPrice is a catalog listing row. CurrentPrice is nil when no price is active.
type SKUWithPrice struct {
	SKU
	CurrentPrice *types.Money `db:"current_price" json:"currentPrice"`
}

// Price is one entry of a SKU's price history. EffectiveTo nil marks the open price.
type Price struct {
	ID            id.ID       `db:"id" json:"id"`
	SKUID         id.ID       `db:"sku_id" json:"skuId"`
	Price         types.Money `db:"price" json:"price"`
	Currency      string      `db:"currency" json:"currency"`
	EffectiveFrom time.Time   `db:"effective_from" json:"effectiveFrom"`
	EffectiveTo   *time.Time  `db:"effective_to" json:"effectiveTo,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"createdAt"`
}

// IsOpen reports whether the price has no end.
func (p *Price) IsOpen() bool {
	return p.EffectiveTo == nil
}

// ActiveAt reports whether at lies in [EffectiveFrom, EffectiveTo].
func (p *Price) ActiveAt(at time.Time) bool {
	if p.EffectiveFrom.After(at) {
		return false
	}
	return p.EffectiveTo == nil || !p.EffectiveTo.Before(at)
}

// SelectActive picks the price in effect at the given instant: latest
// EffectiveFrom first, ties broken by the larger id. Returns nil if none.
func SelectActive(prices []Price, at time.Time) *Price {
	candidates := make([]Price, 0, len(prices))
	for _, p := range prices {
		if p.ActiveAt(at) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].EffectiveFrom.Equal(candidates[j].EffectiveFrom) {
			return candidates[i].EffectiveFrom.After(candidates[j].EffectiveFrom)
		}
		return candidates[i].ID.String() > candidates[j].ID.String()
	})
	return &candidates[0]
}
