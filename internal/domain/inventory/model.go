// Package inventory tracks per-distributor stock balances.
package inventory

import (
	"time"

	"bizzplus/internal/core/id"
	"bizzplus/internal/core/types"
)

// Balance is the on-hand and reserved quantity of one SKU at one distributor.
// OnHand may go negative; that is reported as an alert, not rejected.
type Balance struct {
	ID            id.ID          `db:"id" json:"id"`
	DistributorID id.ID          `db:"distributor_id" json:"distributorId"`
	SKUID         id.ID          `db:"sku_id" json:"skuId"`
	OnHand        types.Quantity `db:"on_hand" json:"onHand"`
	Reserved      types.Quantity `db:"reserved" json:"reserved"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}

// BalanceView is a balance joined with SKU data for listings.
type BalanceView struct {
	Balance
	SKUCode string `db:"sku_code" json:"skuCode"`
	SKUName string `db:"sku_name" json:"skuName"`
	UOM     string `db:"uom" json:"uom"`
}

// Line is a quantity received for one SKU.
type Line struct {
	SKUID id.ID          `json:"skuId" validate:"required"`
	Qty   types.Quantity `json:"qty" validate:"qty"`
}
