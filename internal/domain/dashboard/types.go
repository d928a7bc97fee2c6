// Package dashboard builds the manufacturer and distributor home screens.
package dashboard

import (
	"time"

	"bizzplus/internal/core/id"
	"bizzplus/internal/core/types"
	"bizzplus/internal/domain/inventory"
	"bizzplus/internal/domain/voucher"
)

// Row limits of the dashboard lists.
const (
	LatestOrdersLimit   = 10
	PriceChangesLimit   = 20
	PriceChangesWindow  = 30 * 24 * time.Hour
	NegativeStockLimit  = 10
	RecentVouchersLimit = 20
)

// --- Manufacturer ---

// ManufacturerCounts are the aggregate tiles of the manufacturer dashboard.
type ManufacturerCounts struct {
	OpenOrders         int         `db:"open_orders" json:"openOrders"`
	TodaysFulfillments int         `db:"todays_fulfillments" json:"todaysFulfillments"`
	TodaysValue        types.Money `db:"todays_value" json:"todaysValue"`
}

// OrderRow is an order header with its distributor's name.
type OrderRow struct {
	ID              id.ID       `db:"id" json:"id"`
	Number          string      `db:"number" json:"number"`
	Status          string      `db:"status" json:"status"`
	GrandTotal      types.Money `db:"grand_total" json:"grandTotal"`
	DistributorID   id.ID       `db:"distributor_id" json:"distributorId"`
	DistributorName string      `db:"distributor_name" json:"distributorName"`
	CreatedAt       time.Time   `db:"created_at" json:"createdAt"`
}

// PriceChangeRow is a recently opened price.
type PriceChangeRow struct {
	SKUID         id.ID       `db:"sku_id" json:"skuId"`
	SKUCode       string      `db:"sku_code" json:"skuCode"`
	SKUName       string      `db:"sku_name" json:"skuName"`
	Price         types.Money `db:"price" json:"price"`
	Currency      string      `db:"currency" json:"currency"`
	EffectiveFrom time.Time   `db:"effective_from" json:"effectiveFrom"`
}

// ManufacturerSummary is the manufacturer dashboard.
type ManufacturerSummary struct {
	ManufacturerCounts
	LatestOrders []OrderRow       `json:"latestOrders"`
	PriceChanges []PriceChangeRow `json:"priceChanges"`
}

// --- Distributor ---

// DistributorCounts are the aggregate tiles of the distributor dashboard.
type DistributorCounts struct {
	OnHandSKUs  int `db:"on_hand_skus" json:"onHandSkus"`
	OpenPOs     int `db:"open_pos" json:"openPos"`
	RecentSales int `db:"recent_sales" json:"recentSales"`
}

// DistributorSummary is the distributor dashboard.
type DistributorSummary struct {
	DistributorCounts
	LowStock       int                      `json:"lowStock"`
	NegativeStock  []*inventory.BalanceView `json:"negativeStock"`
	RecentVouchers []*voucher.Voucher       `json:"recentVouchers"`
}
