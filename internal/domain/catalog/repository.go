package catalog

import (
	"context"
	"time"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
)

// Repository defines SKU and price persistence.
type Repository interface {
	GetSKU(ctx context.Context, skuID id.ID) (*SKU, error)
	// GetSKUForUpdate locks the SKU row; price rotation serializes on it.
	GetSKUForUpdate(ctx context.Context, skuID id.ID) (*SKU, error)
	ListSKUs(ctx context.Context, manufacturerID id.ID, filter domain.ListFilter) (domain.ListResult[*SKUWithPrice], error)
	// GetSKUByCodeForUpdate locks the manufacturer's SKU with the code.
	GetSKUByCodeForUpdate(ctx context.Context, manufacturerID id.ID, code string) (*SKU, error)
	// UpsertSKU inserts sku or, when the manufacturer already has its code,
	// overwrites the descriptive fields. sku is refreshed from the stored row.
	UpsertSKU(ctx context.Context, sku *SKU) (created bool, err error)
	UpdateSKU(ctx context.Context, sku *SKU) error

	// ActivePrice returns the price in effect at the instant, or NOT_FOUND.
	ActivePrice(ctx context.Context, skuID id.ID, at time.Time) (*Price, error)
	// OpenPrice returns the price with no end, or nil.
	OpenPrice(ctx context.Context, skuID id.ID) (*Price, error)
	ClosePrice(ctx context.Context, priceID id.ID, at time.Time) error
	InsertPrice(ctx context.Context, p *Price) error
	PriceHistory(ctx context.Context, skuID id.ID, limit int) ([]Price, error)
}
