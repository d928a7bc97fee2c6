package dashboard

import (
	"context"
	"time"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain/party"
	"bizzplus/internal/domain/voucher"
)

// Repository runs the dashboard aggregate queries.
type Repository interface {
	// ManufacturerCounts counts placed orders and the orders fulfilled since dayStart.
	ManufacturerCounts(ctx context.Context, manufacturerID id.ID, dayStart time.Time) (ManufacturerCounts, error)
	LatestOrders(ctx context.Context, manufacturerID id.ID, limit int) ([]OrderRow, error)
	PriceChanges(ctx context.Context, manufacturerID id.ID, since time.Time, limit int) ([]PriceChangeRow, error)

	// DistributorCounts counts SKUs in stock, open purchase orders and sales vouchers since dayStart.
	DistributorCounts(ctx context.Context, distributorID id.ID, dayStart time.Time) (DistributorCounts, error)
	RecentVouchers(ctx context.Context, ref party.Ref, limit int) ([]*voucher.Voucher, error)
}
