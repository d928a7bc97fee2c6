// Package report_repo provides the PostgreSQL dashboard queries.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain/dashboard"
	"bizzplus/internal/domain/party"
	"bizzplus/internal/domain/voucher"
	"bizzplus/internal/infrastructure/storage/postgres"
)

const (
	manufacturerCountsSQL = `
		SELECT
			COUNT(*) FILTER (WHERE status = 'placed') AS open_orders,
			COUNT(*) FILTER (WHERE status = 'fulfilled' AND fulfilled_at >= $2) AS todays_fulfillments,
			COALESCE(SUM(grand_total) FILTER (WHERE status = 'fulfilled' AND fulfilled_at >= $2), 0) AS todays_value
		FROM orders
		WHERE manufacturer_id = $1`

	latestOrdersSQL = `
		SELECT o.id, o.number, o.status, o.grand_total, o.distributor_id,
		       d.name AS distributor_name, o.created_at
		FROM orders o
		JOIN distributors d ON d.id = o.distributor_id
		WHERE o.manufacturer_id = $1
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $2`

	priceChangesSQL = `
		SELECT p.sku_id, s.sku_code, s.name AS sku_name, p.price, p.currency, p.effective_from
		FROM sku_prices p
		JOIN skus s ON s.id = p.sku_id
		WHERE s.manufacturer_id = $1 AND p.effective_from >= $2
		ORDER BY p.effective_from DESC, p.id DESC
		LIMIT $3`

	distributorCountsSQL = `
		SELECT
			(SELECT COUNT(*) FROM inventory_balances
			  WHERE distributor_id = $1 AND on_hand > 0) AS on_hand_skus,
			(SELECT COUNT(*) FROM orders
			  WHERE distributor_id = $1 AND status IN ('placed', 'accepted')) AS open_pos,
			(SELECT COUNT(*) FROM vouchers
			  WHERE party_type = 'distributor' AND party_id = $1
			    AND type = 'sales' AND created_at >= $2) AS recent_sales`
)

// DashboardRepo implements dashboard.Repository.
type DashboardRepo struct {
	txManager *postgres.TxManager
	vouchers  []string
}

var _ dashboard.Repository = (*DashboardRepo)(nil)

// NewDashboardRepo creates a new dashboard repository.
func NewDashboardRepo(txManager *postgres.TxManager) *DashboardRepo {
	return &DashboardRepo{
		txManager: txManager,
		vouchers:  postgres.ExtractDBColumns[voucher.Voucher](),
	}
}

func (r *DashboardRepo) ManufacturerCounts(ctx context.Context, manufacturerID id.ID, dayStart time.Time) (dashboard.ManufacturerCounts, error) {
	var c dashboard.ManufacturerCounts
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &c, manufacturerCountsSQL, manufacturerID, dayStart); err != nil {
		return c, fmt.Errorf("manufacturer counts: %w", err)
	}
	return c, nil
}

func (r *DashboardRepo) LatestOrders(ctx context.Context, manufacturerID id.ID, limit int) ([]dashboard.OrderRow, error) {
	rows := make([]dashboard.OrderRow, 0, limit)
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, latestOrdersSQL, manufacturerID, limit); err != nil {
		return nil, fmt.Errorf("latest orders: %w", err)
	}
	return rows, nil
}

func (r *DashboardRepo) PriceChanges(ctx context.Context, manufacturerID id.ID, since time.Time, limit int) ([]dashboard.PriceChangeRow, error) {
	rows := make([]dashboard.PriceChangeRow, 0, limit)
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, priceChangesSQL, manufacturerID, since, limit); err != nil {
		return nil, fmt.Errorf("price changes: %w", err)
	}
	return rows, nil
}

func (r *DashboardRepo) DistributorCounts(ctx context.Context, distributorID id.ID, dayStart time.Time) (dashboard.DistributorCounts, error) {
	var c dashboard.DistributorCounts
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &c, distributorCountsSQL, distributorID, dayStart); err != nil {
		return c, fmt.Errorf("distributor counts: %w", err)
	}
	return c, nil
}

func (r *DashboardRepo) RecentVouchers(ctx context.Context, ref party.Ref, limit int) ([]*voucher.Voucher, error) {
	q := postgres.Builder().
		Select(r.vouchers...).
		From("vouchers").
		Where("party_type = ? AND party_id = ?", ref.Kind, ref.ID).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))

	rows := make([]*voucher.Voucher, 0, limit)
	if err := postgres.Select(ctx, r.txManager.GetQuerier(ctx), &rows, q); err != nil {
		return nil, fmt.Errorf("recent vouchers: %w", err)
	}
	return rows, nil
}
