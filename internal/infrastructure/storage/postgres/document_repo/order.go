package document_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/order"
	"bizzplus/internal/infrastructure/storage/postgres"
)

var orderItemCols = []string{
	"id", "order_id", "sku_id", "line_no", "qty", "rate",
	"gst_percent", "line_total", "line_gst", "line_grand_total",
}

// OrderRepo implements order.Repository.
type OrderRepo struct {
	*BaseDocumentRepo[order.Order]
	batch *postgres.BatchInserter
}

var _ order.Repository = (*OrderRepo)(nil)

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txManager *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[order.Order](txManager, "orders", "order"),
		batch:            postgres.NewBatchInserter(txManager),
	}
}

// Create inserts the header and copies the items in.
func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	if err := r.insert(ctx, o); err != nil {
		return err
	}

	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	if _, err := postgres.CopyStructs(ctx, r.batch, "order_items", orderItemCols, o.Items); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

// GetItems returns the lines in line order with their SKU data.
func (r *OrderRepo) GetItems(ctx context.Context, orderID id.ID) ([]order.Item, error) {
	q := postgres.Builder().
		Select(
			"i.id", "i.order_id", "i.sku_id", "i.line_no", "i.qty", "i.rate",
			"i.gst_percent", "i.line_total", "i.line_gst", "i.line_grand_total",
			"s.sku_code", "s.name AS sku_name", "COALESCE(s.hsn, '') AS hsn", "s.uom",
		).
		From("order_items i").
		Join("skus s ON s.id = i.sku_id").
		Where(sq.Eq{"i.order_id": orderID}).
		OrderBy("i.line_no")

	items := make([]order.Item, 0)
	if err := postgres.Select(ctx, r.querier(ctx), &items, q); err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	return items, nil
}

// UpdateStatus writes the lifecycle fields under the version check.
func (r *OrderRepo) UpdateStatus(ctx context.Context, o *order.Order) error {
	err := r.updateVersioned(ctx, o.ID, o.Version, map[string]any{
		"status":       o.Status,
		"placed_at":    o.PlacedAt,
		"fulfilled_at": o.FulfilledAt,
		"updated_at":   o.UpdatedAt,
	})
	if err != nil {
		return err
	}
	o.Version++
	return nil
}

// List returns headers newest first.
func (r *OrderRepo) List(ctx context.Context, f order.ListFilter) (domain.ListResult[*order.Order], error) {
	q := r.baseSelect()
	if !id.IsNil(f.ManufacturerID) {
		q = q.Where(sq.Eq{"manufacturer_id": f.ManufacturerID})
	}
	if !id.IsNil(f.DistributorID) {
		q = q.Where(sq.Eq{"distributor_id": f.DistributorID})
	}
	if len(f.Statuses) > 0 {
		q = q.Where(sq.Eq{"status": f.Statuses})
	}
	if f.Search != "" {
		q = q.Where(postgres.Search(f.Search, "number"))
	}

	var rows []*order.Order
	total, err := postgres.Page(ctx, r.querier(ctx), &rows, q, "created_at DESC, id DESC", f.ListFilter)
	if err != nil {
		return domain.ListResult[*order.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return domain.NewListResult(rows, total, f.ListFilter), nil
}
