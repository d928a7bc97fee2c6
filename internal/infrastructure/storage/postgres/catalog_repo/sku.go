package catalog_repo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/catalog"
	"bizzplus/internal/infrastructure/storage/postgres"
)

var (
	skuCols   = []string{"s.id", "s.manufacturer_id", "s.sku_code", "s.name", "COALESCE(s.hsn, '') AS hsn", "s.gst_percent", "s.uom", "s.created_at", "s.updated_at"}
	priceCols = []string{"id", "sku_id", "price", "currency", "effective_from", "effective_to", "created_at"}
)

// activeAt matches prices whose [effective_from, effective_to] window contains at.
func activeAt(alias string, at time.Time) sq.Sqlizer {
	return sq.And{
		sq.LtOrEq{alias + "effective_from": at},
		sq.Or{sq.Eq{alias + "effective_to": nil}, sq.GtOrEq{alias + "effective_to": at}},
	}
}

// SKURepo implements catalog.Repository.
type SKURepo struct {
	skus *baseRepo[catalog.SKU]
}

var _ catalog.Repository = (*SKURepo)(nil)

// NewSKURepo creates a new SKU repository.
func NewSKURepo(txManager *postgres.TxManager) *SKURepo {
	return &SKURepo{skus: &baseRepo[catalog.SKU]{
		txManager:  txManager,
		tableName:  "skus s",
		entityName: "sku",
		selectCols: skuCols,
		searchCols: []string{"s.name", "s.sku_code"},
		orderBy:    "s.name ASC, s.id ASC",
	}}
}

func (r *SKURepo) GetSKU(ctx context.Context, skuID id.ID) (*catalog.SKU, error) {
	return r.getSKU(ctx, skuID, false)
}

func (r *SKURepo) GetSKUForUpdate(ctx context.Context, skuID id.ID) (*catalog.SKU, error) {
	return r.getSKU(ctx, skuID, true)
}

func (r *SKURepo) getSKU(ctx context.Context, skuID id.ID, forUpdate bool) (*catalog.SKU, error) {
	q := r.skus.baseSelect().Where(sq.Eq{"s.id": skuID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE OF s")
	}
	var sku catalog.SKU
	if err := postgres.Get(ctx, r.skus.querier(ctx), &sku, q, "sku", skuID); err != nil {
		return nil, err
	}
	return &sku, nil
}

func (r *SKURepo) GetSKUByCodeForUpdate(ctx context.Context, manufacturerID id.ID, code string) (*catalog.SKU, error) {
	q := r.skus.baseSelect().
		Where(sq.Eq{"s.manufacturer_id": manufacturerID, "s.sku_code": code}).
		Suffix("FOR UPDATE OF s")
	var sku catalog.SKU
	if err := postgres.Get(ctx, r.skus.querier(ctx), &sku, q, "sku", code); err != nil {
		return nil, err
	}
	return &sku, nil
}

// upsertedSKU is a RETURNING row; xmax = 0 only on freshly inserted tuples.
type upsertedSKU struct {
	catalog.SKU
	Created bool `db:"created"`
}

func upsertSKUQuery(sku *catalog.SKU) sq.InsertBuilder {
	return postgres.Builder().Insert("skus").
		Columns("id", "manufacturer_id", "sku_code", "name", "hsn", "gst_percent", "uom", "created_at", "updated_at").
		Values(sku.ID, sku.ManufacturerID, sku.Code, sku.Name, sku.HSN, sku.GSTPercent, sku.UOM, sku.CreatedAt, sku.UpdatedAt).
		Suffix(`ON CONFLICT ON CONSTRAINT uq_skus_manufacturer_code DO UPDATE SET
			name = EXCLUDED.name, hsn = EXCLUDED.hsn, gst_percent = EXCLUDED.gst_percent,
			uom = EXCLUDED.uom, updated_at = EXCLUDED.updated_at
			RETURNING id, manufacturer_id, sku_code, name, COALESCE(hsn, '') AS hsn, gst_percent, uom,
			created_at, updated_at, (xmax = 0) AS created`)
}

func (r *SKURepo) UpsertSKU(ctx context.Context, sku *catalog.SKU) (bool, error) {
	var row upsertedSKU
	if err := postgres.Get(ctx, r.skus.querier(ctx), &row, upsertSKUQuery(sku), "sku", sku.Code); err != nil {
		return false, err
	}
	*sku = row.SKU
	return row.Created, nil
}

func (r *SKURepo) UpdateSKU(ctx context.Context, sku *catalog.SKU) error {
	q := postgres.Builder().Update("skus").
		SetMap(map[string]any{
			"name":        sku.Name,
			"hsn":         sku.HSN,
			"gst_percent": sku.GSTPercent,
			"uom":         sku.UOM,
			"updated_at":  sku.UpdatedAt,
		}).
		Where(sq.Eq{"id": sku.ID})

	n, err := postgres.Exec(ctx, r.skus.querier(ctx), q)
	if err != nil {
		return fmt.Errorf("update sku: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("sku", sku.ID)
	}
	return nil
}

// ListSKUs lists a manufacturer's SKUs with the price active now.
func (r *SKURepo) ListSKUs(ctx context.Context, manufacturerID id.ID, f domain.ListFilter) (domain.ListResult[*catalog.SKUWithPrice], error) {
	q := listSKUsQuery(manufacturerID, f.Search, time.Now().UTC())

	var rows []*catalog.SKUWithPrice
	total, err := postgres.Page(ctx, r.skus.querier(ctx), &rows, q, r.skus.orderBy, f)
	if err != nil {
		return domain.ListResult[*catalog.SKUWithPrice]{}, fmt.Errorf("list skus: %w", err)
	}
	return domain.NewListResult(rows, total, f), nil
}

func listSKUsQuery(manufacturerID id.ID, search string, now time.Time) sq.SelectBuilder {
	// Nested selects keep "?" placeholders; the outer builder numbers them.
	currentPrice := sq.Select("p.price").From("sku_prices p").
		Where("p.sku_id = s.id").
		Where(activeAt("p.", now)).
		OrderBy("p.effective_from DESC", "p.id DESC").
		Limit(1)

	q := postgres.Builder().
		Select(skuCols...).
		Column(sq.Alias(currentPrice, "current_price")).
		From("skus s").
		Where(sq.Eq{"s.manufacturer_id": manufacturerID})
	if search != "" {
		q = q.Where(postgres.Search(search, "s.name", "s.sku_code"))
	}
	return q
}

func (r *SKURepo) prices() sq.SelectBuilder {
	return postgres.Builder().Select(priceCols...).From("sku_prices")
}

// ActivePrice returns the latest price whose window contains at.
func (r *SKURepo) ActivePrice(ctx context.Context, skuID id.ID, at time.Time) (*catalog.Price, error) {
	q := r.prices().
		Where(sq.Eq{"sku_id": skuID}).
		Where(activeAt("", at)).
		OrderBy("effective_from DESC", "id DESC").
		Limit(1)

	var p catalog.Price
	if err := postgres.Get(ctx, r.skus.querier(ctx), &p, q, "price", skuID); err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("price", skuID).WithDetail("at", at)
		}
		return nil, err
	}
	return &p, nil
}

// OpenPrice returns the price without an end, or nil.
func (r *SKURepo) OpenPrice(ctx context.Context, skuID id.ID) (*catalog.Price, error) {
	q := r.prices().Where(sq.Eq{"sku_id": skuID, "effective_to": nil})

	var p catalog.Price
	if err := postgres.Get(ctx, r.skus.querier(ctx), &p, q, "price", skuID); err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *SKURepo) ClosePrice(ctx context.Context, priceID id.ID, at time.Time) error {
	q := postgres.Builder().Update("sku_prices").
		Set("effective_to", at).
		Where(sq.Eq{"id": priceID, "effective_to": nil})

	n, err := postgres.Exec(ctx, r.skus.querier(ctx), q)
	if err != nil {
		return fmt.Errorf("close price: %w", err)
	}
	if n == 0 {
		return apperror.NewConcurrentModification("price", priceID)
	}
	return nil
}

func (r *SKURepo) InsertPrice(ctx context.Context, p *catalog.Price) error {
	q := postgres.Builder().Insert("sku_prices").SetMap(postgres.StructToMap(p))
	if _, err := postgres.Exec(ctx, r.skus.querier(ctx), q); err != nil {
		if postgres.IsUniqueViolation(err, "uq_sku_prices_open") {
			return apperror.NewConcurrentModification("price", p.SKUID)
		}
		return fmt.Errorf("insert price: %w", err)
	}
	return nil
}

// PriceHistory returns prices newest first.
func (r *SKURepo) PriceHistory(ctx context.Context, skuID id.ID, limit int) ([]catalog.Price, error) {
	q := r.prices().
		Where(sq.Eq{"sku_id": skuID}).
		OrderBy("effective_from DESC", "id DESC").
		Limit(uint64(limit))

	prices := make([]catalog.Price, 0)
	if err := postgres.Select(ctx, r.skus.querier(ctx), &prices, q); err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	return prices, nil
}
