// Package register_repo provides the PostgreSQL inventory balance register.
package register_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/core/id"
	"bizzplus/internal/core/types"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/inventory"
	"bizzplus/internal/infrastructure/storage/postgres"
)

const balancesTable = "inventory_balances"

var balanceViewCols = []string{
	"b.id", "b.distributor_id", "b.sku_id", "b.on_hand", "b.reserved", "b.updated_at",
	"s.sku_code", "s.name AS sku_name", "s.uom",
}

// BalanceRepo implements inventory.Repository.
type BalanceRepo struct {
	txManager *postgres.TxManager
}

var _ inventory.Repository = (*BalanceRepo)(nil)

// NewBalanceRepo creates a new balance repository.
func NewBalanceRepo(txManager *postgres.TxManager) *BalanceRepo {
	return &BalanceRepo{txManager: txManager}
}

func (r *BalanceRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Ensure inserts a zero balance unless the pair already has one.
func (r *BalanceRepo) Ensure(ctx context.Context, distributorID, skuID id.ID) error {
	q := postgres.Builder().Insert(balancesTable).
		Columns("id", "distributor_id", "sku_id", "on_hand", "reserved").
		Values(id.New(), distributorID, skuID, 0, 0).
		Suffix("ON CONFLICT (distributor_id, sku_id) DO NOTHING")

	if _, err := postgres.Exec(ctx, r.querier(ctx), q); err != nil {
		return fmt.Errorf("ensure balance: %w", err)
	}
	return nil
}

// GetForUpdate locks the pair's balance until the transaction ends.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, distributorID, skuID id.ID) (*inventory.Balance, error) {
	if !r.txManager.InTx(ctx) {
		return nil, fmt.Errorf("balance lock requires transaction context")
	}
	q := postgres.Builder().
		Select("id", "distributor_id", "sku_id", "on_hand", "reserved", "updated_at").
		From(balancesTable).
		Where(sq.Eq{"distributor_id": distributorID, "sku_id": skuID}).
		Suffix("FOR UPDATE")

	var b inventory.Balance
	if err := postgres.Get(ctx, r.querier(ctx), &b, q, "inventory balance", skuID); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BalanceRepo) AddOnHand(ctx context.Context, balanceID id.ID, qty types.Quantity) error {
	q := postgres.Builder().Update(balancesTable).
		Set("on_hand", sq.Expr("on_hand + ?", qty)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": balanceID})

	n, err := postgres.Exec(ctx, r.querier(ctx), q)
	if err != nil {
		return fmt.Errorf("add on hand: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("inventory balance", balanceID)
	}
	return nil
}

func (r *BalanceRepo) viewSelect(distributorID id.ID) sq.SelectBuilder {
	return postgres.Builder().
		Select(balanceViewCols...).
		From(balancesTable + " b").
		Join("skus s ON s.id = b.sku_id").
		Where(sq.Eq{"b.distributor_id": distributorID})
}

// List pages a distributor's balances ordered by SKU name.
func (r *BalanceRepo) List(ctx context.Context, distributorID id.ID, f domain.ListFilter) (domain.ListResult[*inventory.BalanceView], error) {
	q := r.viewSelect(distributorID)
	if f.Search != "" {
		q = q.Where(postgres.Search(f.Search, "s.name", "s.sku_code"))
	}

	var rows []*inventory.BalanceView
	total, err := postgres.Page(ctx, r.querier(ctx), &rows, q, "s.name ASC, b.id ASC", f)
	if err != nil {
		return domain.ListResult[*inventory.BalanceView]{}, fmt.Errorf("list balances: %w", err)
	}
	return domain.NewListResult(rows, total, f), nil
}

func (r *BalanceRepo) ListAll(ctx context.Context, distributorID id.ID) ([]*inventory.BalanceView, error) {
	rows := make([]*inventory.BalanceView, 0)
	if err := postgres.Select(ctx, r.querier(ctx), &rows, r.viewSelect(distributorID).OrderBy("s.name ASC")); err != nil {
		return nil, fmt.Errorf("list all balances: %w", err)
	}
	return rows, nil
}
