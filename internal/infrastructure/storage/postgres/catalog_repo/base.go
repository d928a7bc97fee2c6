// Package catalog_repo provides PostgreSQL implementations of the party and
// catalog repositories.
package catalog_repo

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
	"bizzplus/internal/infrastructure/storage/postgres"
)

// baseRepo holds the table metadata shared by lookup repositories.
type baseRepo[T any] struct {
	txManager  *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
	searchCols []string
	orderBy    string
}

func (r *baseRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

func (r *baseRepo[T]) baseSelect() sq.SelectBuilder {
	return postgres.Builder().Select(r.selectCols...).From(r.tableName)
}

// getByID loads one row by id, optionally locking it.
func (r *baseRepo[T]) getByID(ctx context.Context, entityID id.ID, forUpdate bool) (*T, error) {
	q := r.baseSelect().Where(sq.Eq{"id": entityID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	var row T
	if err := postgres.Get(ctx, r.querier(ctx), &row, q, r.entityName, entityID); err != nil {
		return nil, err
	}
	return &row, nil
}

// list applies the search filter and pagination to q.
func (r *baseRepo[T]) list(ctx context.Context, q sq.SelectBuilder, f domain.ListFilter) ([]*T, int64, error) {
	if f.Search != "" && len(r.searchCols) > 0 {
		q = q.Where(postgres.Search(f.Search, r.searchCols...))
	}
	var rows []*T
	total, err := postgres.Page(ctx, r.querier(ctx), &rows, q, r.orderBy, f)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
