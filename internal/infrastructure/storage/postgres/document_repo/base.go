// Package document_repo provides PostgreSQL repositories for orders and vouchers.
package document_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/core/id"
	"bizzplus/internal/infrastructure/storage/postgres"
)

// BaseDocumentRepo provides insert and lookup for a document table whose
// columns are the "db" tags of T.
type BaseDocumentRepo[T any] struct {
	txManager  *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](txManager *postgres.TxManager, tableName, entityName string) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txManager:  txManager,
		tableName:  tableName,
		entityName: entityName,
		selectCols: postgres.ExtractDBColumns[T](),
	}
}

func (r *BaseDocumentRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

func (r *BaseDocumentRepo[T]) baseSelect() sq.SelectBuilder {
	return postgres.Builder().Select(r.selectCols...).From(r.tableName)
}

// insert writes entity using its "db" tags.
func (r *BaseDocumentRepo[T]) insert(ctx context.Context, entity *T) error {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in %s", r.entityName)
	}
	q := postgres.Builder().Insert(r.tableName).SetMap(data)
	if _, err := postgres.Exec(ctx, r.querier(ctx), q); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// GetByID retrieves a document by ID.
func (r *BaseDocumentRepo[T]) GetByID(ctx context.Context, entityID id.ID) (*T, error) {
	return r.get(ctx, r.baseSelect().Where(sq.Eq{"id": entityID}), entityID)
}

// GetForUpdate retrieves a document and locks its row.
func (r *BaseDocumentRepo[T]) GetForUpdate(ctx context.Context, entityID id.ID) (*T, error) {
	if !r.txManager.InTx(ctx) {
		return nil, fmt.Errorf("GetForUpdate on %s requires transaction context", r.tableName)
	}
	return r.get(ctx, r.baseSelect().Where(sq.Eq{"id": entityID}).Suffix("FOR UPDATE"), entityID)
}

func (r *BaseDocumentRepo[T]) get(ctx context.Context, q sq.SelectBuilder, key any) (*T, error) {
	var entity T
	if err := postgres.Get(ctx, r.querier(ctx), &entity, q, r.entityName, key); err != nil {
		return nil, err
	}
	return &entity, nil
}

// updateVersioned applies set to the row with the given id and version and
// bumps the version. Zero affected rows means a concurrent writer won.
func (r *BaseDocumentRepo[T]) updateVersioned(ctx context.Context, entityID id.ID, version int, set map[string]any) error {
	q := postgres.Builder().
		Update(r.tableName).
		SetMap(set).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": entityID, "version": version})

	n, err := postgres.Exec(ctx, r.querier(ctx), q)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	if n == 0 {
		return apperror.NewConcurrentModification(r.entityName, entityID)
	}
	return nil
}
