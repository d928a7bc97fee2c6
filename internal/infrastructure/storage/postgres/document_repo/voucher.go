package document_repo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/voucher"
	"bizzplus/internal/infrastructure/storage/postgres"
)

// VoucherRepo implements voucher.Repository.
type VoucherRepo struct {
	*BaseDocumentRepo[voucher.Voucher]
}

var _ voucher.Repository = (*VoucherRepo)(nil)

// NewVoucherRepo creates a new voucher repository.
func NewVoucherRepo(txManager *postgres.TxManager) *VoucherRepo {
	return &VoucherRepo{NewBaseDocumentRepo[voucher.Voucher](txManager, "vouchers", "voucher")}
}

const uniqueOrderType = "uq_vouchers_order_type"

// CreateBatch inserts vouchers in one statement. It must run inside the
// caller's transaction.
func (r *VoucherRepo) CreateBatch(ctx context.Context, vouchers []*voucher.Voucher) error {
	if len(vouchers) == 0 {
		return nil
	}
	if !r.txManager.InTx(ctx) {
		return fmt.Errorf("voucher batch insert requires transaction context")
	}

	q := postgres.Builder().Insert(r.tableName).Columns(r.selectCols...)
	for _, v := range vouchers {
		data := postgres.StructToMap(v)
		values := make([]any, 0, len(r.selectCols))
		for _, col := range r.selectCols {
			values = append(values, data[col])
		}
		q = q.Values(values...)
	}
	if _, err := postgres.Exec(ctx, r.querier(ctx), q); err != nil {
		if postgres.IsUniqueViolation(err, uniqueOrderType) {
			return voucher.ErrOrderExported(vouchers[0].OrderNumber).WithCause(err)
		}
		return fmt.Errorf("insert vouchers: %w", err)
	}
	return nil
}

func (r *VoucherRepo) GetByID(ctx context.Context, voucherID id.ID) (*voucher.Voucher, error) {
	return r.BaseDocumentRepo.GetByID(ctx, voucherID)
}

// List returns vouchers newest first.
func (r *VoucherRepo) List(ctx context.Context, f voucher.ListFilter) (domain.ListResult[*voucher.Voucher], error) {
	q := r.baseSelect()
	if f.Party != nil {
		q = q.Where(sq.Eq{"party_type": f.Party.Kind, "party_id": f.Party.ID})
	}
	if f.Type != "" {
		q = q.Where(sq.Eq{"type": f.Type})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": f.Status})
	}
	if f.OrderNumber != "" {
		q = q.Where(sq.Eq{"order_number": f.OrderNumber})
	}

	var rows []*voucher.Voucher
	total, err := postgres.Page(ctx, r.querier(ctx), &rows, q, "created_at DESC, id DESC", f.ListFilter)
	if err != nil {
		return domain.ListResult[*voucher.Voucher]{}, fmt.Errorf("list vouchers: %w", err)
	}
	return domain.NewListResult(rows, total, f.ListFilter), nil
}

func (r *VoucherRepo) ExistsForOrder(ctx context.Context, orderNumber string) (bool, error) {
	sql, args, err := postgres.Builder().
		Select("1").From(r.tableName).
		Where(sq.Eq{"order_number": orderNumber}).
		Prefix("SELECT EXISTS(").Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists: %w", err)
	}
	var exists bool
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check vouchers for order: %w", err)
	}
	return exists, nil
}

// MarkSent moves a queued voucher to sent.
func (r *VoucherRepo) MarkSent(ctx context.Context, voucherID id.ID, externalID string, at time.Time) (bool, error) {
	return r.finish(ctx, voucherID, map[string]any{
		"status":        voucher.StatusSent,
		"external_id":   externalID,
		"sent_at":       at,
		"error_message": nil,
	})
}

// MarkError moves a queued voucher to error.
func (r *VoucherRepo) MarkError(ctx context.Context, voucherID id.ID, message string) (bool, error) {
	return r.finish(ctx, voucherID, map[string]any{
		"status":        voucher.StatusError,
		"error_message": message,
	})
}

func (r *VoucherRepo) finish(ctx context.Context, voucherID id.ID, set map[string]any) (bool, error) {
	q := postgres.Builder().Update(r.tableName).
		SetMap(set).
		Set("attempts", sq.Expr("attempts + 1")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": voucherID, "status": voucher.StatusQueued})

	n, err := postgres.Exec(ctx, r.querier(ctx), q)
	if err != nil {
		return false, fmt.Errorf("update voucher status: %w", err)
	}
	return n > 0, nil
}

func (r *VoucherRepo) RecordAttempt(ctx context.Context, voucherID id.ID, message string) error {
	q := postgres.Builder().Update(r.tableName).
		Set("attempts", sq.Expr("attempts + 1")).
		Set("error_message", message).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": voucherID, "status": voucher.StatusQueued})

	if _, err := postgres.Exec(ctx, r.querier(ctx), q); err != nil {
		return fmt.Errorf("record export attempt: %w", err)
	}
	return nil
}

// ClaimStale touches and returns queued vouchers idle since before. Rows
// locked by a concurrent sweeper are skipped.
func (r *VoucherRepo) ClaimStale(ctx context.Context, before time.Time, limit int) ([]id.ID, error) {
	ids := make([]id.ID, 0)
	if err := postgres.Select(ctx, r.querier(ctx), &ids, claimStaleQuery(before, limit)); err != nil {
		return nil, fmt.Errorf("claim stale vouchers: %w", err)
	}
	return ids, nil
}

func claimStaleQuery(before time.Time, limit int) sq.UpdateBuilder {
	stale := sq.Select("id").From("vouchers").
		Where(sq.Eq{"status": voucher.StatusQueued}).
		Where(sq.Lt{"updated_at": before}).
		OrderBy("updated_at").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED")

	return postgres.Builder().Update("vouchers").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Expr("id IN (?)", stale)).
		Suffix("RETURNING id")
}
