package voucher

import (
	"context"
	"time"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/party"
)

// ListFilter narrows voucher listings.
type ListFilter struct {
	domain.ListFilter

	Party       *party.Ref
	Type        Type
	Status      Status
	OrderNumber string
}

// Repository defines voucher persistence.
type Repository interface {
	// CreateBatch fails with ErrOrderExported when the order already has a
	// system voucher of the same type.
	CreateBatch(ctx context.Context, vouchers []*Voucher) error
	GetByID(ctx context.Context, voucherID id.ID) (*Voucher, error)
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Voucher], error)
	ExistsForOrder(ctx context.Context, orderNumber string) (bool, error)

	// MarkSent and MarkError only touch queued vouchers and report whether a row changed.
	MarkSent(ctx context.Context, voucherID id.ID, externalID string, at time.Time) (bool, error)
	MarkError(ctx context.Context, voucherID id.ID, message string) (bool, error)
	// RecordAttempt counts a failed attempt and keeps the voucher queued.
	RecordAttempt(ctx context.Context, voucherID id.ID, message string) error

	// ClaimStale returns queued vouchers not touched since before, skipping
	// rows locked by other sweepers, and touches them.
	ClaimStale(ctx context.Context, before time.Time, limit int) ([]id.ID, error)
}

// Queue hands voucher ids to the export worker.
type Queue interface {
	Enqueue(ctx context.Context, voucherID id.ID) error
}

// Exporter pushes a voucher to the external ledger and returns its id there.
type Exporter interface {
	Export(ctx context.Context, v *Voucher) (externalID string, err error)
}
