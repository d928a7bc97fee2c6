package order

import (
	"context"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
)

// ListFilter narrows order listings. Zero values are ignored.
type ListFilter struct {
	domain.ListFilter

	ManufacturerID id.ID
	DistributorID  id.ID
	Statuses       []Status
}

// Repository defines order persistence.
type Repository interface {
	// Create inserts the header and its items.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)
	// GetForUpdate loads the header and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error)
	GetItems(ctx context.Context, orderID id.ID) ([]Item, error)
	// UpdateStatus writes status and timestamps when o.Version still matches,
	// then bumps o.Version. A stale version yields CONCURRENT_MODIFICATION.
	UpdateStatus(ctx context.Context, o *Order) error
	// List returns headers newest first.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error)
}
