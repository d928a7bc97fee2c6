package inventory

import (
	"context"

	"bizzplus/internal/core/id"
	"bizzplus/internal/core/types"
	"bizzplus/internal/domain"
)

// Repository defines balance persistence.
type Repository interface {
	// Ensure creates a zero balance for the pair if none exists.
	Ensure(ctx context.Context, distributorID, skuID id.ID) error
	// GetForUpdate locks the balance row of the pair.
	GetForUpdate(ctx context.Context, distributorID, skuID id.ID) (*Balance, error)
	// AddOnHand adds qty to on_hand of a locked balance.
	AddOnHand(ctx context.Context, balanceID id.ID, qty types.Quantity) error

	List(ctx context.Context, distributorID id.ID, filter domain.ListFilter) (domain.ListResult[*BalanceView], error)
	// ListAll returns every balance of the distributor, for alert evaluation.
	ListAll(ctx context.Context, distributorID id.ID) ([]*BalanceView, error)
}
