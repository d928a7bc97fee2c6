package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bizzplus/internal/core/apperror"
	appctx "bizzplus/internal/core/context"
	"bizzplus/internal/core/id"
	"bizzplus/internal/core/tx"
	"bizzplus/internal/core/types"
	"bizzplus/internal/core/validation"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/audit"
	"bizzplus/internal/domain/party"
	"bizzplus/pkg/logger"
)

// SetPriceInput opens a new price for a SKU.
type SetPriceInput struct {
	SKUID    id.ID       `json:"skuId" validate:"required"`
	Price    types.Money `json:"price" validate:"dnonneg"`
	Currency string      `json:"currency" validate:"omitempty,len=3"`
	// EffectiveFrom defaults to now.
	EffectiveFrom time.Time `json:"effectiveFrom"`
}

// Service provides catalog queries and price maintenance.
type Service struct {
	repo      Repository
	parties   *party.Resolver
	audit     audit.Recorder
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a new catalog service.
func NewService(repo Repository, parties *party.Resolver, recorder audit.Recorder, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		parties:   parties,
		audit:     recorder,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListManufacturers lists manufacturers by name.
func (s *Service) ListManufacturers(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*party.Party], error) {
	return s.parties.List(ctx, party.KindManufacturer, filter)
}

// ListSKUs lists a manufacturer's SKUs with their current price.
func (s *Service) ListSKUs(ctx context.Context, manufacturerID id.ID, filter domain.ListFilter) (domain.ListResult[*SKUWithPrice], error) {
	if _, err := s.parties.Resolve(ctx, party.Manufacturer(manufacturerID)); err != nil {
		return domain.ListResult[*SKUWithPrice]{}, err
	}
	return s.repo.ListSKUs(ctx, manufacturerID, filter.Normalize())
}

// GetSKU returns one SKU.
func (s *Service) GetSKU(ctx context.Context, skuID id.ID) (*SKU, error) {
	return s.repo.GetSKU(ctx, skuID)
}

// ActivePrice returns the price in effect at the instant.
func (s *Service) ActivePrice(ctx context.Context, skuID id.ID, at time.Time) (*Price, error) {
	return s.repo.ActivePrice(ctx, skuID, at)
}

// PriceHistory returns the newest prices first.
func (s *Service) PriceHistory(ctx context.Context, skuID id.ID, limit int) ([]Price, error) {
	if _, err := s.repo.GetSKU(ctx, skuID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > domain.MaxLimit {
		limit = domain.DefaultLimit
	}
	return s.repo.PriceHistory(ctx, skuID, limit)
}

// SetPrice closes the SKU's open price at EffectiveFrom and opens the new one,
// in one transaction under the SKU row lock.
func (s *Service) SetPrice(ctx context.Context, in SetPriceInput) (*Price, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	in.Currency = strings.ToUpper(in.Currency)
	if in.EffectiveFrom.IsZero() {
		in.EffectiveFrom = s.now()
	}

	var created *Price
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sku, err := s.repo.GetSKUForUpdate(ctx, in.SKUID)
		if err != nil {
			return err
		}
		if err := authorizeManufacturer(ctx, sku.ManufacturerID); err != nil {
			return err
		}

		open, err := s.repo.OpenPrice(ctx, sku.ID)
		if err != nil {
			return fmt.Errorf("load open price: %w", err)
		}
		if open != nil {
			if in.EffectiveFrom.Before(open.EffectiveFrom) {
				return apperror.NewValidation("effectiveFrom precedes the current price").
					WithDetail("currentEffectiveFrom", open.EffectiveFrom)
			}
			if err := s.repo.ClosePrice(ctx, open.ID, in.EffectiveFrom); err != nil {
				return fmt.Errorf("close price: %w", err)
			}
		}

		created = &Price{
			ID:            id.New(),
			SKUID:         sku.ID,
			Price:         types.RoundMoney(in.Price),
			Currency:      in.Currency,
			EffectiveFrom: in.EffectiveFrom,
			CreatedAt:     s.now(),
		}
		if err := s.repo.InsertPrice(ctx, created); err != nil {
			return fmt.Errorf("insert price: %w", err)
		}

		changes := map[string]any{"price": created.Price.StringFixed(types.MoneyScale), "effectiveFrom": created.EffectiveFrom}
		if open != nil {
			changes["previousPrice"] = open.Price.StringFixed(types.MoneyScale)
		}
		entry, err := audit.NewEntry(ctx, audit.EntitySKU, sku.ID, audit.ActionPriceChange, changes)
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sku price set", "sku_id", created.SKUID, "price", created.Price.String())
	return created, nil
}

// authorizeManufacturer lets admins and the owning manufacturer through.
// Calls without a user (seed, internal jobs) are allowed.
func authorizeManufacturer(ctx context.Context, manufacturerID id.ID) error {
	user := appctx.GetUser(ctx)
	if user == nil || user.IsAdmin() {
		return nil
	}
	if user.Role == appctx.RoleManufacturer && user.PartyID == manufacturerID.String() {
		return nil
	}
	return apperror.NewForbidden("only the owning manufacturer can change its catalog")
}
