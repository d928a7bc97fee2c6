package order

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bizzplus/internal/core/apperror"
	appctx "bizzplus/internal/core/context"
	"bizzplus/internal/core/entity"
	"bizzplus/internal/core/id"
	"bizzplus/internal/core/numerator"
	"bizzplus/internal/core/tx"
	"bizzplus/internal/core/types"
	"bizzplus/internal/core/validation"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/audit"
	"bizzplus/internal/domain/catalog"
	"bizzplus/internal/domain/inventory"
	"bizzplus/internal/domain/party"
	"bizzplus/internal/domain/voucher"
	"bizzplus/pkg/logger"
)

// SKUSource looks up SKUs and their prices.
type SKUSource interface {
	GetSKU(ctx context.Context, skuID id.ID) (*catalog.SKU, error)
	ActivePrice(ctx context.Context, skuID id.ID, at time.Time) (*catalog.Price, error)
}

// StockReceiver books fulfilled quantities into the distributor's stock.
type StockReceiver interface {
	Receive(ctx context.Context, distributorID id.ID, lines []inventory.Line) error
}

// VoucherIssuer creates and queues the accounting vouchers of fulfilled orders.
type VoucherIssuer interface {
	CreateForOrder(ctx context.Context, snap voucher.OrderSnapshot) ([]id.ID, error)
	EnqueueAll(ctx context.Context, voucherIDs []id.ID)
	CreateExport(ctx context.Context, snap voucher.OrderSnapshot) ([]id.ID, error)
}

// CreateInput describes a new draft order.
type CreateInput struct {
	ManufacturerID id.ID       `json:"manufacturerId" validate:"required"`
	DistributorID  id.ID       `json:"distributorId" validate:"required"`
	CreatedBy      string      `json:"-"`
	Items          []ItemInput `json:"items" validate:"min=1,unique=SKUID,dive"`
}

// ItemInput is one requested line.
type ItemInput struct {
	SKUID id.ID          `json:"skuId" validate:"required"`
	Qty   types.Quantity `json:"qty" validate:"qty"`
}

// Service runs order creation and the order state machine.
type Service struct {
	repo      Repository
	skus      SKUSource
	parties   *party.Resolver
	stock     StockReceiver
	vouchers  VoucherIssuer
	numerator numerator.Generator
	audit     audit.Recorder
	txManager tx.Manager
	now       func() time.Time
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo      Repository
	SKUs      SKUSource
	Parties   *party.Resolver
	Stock     StockReceiver
	Vouchers  VoucherIssuer
	Numerator numerator.Generator
	Audit     audit.Recorder
	TxManager tx.Manager
}

// NewService creates a new order service.
func NewService(d Deps) *Service {
	return &Service{
		repo:      d.Repo,
		skus:      d.SKUs,
		parties:   d.Parties,
		stock:     d.Stock,
		vouchers:  d.Vouchers,
		numerator: d.Numerator,
		audit:     d.Audit,
		txManager: d.TxManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create prices the requested lines at the current active prices and stores
// a draft order. Price lookups, number, header, items and audit record share
// one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := authorize(ctx, party.Distributor(in.DistributorID)); err != nil {
		return nil, err
	}

	mfr, err := s.parties.Resolve(ctx, party.Manufacturer(in.ManufacturerID))
	if err != nil {
		return nil, err
	}
	dist, err := s.parties.Resolve(ctx, party.Distributor(in.DistributorID))
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := &Order{
		Base:           entity.NewBase(),
		ManufacturerID: mfr.ID,
		DistributorID:  dist.ID,
		Status:         StatusDraft,
		CreatedBy:      in.CreatedBy,
	}
	if o.CreatedBy == "" {
		o.CreatedBy = appctx.GetUserID(ctx)
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o.Items = nil
		for _, line := range in.Items {
			item, err := s.priceItem(ctx, mfr.ID, line, now)
			if err != nil {
				return err
			}
			o.AddLine(item)
		}

		number, err := s.numerator.GetNextNumber(ctx, numerator.OrderConfig(), numerator.DefaultOptions(), now)
		if err != nil {
			return fmt.Errorf("generate order number: %w", err)
		}
		o.Number = number

		if err := s.repo.Create(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		entry, err := audit.NewEntry(ctx, audit.EntityOrder, o.ID, audit.ActionCreate, map[string]any{
			"number":     o.Number,
			"items":      len(o.Items),
			"grandTotal": o.GrandTotal.StringFixed(types.MoneyScale),
		})
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	o.Manufacturer, o.Distributor = mfr, dist
	logger.Info(ctx, "order created",
		"id", o.ID,
		"number", o.Number,
		"grand_total", o.GrandTotal.String())
	return o, nil
}

// priceItem resolves a SKU of the manufacturer and its price at the instant.
// Lookups that fail on client input are reported as 400.
func (s *Service) priceItem(ctx context.Context, manufacturerID id.ID, in ItemInput, at time.Time) (Item, error) {
	sku, err := s.skus.GetSKU(ctx, in.SKUID)
	if err != nil {
		return Item{}, badRequest(err)
	}
	if sku.ManufacturerID != manufacturerID {
		return Item{}, apperror.NewNotFound("sku", in.SKUID).
			WithDetail("manufacturerId", manufacturerID).
			WithStatus(http.StatusBadRequest)
	}
	price, err := s.skus.ActivePrice(ctx, sku.ID, at)
	if err != nil {
		return Item{}, badRequest(err)
	}

	return Item{
		ID:         id.New(),
		SKUID:      sku.ID,
		Qty:        in.Qty,
		Rate:       price.Price,
		GSTPercent: sku.GSTPercent,
		SKUCode:    sku.Code,
		SKUName:    sku.Name,
		HSN:        sku.HSN,
		UOM:        sku.UOM,
	}, nil
}

func badRequest(err error) error {
	if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeNotFound {
		return appErr.WithStatus(http.StatusBadRequest)
	}
	return err
}

// Get returns the order with items and parties.
func (s *Service) Get(ctx context.Context, orderID id.ID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(ctx, o) {
		return nil, apperror.NewNotFound("order", orderID)
	}
	if o.Items, err = s.repo.GetItems(ctx, o.ID); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	if o.Manufacturer, o.Distributor, err = s.resolveParties(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// List returns headers newest first. Non-admin callers only see their own orders.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error) {
	filter.ListFilter = filter.ListFilter.Normalize()
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return domain.ListResult[*Order]{}, apperror.NewValidation("unknown order status").
				WithDetail("status", st)
		}
	}

	if user := appctx.GetUser(ctx); user != nil && !user.IsAdmin() {
		switch user.PartyKind {
		case string(party.KindManufacturer):
			pid, err := id.Parse(user.PartyID)
			if err != nil {
				return domain.ListResult[*Order]{}, apperror.NewForbidden("user is not linked to a party")
			}
			filter.ManufacturerID = pid
		case string(party.KindDistributor):
			pid, err := id.Parse(user.PartyID)
			if err != nil {
				return domain.ListResult[*Order]{}, apperror.NewForbidden("user is not linked to a party")
			}
			filter.DistributorID = pid
		default:
			return domain.ListResult[*Order]{}, apperror.NewForbidden("user is not linked to a party")
		}
	}
	return s.repo.List(ctx, filter)
}

// History returns the order's audit trail, newest first.
func (s *Service) History(ctx context.Context, orderID id.ID, limit int) ([]audit.Entry, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(ctx, o) {
		return nil, apperror.NewNotFound("order", orderID)
	}
	if limit <= 0 || limit > domain.MaxLimit {
		limit = domain.DefaultLimit
	}
	return s.audit.History(ctx, audit.EntityOrder, o.ID, limit)
}

// Place submits a draft order to the manufacturer.
func (s *Service) Place(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.transition(ctx, orderID, StatusPlaced, party.KindDistributor, func(ctx context.Context, o *Order) error {
		now := s.now()
		o.PlacedAt = &now
		return nil
	})
}

// Accept confirms a placed order.
func (s *Service) Accept(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.transition(ctx, orderID, StatusAccepted, party.KindManufacturer, nil)
}

// Reject declines a placed order.
func (s *Service) Reject(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.transition(ctx, orderID, StatusRejected, party.KindManufacturer, nil)
}

// Fulfill ships an accepted order. The distributor's stock and both vouchers
// are written in the transaction of the status change; the vouchers are
// queued for export after it commits.
func (s *Service) Fulfill(ctx context.Context, orderID id.ID) (*Order, error) {
	var voucherIDs []id.ID
	o, err := s.transition(ctx, orderID, StatusFulfilled, party.KindManufacturer, func(ctx context.Context, o *Order) error {
		now := s.now()
		o.FulfilledAt = &now

		items, err := s.repo.GetItems(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("get items: %w", err)
		}
		o.Items = items

		lines := make([]inventory.Line, 0, len(items))
		for _, it := range items {
			lines = append(lines, inventory.Line{SKUID: it.SKUID, Qty: it.Qty})
		}
		if err := s.stock.Receive(ctx, o.DistributorID, lines); err != nil {
			return fmt.Errorf("receive stock: %w", err)
		}

		snap, err := s.snapshot(ctx, o)
		if err != nil {
			return err
		}
		voucherIDs, err = s.vouchers.CreateForOrder(ctx, snap)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.vouchers.EnqueueAll(ctx, voucherIDs)
	return o, nil
}

// ExportVouchers creates and queues vouchers for a fulfilled order that has
// none. The order row stays locked until the vouchers are written, so two
// concurrent exports of one order cannot both pass the existence check.
func (s *Service) ExportVouchers(ctx context.Context, orderID id.ID) ([]id.ID, error) {
	var ids []id.ID
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, party.Manufacturer(o.ManufacturerID)); err != nil {
			return err
		}
		if o.Status != StatusFulfilled {
			return apperror.NewConflict("only fulfilled orders can be exported").
				WithDetail("status", o.Status)
		}
		if o.Items, err = s.repo.GetItems(ctx, o.ID); err != nil {
			return fmt.Errorf("get items: %w", err)
		}

		snap, err := s.snapshot(ctx, o)
		if err != nil {
			return err
		}
		ids, err = s.vouchers.CreateExport(ctx, snap)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.vouchers.EnqueueAll(ctx, ids)
	logger.Info(ctx, "order vouchers queued", "order_id", orderID, "count", len(ids))
	return ids, nil
}

// transition locks the order, checks the actor and the state table, applies
// side effects and writes the new status with a version check and an audit entry.
func (s *Service) transition(
	ctx context.Context,
	orderID id.ID,
	to Status,
	actor party.Kind,
	apply func(ctx context.Context, o *Order) error,
) (*Order, error) {
	var result *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		mfr, dist := o.Refs()
		owner := mfr
		if actor == party.KindDistributor {
			owner = dist
		}
		if err := authorize(ctx, owner); err != nil {
			return err
		}

		from := o.Status
		if !from.CanTransitionTo(to) {
			return apperror.NewInvalidStateTransition("order", o.ID, string(from), string(to))
		}

		o.Status = to
		o.Touch()
		if apply != nil {
			if err := apply(ctx, o); err != nil {
				return err
			}
		}

		if err := s.repo.UpdateStatus(ctx, o); err != nil {
			return err
		}

		entry, err := audit.NewEntry(ctx, audit.EntityOrder, o.ID, actionFor(to),
			audit.Transition(string(from), string(to)))
		if err != nil {
			return err
		}
		if err := s.audit.Record(ctx, entry); err != nil {
			return err
		}

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order status changed",
		"id", result.ID,
		"number", result.Number,
		"status", result.Status)
	return result, nil
}

func (s *Service) resolveParties(ctx context.Context, o *Order) (*party.Party, *party.Party, error) {
	mfrRef, distRef := o.Refs()
	mfr, err := s.parties.Resolve(ctx, mfrRef)
	if err != nil {
		return nil, nil, err
	}
	dist, err := s.parties.Resolve(ctx, distRef)
	if err != nil {
		return nil, nil, err
	}
	return mfr, dist, nil
}

// snapshot assembles the voucher input of a fulfilled order with loaded items.
func (s *Service) snapshot(ctx context.Context, o *Order) (voucher.OrderSnapshot, error) {
	mfr, dist, err := s.resolveParties(ctx, o)
	if err != nil {
		return voucher.OrderSnapshot{}, err
	}

	fulfilledAt := o.UpdatedAt
	if o.FulfilledAt != nil {
		fulfilledAt = *o.FulfilledAt
	}

	snap := voucher.OrderSnapshot{
		OrderID:      o.ID,
		OrderNumber:  o.Number,
		FulfilledAt:  fulfilledAt,
		Manufacturer: *mfr,
		Distributor:  *dist,
		Lines:        make([]voucher.SnapshotLine, 0, len(o.Items)),
		Subtotal:     o.Subtotal,
		GSTTotal:     o.GSTTotal,
		GrandTotal:   o.GrandTotal,
	}
	for _, it := range o.Items {
		snap.Lines = append(snap.Lines, voucher.SnapshotLine{
			Name:       it.SKUName,
			HSN:        it.HSN,
			UOM:        it.UOM,
			Qty:        it.Qty,
			Rate:       it.Rate,
			Amount:     it.LineTotal,
			GSTPercent: it.GSTPercent,
			GSTAmount:  it.LineGST,
		})
	}
	return snap, nil
}

func actionFor(to Status) audit.Action {
	switch to {
	case StatusPlaced:
		return audit.ActionPlace
	case StatusAccepted:
		return audit.ActionAccept
	case StatusRejected:
		return audit.ActionReject
	case StatusFulfilled:
		return audit.ActionFulfill
	}
	return audit.Action(to)
}

// authorize lets admins, user-less system calls and the owning party through.
func authorize(ctx context.Context, owner party.Ref) error {
	user := appctx.GetUser(ctx)
	if user == nil || user.IsAdmin() {
		return nil
	}
	if user.PartyKind == string(owner.Kind) && user.PartyID == owner.ID.String() {
		return nil
	}
	return apperror.NewForbidden(fmt.Sprintf("only the order's %s can do this", owner.Kind))
}

func visibleTo(ctx context.Context, o *Order) bool {
	mfr, dist := o.Refs()
	return authorize(ctx, mfr) == nil || authorize(ctx, dist) == nil
}
