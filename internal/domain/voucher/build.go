package voucher

import (
	"encoding/json"
	"fmt"
	"time"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/core/id"
	"bizzplus/internal/core/types"
	"bizzplus/internal/domain/party"
)

// OrderSnapshot is the fulfilled order data a voucher is built from.
type OrderSnapshot struct {
	OrderID      id.ID
	OrderNumber  string
	FulfilledAt  time.Time
	Manufacturer party.Party
	Distributor  party.Party
	Lines        []SnapshotLine
	Subtotal     types.Money
	GSTTotal     types.Money
	GrandTotal   types.Money
}

// SnapshotLine is one order line with the SKU data it was sold under.
type SnapshotLine struct {
	Name       string
	HSN        string
	UOM        string
	Qty        types.Quantity
	Rate       types.Money
	Amount     types.Money
	GSTPercent types.Percent
	GSTAmount  types.Money
}

// BuildForOrder produces the sales voucher (party: distributor) and the
// purchase voucher (party: manufacturer). Both are system vouchers in queued.
func BuildForOrder(snap OrderSnapshot) (sales, purchase *Voucher, err error) {
	if snap.OrderNumber == "" || len(snap.Lines) == 0 {
		return nil, nil, apperror.NewValidation("order snapshot is incomplete").
			WithDetail("orderNumber", snap.OrderNumber)
	}

	sales, err = build(snap, TypeSales, snap.Distributor)
	if err != nil {
		return nil, nil, err
	}
	purchase, err = build(snap, TypePurchase, snap.Manufacturer)
	if err != nil {
		return nil, nil, err
	}
	return sales, purchase, nil
}

func build(snap OrderSnapshot, t Type, counterparty party.Party) (*Voucher, error) {
	payload := Payload{
		Type:        t,
		OrderNumber: snap.OrderNumber,
		Date:        snap.FulfilledAt.UTC().Format(time.DateOnly),
		Party:       PayloadParty{Name: counterparty.Name, GSTIN: counterparty.GSTIN},
		Items:       make([]PayloadItem, 0, len(snap.Lines)),
		Totals: PayloadTotals{
			Subtotal:   money(snap.Subtotal),
			GSTTotal:   money(snap.GSTTotal),
			GrandTotal: money(snap.GrandTotal),
		},
	}
	for _, l := range snap.Lines {
		payload.Items = append(payload.Items, PayloadItem{
			Name:       l.Name,
			HSN:        l.HSN,
			Qty:        l.Qty.String(),
			UOM:        l.UOM,
			Rate:       money(l.Rate),
			Amount:     money(l.Amount),
			GSTPercent: l.GSTPercent.String(),
			GSTAmount:  money(l.GSTAmount),
		})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}

	now := time.Now().UTC()
	orderID := snap.OrderID
	return &Voucher{
		ID:          id.New(),
		Type:        t,
		PartyType:   counterparty.Kind,
		PartyID:     counterparty.ID,
		Source:      SourceSystem,
		OrderID:     &orderID,
		OrderNumber: snap.OrderNumber,
		Payload:     raw,
		Status:      StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func money(m types.Money) string {
	return m.StringFixed(types.MoneyScale)
}
