// Package voucher builds accounting vouchers from fulfilled orders and drives
// their export to the external ledger.
package voucher

import (
	"encoding/json"
	"time"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain/party"
)

// Type is the accounting document type.
type Type string

const (
	TypeSales    Type = "sales"
	TypePurchase Type = "purchase"
	TypeReceipt  Type = "receipt"
	TypePayment  Type = "payment"
)

// Status is the export state. Only the export worker moves a voucher out of queued.
type Status string

const (
	StatusQueued Status = "queued"
	StatusSent   Status = "sent"
	StatusError  Status = "error"
)

// Source tells generated vouchers from imported ones.
type Source string

const (
	SourceSystem   Source = "system"
	SourceExternal Source = "external"
)

// Voucher is a persisted accounting document.
type Voucher struct {
	ID           id.ID           `db:"id" json:"id"`
	Type         Type            `db:"type" json:"type"`
	PartyType    party.Kind      `db:"party_type" json:"partyType"`
	PartyID      id.ID           `db:"party_id" json:"partyId"`
	Source       Source          `db:"source" json:"source"`
	OrderID      *id.ID          `db:"order_id" json:"orderId,omitempty"`
	OrderNumber  string          `db:"order_number" json:"orderNumber,omitempty"`
	Payload      json.RawMessage `db:"payload_json" json:"payload"`
	Status       Status          `db:"status" json:"status"`
	ExternalID   *string         `db:"external_id" json:"externalId,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"errorMessage,omitempty"`
	Attempts     int             `db:"attempts" json:"attempts"`
	SentAt       *time.Time      `db:"sent_at" json:"sentAt,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// Party returns the counterparty reference.
func (v *Voucher) Party() party.Ref {
	return party.Ref{Kind: v.PartyType, ID: v.PartyID}
}

// Payload is the document sent to the ledger.
type Payload struct {
	Type        Type          `json:"type"`
	OrderNumber string        `json:"orderNumber"`
	Date        string        `json:"date"`
	Party       PayloadParty  `json:"party"`
	Items       []PayloadItem `json:"items"`
	Totals      PayloadTotals `json:"totals"`
}

type PayloadParty struct {
	Name  string `json:"name"`
	GSTIN string `json:"gstin"`
}

type PayloadItem struct {
	Name       string `json:"name"`
	HSN        string `json:"hsn"`
	Qty        string `json:"qty"`
	UOM        string `json:"uom"`
	Rate       string `json:"rate"`
	Amount     string `json:"amount"`
	GSTPercent string `json:"gstPercent"`
	GSTAmount  string `json:"gstAmount"`
}

type PayloadTotals struct {
	Subtotal   string `json:"subtotal"`
	GSTTotal   string `json:"gstTotal"`
	GrandTotal string `json:"grandTotal"`
}
