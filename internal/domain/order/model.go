// Package order implements distributor purchase orders and their lifecycle.
package order

import (
	"time"

	"bizzplus/internal/core/entity"
	"bizzplus/internal/core/id"
	"bizzplus/internal/core/types"
	"bizzplus/internal/domain/party"
)

// Order is a distributor's purchase order to one manufacturer.
type Order struct {
	entity.Base

	Number         string      `db:"number" json:"number"`
	ManufacturerID id.ID       `db:"manufacturer_id" json:"manufacturerId"`
	DistributorID  id.ID       `db:"distributor_id" json:"distributorId"`
	Status         Status      `db:"status" json:"status"`
	Subtotal       types.Money `db:"subtotal" json:"subtotal"`
	GSTTotal       types.Money `db:"gst_total" json:"gstTotal"`
	GrandTotal     types.Money `db:"grand_total" json:"grandTotal"`
	PlacedAt       *time.Time  `db:"placed_at" json:"placedAt,omitempty"`
	FulfilledAt    *time.Time  `db:"fulfilled_at" json:"fulfilledAt,omitempty"`
	CreatedBy      string      `db:"created_by" json:"createdBy,omitempty"`

	Items        []Item       `db:"-" json:"items,omitempty"`
	Manufacturer *party.Party `db:"-" json:"manufacturer,omitempty"`
	Distributor  *party.Party `db:"-" json:"distributor,omitempty"`
}

// Item is one order line. The SKU fields are read back from the catalog.
type Item struct {
	ID             id.ID          `db:"id" json:"id"`
	OrderID        id.ID          `db:"order_id" json:"orderId"`
	SKUID          id.ID          `db:"sku_id" json:"skuId"`
	LineNo         int            `db:"line_no" json:"lineNo"`
	Qty            types.Quantity `db:"qty" json:"qty"`
	Rate           types.Money    `db:"rate" json:"rate"`
	GSTPercent     types.Percent  `db:"gst_percent" json:"gstPercent"`
	LineTotal      types.Money    `db:"line_total" json:"lineTotal"`
	LineGST        types.Money    `db:"line_gst" json:"lineGst"`
	LineGrandTotal types.Money    `db:"line_grand_total" json:"lineGrandTotal"`

	SKUCode string `db:"sku_code" json:"skuCode"`
	SKUName string `db:"sku_name" json:"skuName"`
	HSN     string `db:"hsn" json:"hsn,omitempty"`
	UOM     string `db:"uom" json:"uom"`
}

// Refs returns the order's manufacturer and distributor references.
func (o *Order) Refs() (manufacturer, distributor party.Ref) {
	return party.Manufacturer(o.ManufacturerID), party.Distributor(o.DistributorID)
}
