package dto

import (
	"strings"

	"bizzplus/internal/core/id"
	"bizzplus/internal/core/types"
	"bizzplus/internal/domain/order"
)

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	ManufacturerID id.ID `json:"manufacturerId" binding:"required"`
	// DistributorID is taken from the token for distributor users.
	DistributorID id.ID                `json:"distributorId"`
	Items         []CreateOrderItemReq `json:"items" binding:"required,min=1,dive"`
}

// CreateOrderItemReq is one requested line.
type CreateOrderItemReq struct {
	SKUID id.ID          `json:"skuId" binding:"required"`
	Qty   types.Quantity `json:"qty" binding:"qty"`
}

// ToInput converts the request into the service input.
func (r CreateOrderRequest) ToInput(distributorID id.ID, createdBy string) order.CreateInput {
	items := make([]order.ItemInput, len(r.Items))
	for i, it := range r.Items {
		items[i] = order.ItemInput{SKUID: it.SKUID, Qty: it.Qty}
	}
	return order.CreateInput{
		ManufacturerID: r.ManufacturerID,
		DistributorID:  distributorID,
		CreatedBy:      createdBy,
		Items:          items,
	}
}

// OrderListQuery filters order listings.
type OrderListQuery struct {
	ListQuery
	// Status accepts a comma-separated list.
	Status string `form:"status"`
}

// ToFilter converts the query into an order filter.
func (q OrderListQuery) ToFilter() order.ListFilter {
	f := order.ListFilter{ListFilter: q.ListQuery.ToFilter()}
	for _, s := range strings.Split(q.Status, ",") {
		if s = strings.TrimSpace(s); s != "" {
			f.Statuses = append(f.Statuses, order.Status(s))
		}
	}
	return f
}
