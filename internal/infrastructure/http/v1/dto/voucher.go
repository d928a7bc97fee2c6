package dto

import "bizzplus/internal/domain/voucher"

// VoucherListQuery filters voucher listings.
type VoucherListQuery struct {
	ListQuery
	Status      string `form:"status" binding:"omitempty,oneof=queued sent error"`
	Type        string `form:"type" binding:"omitempty,oneof=sales purchase receipt payment"`
	OrderNumber string `form:"orderNumber"`
}

// ToFilter converts the query into a voucher filter. Party scoping is applied
// by the service.
func (q VoucherListQuery) ToFilter() voucher.ListFilter {
	return voucher.ListFilter{
		ListFilter:  q.ListQuery.ToFilter(),
		Status:      voucher.Status(q.Status),
		Type:        voucher.Type(q.Type),
		OrderNumber: q.OrderNumber,
	}
}
