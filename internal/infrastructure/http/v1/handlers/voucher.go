package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/voucher"
	"bizzplus/internal/infrastructure/http/v1/dto"
)

// VoucherService is the voucher query surface.
type VoucherService interface {
	Get(ctx context.Context, voucherID id.ID) (*voucher.Voucher, error)
	List(ctx context.Context, filter voucher.ListFilter) (domain.ListResult[*voucher.Voucher], error)
}

// VoucherHandler handles voucher endpoints.
type VoucherHandler struct {
	*BaseHandler
	service VoucherService
}

// NewVoucherHandler creates a new voucher handler.
func NewVoucherHandler(base *BaseHandler, service VoucherService) *VoucherHandler {
	return &VoucherHandler{BaseHandler: base, service: service}
}

// List handles GET /vouchers.
func (h *VoucherHandler) List(c *gin.Context) {
	var q dto.VoucherListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Get handles GET /vouchers/:id.
func (h *VoucherHandler) Get(c *gin.Context) {
	voucherID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	v, err := h.service.Get(c.Request.Context(), voucherID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, v)
}
