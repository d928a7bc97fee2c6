package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bizzplus/internal/core/apperror"
	appctx "bizzplus/internal/core/context"
	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/audit"
	"bizzplus/internal/domain/order"
	"bizzplus/internal/infrastructure/http/v1/dto"
)

// OrderService is the order use-case surface used by OrderHandler.
type OrderService interface {
	Create(ctx context.Context, in order.CreateInput) (*order.Order, error)
	Get(ctx context.Context, orderID id.ID) (*order.Order, error)
	List(ctx context.Context, filter order.ListFilter) (domain.ListResult[*order.Order], error)
	History(ctx context.Context, orderID id.ID, limit int) ([]audit.Entry, error)
	Place(ctx context.Context, orderID id.ID) (*order.Order, error)
	Accept(ctx context.Context, orderID id.ID) (*order.Order, error)
	Reject(ctx context.Context, orderID id.ID) (*order.Order, error)
	Fulfill(ctx context.Context, orderID id.ID) (*order.Order, error)
	ExportVouchers(ctx context.Context, orderID id.ID) ([]id.ID, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	*BaseHandler
	service OrderService
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(base *BaseHandler, service OrderService) *OrderHandler {
	return &OrderHandler{BaseHandler: base, service: service}
}

// Create handles POST /orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user := appctx.GetUser(c.Request.Context())
	distributorID := req.DistributorID
	if user != nil && !user.IsAdmin() {
		pid, err := id.Parse(user.PartyID)
		if err != nil {
			h.Error(c, apperror.NewForbidden("user is not linked to a party"))
			return
		}
		distributorID = pid
	}

	o, err := h.service.Create(c.Request.Context(), req.ToInput(distributorID, appctx.GetUserID(c.Request.Context())))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, o)
}

// Get handles GET /orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	o, err := h.service.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// List handles GET /m/orders.
func (h *OrderHandler) List(c *gin.Context) {
	var q dto.OrderListQuery
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

// History handles GET /orders/:id/history.
func (h *OrderHandler) History(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.service.History(c.Request.Context(), orderID, h.ParseIntQuery(c, "limit", domain.DefaultLimit))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": entries})
}

// Place handles POST /orders/:id/place.
func (h *OrderHandler) Place(c *gin.Context) { h.transition(c, h.service.Place) }

// Accept handles POST /m/orders/:id/accept.
func (h *OrderHandler) Accept(c *gin.Context) { h.transition(c, h.service.Accept) }

// Reject handles POST /m/orders/:id/reject.
func (h *OrderHandler) Reject(c *gin.Context) { h.transition(c, h.service.Reject) }

// Fulfill handles POST /m/orders/:id/fulfill.
func (h *OrderHandler) Fulfill(c *gin.Context) { h.transition(c, h.service.Fulfill) }

func (h *OrderHandler) transition(c *gin.Context, fn func(context.Context, id.ID) (*order.Order, error)) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	o, err := fn(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// ExportVouchers handles POST /orders/:id/vouchers.
func (h *OrderHandler) ExportVouchers(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	ids, err := h.service.ExportVouchers(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.NewIDsResponse(ids))
}
