package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/dashboard"
	"bizzplus/internal/domain/inventory"
	"bizzplus/internal/domain/party"
	"bizzplus/internal/infrastructure/http/v1/dto"
)

// DashboardService builds the party home screens.
type DashboardService interface {
	Manufacturer(ctx context.Context, manufacturerID id.ID) (*dashboard.ManufacturerSummary, error)
	Distributor(ctx context.Context, distributorID id.ID) (*dashboard.DistributorSummary, error)
}

// InventoryService lists distributor stock.
type InventoryService interface {
	List(ctx context.Context, distributorID id.ID, filter domain.ListFilter) (domain.ListResult[*inventory.BalanceView], error)
}

// PartyHandler handles the manufacturer (/m) and distributor (/d) screens.
type PartyHandler struct {
	*BaseHandler
	dashboards DashboardService
	inventory  InventoryService
}

// NewPartyHandler creates a new party handler.
func NewPartyHandler(base *BaseHandler, dashboards DashboardService, inventory InventoryService) *PartyHandler {
	return &PartyHandler{BaseHandler: base, dashboards: dashboards, inventory: inventory}
}

// ManufacturerDashboard handles GET /m/dashboard.
func (h *PartyHandler) ManufacturerDashboard(c *gin.Context) {
	manufacturerID, ok := h.PartyID(c, party.KindManufacturer, "manufacturerId")
	if !ok {
		return
	}
	summary, err := h.dashboards.Manufacturer(c.Request.Context(), manufacturerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}

// DistributorDashboard handles GET /d/dashboard.
func (h *PartyHandler) DistributorDashboard(c *gin.Context) {
	distributorID, ok := h.PartyID(c, party.KindDistributor, "distributorId")
	if !ok {
		return
	}
	summary, err := h.dashboards.Distributor(c.Request.Context(), distributorID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}

// Inventory handles GET /d/inventory.
func (h *PartyHandler) Inventory(c *gin.Context) {
	distributorID, ok := h.PartyID(c, party.KindDistributor, "distributorId")
	if !ok {
		return
	}
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.inventory.List(c.Request.Context(), distributorID, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}
