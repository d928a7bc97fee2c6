package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"bizzplus/internal/core/apperror"
	appctx "bizzplus/internal/core/context"
	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/catalog"
	"bizzplus/internal/domain/party"
	"bizzplus/internal/infrastructure/http/v1/dto"
)

// CatalogService is the catalog surface used by CatalogHandler.
type CatalogService interface {
	ListManufacturers(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*party.Party], error)
	ListSKUs(ctx context.Context, manufacturerID id.ID, filter domain.ListFilter) (domain.ListResult[*catalog.SKUWithPrice], error)
	PriceHistory(ctx context.Context, skuID id.ID, limit int) ([]catalog.Price, error)
	SetPrice(ctx context.Context, in catalog.SetPriceInput) (*catalog.Price, error)
	ActivePrice(ctx context.Context, skuID id.ID, at time.Time) (*catalog.Price, error)
	UpsertSKU(ctx context.Context, in catalog.UpsertSKUInput) (*catalog.SKU, bool, error)
	ApplyDelta(ctx context.Context, in catalog.DeltaInput) ([]catalog.DeltaResult, error)
}

// CatalogHandler handles manufacturer, SKU and price endpoints.
type CatalogHandler struct {
	*BaseHandler
	service CatalogService
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(base *BaseHandler, service CatalogService) *CatalogHandler {
	return &CatalogHandler{BaseHandler: base, service: service}
}

// ListManufacturers handles GET /manufacturers.
func (h *CatalogHandler) ListManufacturers(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.service.ListManufacturers(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// ListSKUs handles GET /manufacturers/:id/skus.
func (h *CatalogHandler) ListSKUs(c *gin.Context) {
	manufacturerID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.service.ListSKUs(c.Request.Context(), manufacturerID, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// SetPrice handles PUT /skus/:id/price.
func (h *CatalogHandler) SetPrice(c *gin.Context) {
	skuID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.SetPriceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	price, err := h.service.SetPrice(c.Request.Context(), req.ToInput(skuID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, price)
}

// PriceHistory handles GET /skus/:id/prices.
func (h *CatalogHandler) PriceHistory(c *gin.Context) {
	skuID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	prices, err := h.service.PriceHistory(c.Request.Context(), skuID, h.ParseIntQuery(c, "limit", domain.DefaultLimit))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": prices})
}

// ActivePrice handles GET /skus/:id/price.
func (h *CatalogHandler) ActivePrice(c *gin.Context) {
	skuID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	at := time.Now()
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("at must be an RFC 3339 timestamp").WithDetail("at", raw))
			return
		}
		at = parsed
	}
	price, err := h.service.ActivePrice(c.Request.Context(), skuID, at)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, price)
}

// IngestSKU handles POST /ingest/sku. Manufacturers may omit manufacturerId.
func (h *CatalogHandler) IngestSKU(c *gin.Context) {
	var req catalog.UpsertSKUInput
	if !h.BindJSON(c, &req) {
		return
	}
	if !h.defaultManufacturer(c, &req.ManufacturerID) {
		return
	}
	sku, created, err := h.service.UpsertSKU(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	if created {
		h.Created(c, dto.IngestSKUResponse{SKU: sku, Created: true})
		return
	}
	h.OK(c, dto.IngestSKUResponse{SKU: sku})
}

// IngestDelta handles POST /ingest/delta.
func (h *CatalogHandler) IngestDelta(c *gin.Context) {
	var req catalog.DeltaInput
	if !h.BindJSON(c, &req) {
		return
	}
	if !h.defaultManufacturer(c, &req.ManufacturerID) {
		return
	}
	results, err := h.service.ApplyDelta(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewDeltaResponse(results))
}

// defaultManufacturer fills an empty manufacturer id from the caller's token.
func (h *CatalogHandler) defaultManufacturer(c *gin.Context, manufacturerID *id.ID) bool {
	if !id.IsNil(*manufacturerID) {
		return true
	}
	user := appctx.GetUser(c.Request.Context())
	if user == nil || user.PartyKind != string(party.KindManufacturer) {
		h.Error(c, apperror.NewValidation("manufacturerId is required").WithDetail("manufacturerId", "is required"))
		return false
	}
	pid, err := id.Parse(user.PartyID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid party id in token"))
		return false
	}
	*manufacturerID = pid
	return true
}
