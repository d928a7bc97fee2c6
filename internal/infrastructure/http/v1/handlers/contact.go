package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/core/id"
	"bizzplus/internal/domain/contact"
	"bizzplus/internal/domain/party"
)

// ContactService is the CRM contact surface used by ContactHandler.
type ContactService interface {
	Sync(ctx context.Context, in contact.SyncInput) (*contact.Contact, bool, error)
	List(ctx context.Context, ref party.Ref) ([]*contact.Contact, error)
}

// ContactHandler handles CRM contact endpoints.
type ContactHandler struct {
	*BaseHandler
	service ContactService
}

// NewContactHandler creates a new contact handler.
func NewContactHandler(base *BaseHandler, service ContactService) *ContactHandler {
	return &ContactHandler{BaseHandler: base, service: service}
}

// Updated handles POST /crm/contacts/updated.
func (h *ContactHandler) Updated(c *gin.Context) {
	var req contact.SyncInput
	if !h.BindJSON(c, &req) {
		return
	}
	synced, created, err := h.service.Sync(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	if created {
		h.Created(c, synced)
		return
	}
	h.OK(c, synced)
}

// List handles GET /crm/contacts?partyType=&partyId=.
func (h *ContactHandler) List(c *gin.Context) {
	kind, err := party.ParseKind(c.Query("partyType"))
	if err != nil {
		h.Error(c, err)
		return
	}
	pid, err := id.Parse(c.Query("partyId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid party id").WithDetail("partyId", c.Query("partyId")))
		return
	}
	contacts, err := h.service.List(c.Request.Context(), party.Ref{Kind: kind, ID: pid})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": contacts})
}
