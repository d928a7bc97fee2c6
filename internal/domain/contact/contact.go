// Package contact keeps the CRM contacts of manufacturers and distributors.
// A party has any number of contacts, at most one of them primary.
package contact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bizzplus/internal/core/id"
	"bizzplus/internal/core/tx"
	"bizzplus/internal/core/validation"
	"bizzplus/internal/domain/audit"
	"bizzplus/internal/domain/party"
	"bizzplus/pkg/logger"
)

// Contact is one email/phone pair attached to a party.
type Contact struct {
	ID               id.ID      `db:"id" json:"id"`
	PartyKind        party.Kind `db:"party_type" json:"partyType"`
	PartyID          id.ID      `db:"party_id" json:"partyId"`
	Email            string     `db:"email" json:"email"`
	Phone            string     `db:"phone" json:"phone"`
	IsPrimary        bool       `db:"is_primary" json:"isPrimary"`
	UpdatedFromCRMAt *time.Time `db:"updated_from_crm_at" json:"updatedFromCrmAt,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// Party returns the owning party reference.
func (c *Contact) Party() party.Ref {
	return party.Ref{Kind: c.PartyKind, ID: c.PartyID}
}

// SyncInput is a contact change pushed by the CRM.
type SyncInput struct {
	EntityType string `json:"entityType" validate:"required,oneof=manufacturer distributor"`
	EntityID   id.ID  `json:"entityId" validate:"required"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Phone      string `json:"phone" validate:"required,max=32"`
	IsPrimary  bool   `json:"isPrimary"`
}

// Repository defines contact persistence.
type Repository interface {
	// Upsert matches on party and email. c is refreshed from the stored row.
	Upsert(ctx context.Context, c *Contact) (created bool, err error)
	// DemotePrimaries clears the primary flag of the party's contacts other
	// than the one with email.
	DemotePrimaries(ctx context.Context, ref party.Ref, email string) error
	List(ctx context.Context, ref party.Ref) ([]*Contact, error)
}

// Service applies CRM contact updates.
type Service struct {
	repo      Repository
	parties   *party.Resolver
	audit     audit.Recorder
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a contact service.
func NewService(repo Repository, parties *party.Resolver, recorder audit.Recorder, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		parties:   parties,
		audit:     recorder,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Sync creates or updates the party's contact with the email. Making it
// primary demotes the party's previous primary in the same transaction.
func (s *Service) Sync(ctx context.Context, in SyncInput) (*Contact, bool, error) {
	if err := validation.Struct(in); err != nil {
		return nil, false, err
	}
	ref := party.Ref{Kind: party.Kind(in.EntityType), ID: in.EntityID}
	if _, err := s.parties.Resolve(ctx, ref); err != nil {
		return nil, false, err
	}

	now := s.now()
	c := &Contact{
		ID:               id.New(),
		PartyKind:        ref.Kind,
		PartyID:          ref.ID,
		Email:            strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:            strings.TrimSpace(in.Phone),
		IsPrimary:        in.IsPrimary,
		UpdatedFromCRMAt: &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var created bool
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if c.IsPrimary {
			if err := s.repo.DemotePrimaries(ctx, ref, c.Email); err != nil {
				return fmt.Errorf("demote primaries: %w", err)
			}
		}
		var err error
		if created, err = s.repo.Upsert(ctx, c); err != nil {
			return fmt.Errorf("upsert contact: %w", err)
		}

		action := audit.ActionUpdate
		if created {
			action = audit.ActionCreate
		}
		entry, err := audit.NewEntry(ctx, audit.EntityContact, c.ID, action, map[string]any{
			"party": ref.String(), "email": c.Email, "phone": c.Phone, "isPrimary": c.IsPrimary,
		})
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, entry)
	})
	if err != nil {
		return nil, false, err
	}

	logger.Info(ctx, "crm contact synced", "party", ref.String(), "contact_id", c.ID, "created", created, "primary", c.IsPrimary)
	return c, created, nil
}

// List returns the party's contacts, primary first.
func (s *Service) List(ctx context.Context, ref party.Ref) ([]*Contact, error) {
	if _, err := s.parties.Resolve(ctx, ref); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ref)
}
