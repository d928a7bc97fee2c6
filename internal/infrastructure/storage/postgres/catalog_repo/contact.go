package catalog_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"bizzplus/internal/domain/contact"
	"bizzplus/internal/domain/party"
	"bizzplus/internal/infrastructure/storage/postgres"
)

const contactCols = "id, party_type, party_id, email, phone, is_primary, updated_from_crm_at, created_at, updated_at"

// ContactRepo implements contact.Repository.
type ContactRepo struct {
	txManager *postgres.TxManager
}

var _ contact.Repository = (*ContactRepo)(nil)

// NewContactRepo creates a new contact repository.
func NewContactRepo(txManager *postgres.TxManager) *ContactRepo {
	return &ContactRepo{txManager: txManager}
}

func (r *ContactRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

type upsertedContact struct {
	contact.Contact
	Created bool `db:"created"`
}

func upsertContactQuery(c *contact.Contact) sq.InsertBuilder {
	return postgres.Builder().Insert("crm_contacts").
		Columns("id", "party_type", "party_id", "email", "phone", "is_primary", "updated_from_crm_at", "created_at", "updated_at").
		Values(c.ID, c.PartyKind, c.PartyID, c.Email, c.Phone, c.IsPrimary, c.UpdatedFromCRMAt, c.CreatedAt, c.UpdatedAt).
		Suffix(`ON CONFLICT ON CONSTRAINT uq_crm_contacts_party_email DO UPDATE SET
			phone = EXCLUDED.phone, is_primary = EXCLUDED.is_primary,
			updated_from_crm_at = EXCLUDED.updated_from_crm_at, updated_at = EXCLUDED.updated_at
			RETURNING ` + contactCols + `, (xmax = 0) AS created`)
}

func (r *ContactRepo) Upsert(ctx context.Context, c *contact.Contact) (bool, error) {
	var row upsertedContact
	if err := postgres.Get(ctx, r.querier(ctx), &row, upsertContactQuery(c), "contact", c.Email); err != nil {
		return false, err
	}
	*c = row.Contact
	return row.Created, nil
}

func (r *ContactRepo) DemotePrimaries(ctx context.Context, ref party.Ref, email string) error {
	q := postgres.Builder().Update("crm_contacts").
		Set("is_primary", false).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"party_type": ref.Kind, "party_id": ref.ID, "is_primary": true}).
		Where(sq.NotEq{"email": email})
	if _, err := postgres.Exec(ctx, r.querier(ctx), q); err != nil {
		return fmt.Errorf("demote primary contacts: %w", err)
	}
	return nil
}

func (r *ContactRepo) List(ctx context.Context, ref party.Ref) ([]*contact.Contact, error) {
	q := postgres.Builder().Select(contactCols).From("crm_contacts").
		Where(sq.Eq{"party_type": ref.Kind, "party_id": ref.ID}).
		OrderBy("is_primary DESC", "email ASC")

	contacts := make([]*contact.Contact, 0)
	if err := postgres.Select(ctx, r.querier(ctx), &contacts, q); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}
