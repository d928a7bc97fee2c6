package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/party"
	"bizzplus/internal/infrastructure/storage/postgres"
)

type partyRow struct {
	ID        id.ID     `db:"id"`
	Name      string    `db:"name"`
	GSTIN     *string   `db:"gstin"`
	City      *string   `db:"city"`
	CreatedAt time.Time `db:"created_at"`
}

func (p *partyRow) toParty(kind party.Kind) *party.Party {
	out := &party.Party{
		Ref:       party.Ref{Kind: kind, ID: p.ID},
		Name:      p.Name,
		CreatedAt: p.CreatedAt,
	}
	if p.GSTIN != nil {
		out.GSTIN = *p.GSTIN
	}
	if p.City != nil {
		out.City = *p.City
	}
	return out
}

// PartyRepo reads manufacturers and distributors from their own tables.
type PartyRepo struct {
	tables map[party.Kind]*baseRepo[partyRow]
}

var _ party.Repository = (*PartyRepo)(nil)

// NewPartyRepo creates a new party repository.
func NewPartyRepo(txManager *postgres.TxManager) *PartyRepo {
	table := func(name, entity string) *baseRepo[partyRow] {
		return &baseRepo[partyRow]{
			txManager:  txManager,
			tableName:  name,
			entityName: entity,
			selectCols: []string{"id", "name", "gstin", "city", "created_at"},
			searchCols: []string{"name"},
			orderBy:    "name ASC, id ASC",
		}
	}
	return &PartyRepo{tables: map[party.Kind]*baseRepo[partyRow]{
		party.KindManufacturer: table("manufacturers", "manufacturer"),
		party.KindDistributor:  table("distributors", "distributor"),
	}}
}

func (r *PartyRepo) table(kind party.Kind) (*baseRepo[partyRow], error) {
	t, ok := r.tables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown party kind %q", kind)
	}
	return t, nil
}

// Get implements party.Repository.
func (r *PartyRepo) Get(ctx context.Context, ref party.Ref) (*party.Party, error) {
	t, err := r.table(ref.Kind)
	if err != nil {
		return nil, err
	}
	row, err := t.getByID(ctx, ref.ID, false)
	if err != nil {
		return nil, err
	}
	return row.toParty(ref.Kind), nil
}

// List implements party.Repository.
func (r *PartyRepo) List(ctx context.Context, kind party.Kind, f domain.ListFilter) (domain.ListResult[*party.Party], error) {
	t, err := r.table(kind)
	if err != nil {
		return domain.ListResult[*party.Party]{}, err
	}
	rows, total, err := t.list(ctx, t.baseSelect(), f)
	if err != nil {
		return domain.ListResult[*party.Party]{}, fmt.Errorf("list %s: %w", t.tableName, err)
	}
	items := make([]*party.Party, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toParty(kind))
	}
	return domain.NewListResult(items, total, f), nil
}
