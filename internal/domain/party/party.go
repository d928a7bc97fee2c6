// Package party models the two kinds of trading partner: manufacturers and
// distributors. References are a tagged union of kind and id.
package party

import (
	"context"
	"time"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
)

// Kind discriminates the party union.
type Kind string

const (
	KindManufacturer Kind = "manufacturer"
	KindDistributor  Kind = "distributor"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindManufacturer, KindDistributor:
		return Kind(s), nil
	}
	return "", apperror.NewValidation("unknown party kind").WithDetail("kind", s)
}

// Ref addresses a party by kind and id.
type Ref struct {
	Kind Kind  `json:"kind"`
	ID   id.ID `json:"id"`
}

// Manufacturer returns a reference to a manufacturer.
func Manufacturer(partyID id.ID) Ref { return Ref{Kind: KindManufacturer, ID: partyID} }

// Distributor returns a reference to a distributor.
func Distributor(partyID id.ID) Ref { return Ref{Kind: KindDistributor, ID: partyID} }

// Validate checks the discriminant and the id.
func (r Ref) Validate() error {
	if _, err := ParseKind(string(r.Kind)); err != nil {
		return err
	}
	if id.IsNil(r.ID) {
		return apperror.NewValidation("party id is required").WithDetail("kind", string(r.Kind))
	}
	return nil
}

func (r Ref) String() string {
	return string(r.Kind) + ":" + r.ID.String()
}

// Party is a resolved manufacturer or distributor.
type Party struct {
	Ref
	Name      string    `json:"name"`
	GSTIN     string    `json:"gstin,omitempty"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository loads parties from their kind's table.
type Repository interface {
	Get(ctx context.Context, ref Ref) (*Party, error)
	List(ctx context.Context, kind Kind, filter domain.ListFilter) (domain.ListResult[*Party], error)
}

// Resolver turns references into parties.
type Resolver struct {
	repo Repository
}

// NewResolver creates a resolver.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve validates ref and loads the party. A missing party is NOT_FOUND
// with the kind as entity name.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) (*Party, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return r.repo.Get(ctx, ref)
}

// List returns parties of one kind ordered by name.
func (r *Resolver) List(ctx context.Context, kind Kind, filter domain.ListFilter) (domain.ListResult[*Party], error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return domain.ListResult[*Party]{}, err
	}
	return r.repo.List(ctx, kind, filter.Normalize())
}
