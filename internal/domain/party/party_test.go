package party

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizzplus/internal/core/apperror"
	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
)

type memRepo struct {
	parties map[Ref]*Party
}

func (m *memRepo) Get(_ context.Context, ref Ref) (*Party, error) {
	p, ok := m.parties[ref]
	if !ok {
		return nil, apperror.NewNotFound(string(ref.Kind), ref.ID)
	}
	return p, nil
}

func (m *memRepo) List(_ context.Context, kind Kind, f domain.ListFilter) (domain.ListResult[*Party], error) {
	var out []*Party
	for ref, p := range m.parties {
		if ref.Kind == kind {
			out = append(out, p)
		}
	}
	return domain.NewListResult(out, int64(len(out)), f), nil
}

func TestResolver_Resolve(t *testing.T) {
	mID := id.New()
	m := &Party{Ref: Manufacturer(mID), Name: "Acme Foods", GSTIN: "27AAACA1234A1Z5"}
	r := NewResolver(&memRepo{parties: map[Ref]*Party{m.Ref: m}})
	ctx := context.Background()

	got, err := r.Resolve(ctx, Manufacturer(mID))
	require.NoError(t, err)
	assert.Equal(t, "Acme Foods", got.Name)

	// Same id under the other discriminant is a different party.
	_, err = r.Resolve(ctx, Distributor(mID))
	assert.True(t, apperror.IsNotFound(err))
}

func TestResolver_InvalidRef(t *testing.T) {
	r := NewResolver(&memRepo{})

	_, err := r.Resolve(context.Background(), Ref{Kind: "retailer", ID: id.New()})
	assert.True(t, apperror.IsValidation(err))

	_, err = r.Resolve(context.Background(), Ref{Kind: KindDistributor})
	assert.True(t, apperror.IsValidation(err))
}

func TestResolver_ListNormalizesFilter(t *testing.T) {
	r := NewResolver(&memRepo{parties: map[Ref]*Party{}})

	res, err := r.List(context.Background(), KindDistributor, domain.ListFilter{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxLimit, res.Limit)
	assert.NotNil(t, res.Items)
}

func TestRef_String(t *testing.T) {
	pid := id.MustParse("0190f1d2-0000-7000-8000-000000000001")
	assert.Equal(t, "distributor:0190f1d2-0000-7000-8000-000000000001", Distributor(pid).String())
}
