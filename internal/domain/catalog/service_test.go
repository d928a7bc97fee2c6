package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizzplus/internal/core/apperror"
	appctx "bizzplus/internal/core/context"
	"bizzplus/internal/core/id"
	"bizzplus/internal/core/tx/txtest"
	"bizzplus/internal/core/types"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/audit"
	"bizzplus/internal/domain/audit/audittest"
	"bizzplus/internal/domain/catalog"
	"bizzplus/internal/domain/catalog/catalogtest"
	"bizzplus/internal/domain/party"
	"bizzplus/internal/domain/party/partytest"
)

type fixture struct {
	svc   *catalog.Service
	repo  *catalogtest.Repo
	audit *audittest.Recorder
	txm   *txtest.Manager
	mfr   *party.Party
	sku   catalog.SKU
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mfr := &party.Party{Ref: party.Manufacturer(id.New()), Name: "Acme Foods"}
	repo := catalogtest.New()
	sku := catalog.SKU{ID: id.New(), ManufacturerID: mfr.ID, Code: "ACM-001", Name: "Basmati Rice 5kg", GSTPercent: types.MustMoney("5"), UOM: "BAG"}
	repo.AddSKU(sku)

	rec := &audittest.Recorder{}
	txm := txtest.New(repo, rec)
	svc := catalog.NewService(repo, party.NewResolver(partytest.New(mfr)), rec, txm)
	return &fixture{svc: svc, repo: repo, audit: rec, txm: txm, mfr: mfr, sku: sku}
}

func TestSetPrice_RotatesOpenPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.AddDate(0, 1, 0)

	_, err := f.svc.SetPrice(ctx, catalog.SetPriceInput{SKUID: f.sku.ID, Price: types.MustMoney("100"), EffectiveFrom: first})
	require.NoError(t, err)
	_, err = f.svc.SetPrice(ctx, catalog.SetPriceInput{SKUID: f.sku.ID, Price: types.MustMoney("110"), Currency: "inr", EffectiveFrom: second})
	require.NoError(t, err)

	assert.Equal(t, 1, f.repo.OpenCount(f.sku.ID))

	history, err := f.svc.PriceHistory(ctx, f.sku.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].IsOpen())
	assert.Equal(t, "INR", history[0].Currency)
	require.NotNil(t, history[1].EffectiveTo)
	assert.True(t, history[1].EffectiveTo.Equal(second), "previous price closed at the new effectiveFrom")

	active, err := f.svc.ActivePrice(ctx, f.sku.ID, second.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, active.Price.Equal(types.MustMoney("110")))

	assert.Equal(t, []audit.Action{audit.ActionPriceChange, audit.ActionPriceChange}, f.audit.Actions(f.sku.ID))
	assert.Equal(t, 2, f.repo.Locks)
}

func TestSetPrice_RejectsBackdatedRotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.SetPrice(ctx, catalog.SetPriceInput{SKUID: f.sku.ID, Price: types.MustMoney("100"), EffectiveFrom: from})
	require.NoError(t, err)

	_, err = f.svc.SetPrice(ctx, catalog.SetPriceInput{SKUID: f.sku.ID, Price: types.MustMoney("90"), EffectiveFrom: from.AddDate(0, -1, 0)})
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, 1, f.repo.OpenCount(f.sku.ID))
	assert.Equal(t, 1, f.txm.Aborts)
}

func TestSetPrice_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetPrice(context.Background(), catalog.SetPriceInput{SKUID: f.sku.ID, Price: types.MustMoney("-1")})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.SetPrice(context.Background(), catalog.SetPriceInput{Price: types.MustMoney("1")})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.SetPrice(context.Background(), catalog.SetPriceInput{SKUID: id.New(), Price: types.MustMoney("1")})
	assert.True(t, apperror.IsNotFound(err))
}

func TestSetPrice_ForeignManufacturerForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: "u-2", Role: appctx.RoleManufacturer, PartyKind: string(party.KindManufacturer), PartyID: id.New().String(),
	})

	_, err := f.svc.SetPrice(ctx, catalog.SetPriceInput{SKUID: f.sku.ID, Price: types.MustMoney("5")})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
	assert.Equal(t, 0, f.repo.OpenCount(f.sku.ID))
}

func TestListSKUs_CurrentPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.AddPrice(catalog.Price{SKUID: f.sku.ID, Price: types.MustMoney("250"), Currency: "INR", EffectiveFrom: time.Now().Add(-time.Hour)})
	f.repo.AddSKU(catalog.SKU{ID: id.New(), ManufacturerID: f.mfr.ID, Code: "ACM-002", Name: "Atta 10kg"})

	res, err := f.svc.ListSKUs(ctx, f.mfr.ID, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Atta 10kg", res.Items[0].Name)
	assert.Nil(t, res.Items[0].CurrentPrice)
	require.NotNil(t, res.Items[1].CurrentPrice)
	assert.True(t, res.Items[1].CurrentPrice.Equal(types.MustMoney("250")))

	_, err = f.svc.ListSKUs(ctx, id.New(), domain.ListFilter{})
	assert.True(t, apperror.IsNotFound(err))
}
