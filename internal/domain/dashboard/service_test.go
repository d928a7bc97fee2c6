package dashboard

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizzplus/internal/core/apperror"
	appctx "bizzplus/internal/core/context"
	"bizzplus/internal/core/id"
	"bizzplus/internal/core/types"
	"bizzplus/internal/domain/inventory"
	"bizzplus/internal/domain/party"
	"bizzplus/internal/domain/party/partytest"
	"bizzplus/internal/domain/voucher"
)

type stubRepo struct {
	dayStart time.Time
	since    time.Time
	limits   []int
}

func (r *stubRepo) ManufacturerCounts(_ context.Context, _ id.ID, dayStart time.Time) (ManufacturerCounts, error) {
	r.dayStart = dayStart
	return ManufacturerCounts{OpenOrders: 3, TodaysFulfillments: 1, TodaysValue: types.MustMoney("590")}, nil
}

func (r *stubRepo) LatestOrders(_ context.Context, _ id.ID, limit int) ([]OrderRow, error) {
	r.limits = append(r.limits, limit)
	return []OrderRow{{ID: id.New(), Number: "ORD-2026-000001"}}, nil
}

func (r *stubRepo) PriceChanges(_ context.Context, _ id.ID, since time.Time, limit int) ([]PriceChangeRow, error) {
	r.since = since
	r.limits = append(r.limits, limit)
	return nil, nil
}

func (r *stubRepo) DistributorCounts(_ context.Context, _ id.ID, dayStart time.Time) (DistributorCounts, error) {
	r.dayStart = dayStart
	return DistributorCounts{OnHandSKUs: 4, OpenPOs: 2, RecentSales: 1}, nil
}

func (r *stubRepo) RecentVouchers(_ context.Context, _ party.Ref, limit int) ([]*voucher.Voucher, error) {
	r.limits = append(r.limits, limit)
	return nil, nil
}

type stubAlerts []inventory.Alert

func (a stubAlerts) Alerts(context.Context, id.ID) ([]inventory.Alert, error) { return a, nil }

var (
	mfr  = &party.Party{Ref: party.Manufacturer(id.New()), Name: "Acme"}
	dist = &party.Party{Ref: party.Distributor(id.New()), Name: "Traders"}
	now  = time.Date(2026, 7, 15, 20, 30, 0, 0, time.UTC)
)

func newService(repo Repository, alerts AlertSource, loc *time.Location) *Service {
	s := NewService(repo, party.NewResolver(partytest.New(mfr, dist)), alerts, loc)
	s.now = func() time.Time { return now }
	return s
}

func TestManufacturer(t *testing.T) {
	repo := &stubRepo{}
	s := newService(repo, stubAlerts{}, nil)

	sum, err := s.Manufacturer(context.Background(), mfr.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.OpenOrders)
	assert.Equal(t, "590", sum.TodaysValue.String())
	assert.Len(t, sum.LatestOrders, 1)
	assert.NotNil(t, sum.PriceChanges)
	assert.Equal(t, time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC), repo.dayStart)
	assert.Equal(t, now.Add(-PriceChangesWindow), repo.since)
	assert.Equal(t, []int{LatestOrdersLimit, PriceChangesLimit}, repo.limits)
}

func TestDayStart_UsesLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	repo := &stubRepo{}
	s := newService(repo, stubAlerts{}, ist)

	_, err := s.Manufacturer(context.Background(), mfr.ID)
	require.NoError(t, err)

	// 20:30 UTC is already 02:00 on the next day in IST.
	assert.Equal(t, time.Date(2026, 7, 16, 0, 0, 0, 0, ist), repo.dayStart)
}

func TestDistributor_SplitsAlerts(t *testing.T) {
	alerts := stubAlerts{
		{Kind: inventory.AlertLow, Balance: &inventory.BalanceView{SKUCode: "A"}},
		{Kind: inventory.AlertLow, Balance: &inventory.BalanceView{SKUCode: "B"}},
		{Kind: inventory.AlertNegative, Balance: &inventory.BalanceView{SKUCode: "C"}},
	}
	s := newService(&stubRepo{}, alerts, nil)

	sum, err := s.Distributor(context.Background(), dist.ID)
	require.NoError(t, err)

	assert.Equal(t, 4, sum.OnHandSKUs)
	assert.Equal(t, 2, sum.LowStock)
	require.Len(t, sum.NegativeStock, 1)
	assert.Equal(t, "C", sum.NegativeStock[0].SKUCode)
	assert.NotNil(t, sum.RecentVouchers)
}

func TestDashboard_Access(t *testing.T) {
	s := newService(&stubRepo{}, stubAlerts{}, nil)
	other := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: "u", Role: appctx.RoleDistributor,
		PartyKind: string(party.KindDistributor), PartyID: id.New().String(),
	})

	_, err := s.Distributor(other, dist.ID)
	assert.Equal(t, http.StatusForbidden, apperror.GetHTTPStatus(err))

	_, err = s.Manufacturer(context.Background(), id.New())
	assert.True(t, apperror.IsNotFound(err))
}
