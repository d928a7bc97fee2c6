package voucher_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizzplus/internal/core/apperror"
	appctx "bizzplus/internal/core/context"
	"bizzplus/internal/core/id"
	"bizzplus/internal/core/tx/txtest"
	"bizzplus/internal/core/types"
	"bizzplus/internal/domain/audit"
	"bizzplus/internal/domain/audit/audittest"
	"bizzplus/internal/domain/party"
	"bizzplus/internal/domain/voucher"
	"bizzplus/internal/domain/voucher/vouchertest"
)

type fixture struct {
	svc      *voucher.Service
	repo     *vouchertest.Repo
	queue    *vouchertest.Queue
	exporter *vouchertest.Exporter
	audit    *audittest.Recorder
	txm      *txtest.Manager
}

func newFixture() *fixture {
	f := &fixture{
		repo:     vouchertest.NewRepo(),
		queue:    &vouchertest.Queue{},
		exporter: &vouchertest.Exporter{ExternalID: "TALLY-42"},
		audit:    &audittest.Recorder{},
	}
	f.txm = txtest.New(f.repo, f.audit)
	f.svc = voucher.NewService(f.repo, f.queue, f.exporter, f.audit, f.txm)
	return f
}

func snapshot() voucher.OrderSnapshot {
	return voucher.OrderSnapshot{
		OrderID:      id.New(),
		OrderNumber:  "ORD-2026-000007",
		FulfilledAt:  time.Now().UTC(),
		Manufacturer: party.Party{Ref: party.Manufacturer(id.New()), Name: "Acme"},
		Distributor:  party.Party{Ref: party.Distributor(id.New()), Name: "Traders"},
		Lines: []voucher.SnapshotLine{{
			Name: "Oil 1L", Qty: types.MustMoney("2"), Rate: types.MustMoney("150"),
			Amount: types.MustMoney("300"), GSTPercent: types.MustMoney("5"), GSTAmount: types.MustMoney("15"),
		}},
		Subtotal:   types.MustMoney("300"),
		GSTTotal:   types.MustMoney("15"),
		GrandTotal: types.MustMoney("315"),
	}
}

func TestCreateExport_CreatesAndAudits(t *testing.T) {
	f := newFixture()
	snap := snapshot()

	ids, err := f.svc.CreateExport(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	assert.Empty(t, f.queue.IDs(), "enqueue waits for the caller's commit")
	assert.Len(t, f.repo.All(), 2)
	assert.Equal(t, []audit.Action{audit.ActionExport}, f.audit.Actions(snap.OrderID))
}

func TestCreateExport_ConflictWhenVouchersExist(t *testing.T) {
	f := newFixture()
	snap := snapshot()
	_, err := f.svc.CreateExport(context.Background(), snap)
	require.NoError(t, err)

	_, err = f.svc.CreateExport(context.Background(), snap)

	assert.True(t, apperror.IsConflict(err))
	assert.Len(t, f.repo.All(), 2)
}

func TestCreateForOrder_SecondSetForSameOrderIsConflict(t *testing.T) {
	f := newFixture()
	snap := snapshot()
	_, err := f.svc.CreateForOrder(context.Background(), snap)
	require.NoError(t, err)

	// Skips the existence check, as a racing export that read before the
	// first commit would.
	_, err = f.svc.CreateForOrder(context.Background(), snap)

	assert.True(t, apperror.IsConflict(err))
	assert.Len(t, f.repo.All(), 2)
}

func TestEnqueueAll_FailureKeepsVouchersQueued(t *testing.T) {
	f := newFixture()
	f.queue.Err = errors.New("redis down")

	ids, err := f.svc.CreateExport(context.Background(), snapshot())
	require.NoError(t, err)
	f.svc.EnqueueAll(context.Background(), ids)

	assert.Len(t, ids, 2)
	for _, v := range f.repo.All() {
		assert.Equal(t, voucher.StatusQueued, v.Status)
	}
}

func TestExport_Success(t *testing.T) {
	f := newFixture()
	ids, err := f.svc.CreateForOrder(context.Background(), snapshot())
	require.NoError(t, err)

	require.NoError(t, f.svc.Export(context.Background(), ids[0], false))

	v, err := f.repo.GetByID(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, voucher.StatusSent, v.Status)
	require.NotNil(t, v.ExternalID)
	assert.Equal(t, "TALLY-42", *v.ExternalID)
	assert.NotNil(t, v.SentAt)
}

func TestExport_SkipsNonQueued(t *testing.T) {
	f := newFixture()
	ids, err := f.svc.CreateForOrder(context.Background(), snapshot())
	require.NoError(t, err)
	require.NoError(t, f.svc.Export(context.Background(), ids[0], false))

	require.NoError(t, f.svc.Export(context.Background(), ids[0], false))

	assert.Equal(t, 1, f.exporter.Calls)
}

func TestExport_RetryThenError(t *testing.T) {
	f := newFixture()
	f.exporter.Fail = true
	ids, err := f.svc.CreateForOrder(context.Background(), snapshot())
	require.NoError(t, err)
	ctx := context.Background()

	err = f.svc.Export(ctx, ids[0], false)
	assert.ErrorIs(t, err, vouchertest.ErrExport)
	v, _ := f.repo.GetByID(ctx, ids[0])
	assert.Equal(t, voucher.StatusQueued, v.Status)
	assert.Equal(t, 1, v.Attempts)

	err = f.svc.Export(ctx, ids[0], true)
	assert.ErrorIs(t, err, vouchertest.ErrExport)
	v, _ = f.repo.GetByID(ctx, ids[0])
	assert.Equal(t, voucher.StatusError, v.Status)
	assert.Equal(t, 2, v.Attempts)
	require.NotNil(t, v.ErrorMessage)
	assert.Contains(t, *v.ErrorMessage, "ledger unavailable")
}

func TestExport_UnknownVoucherIsDropped(t *testing.T) {
	f := newFixture()
	assert.NoError(t, f.svc.Export(context.Background(), id.New(), false))
	assert.Zero(t, f.exporter.Calls)
}

func TestRequeueStale(t *testing.T) {
	f := newFixture()
	ids, err := f.svc.CreateForOrder(context.Background(), snapshot())
	require.NoError(t, err)
	f.repo.Age(ids[1], time.Hour)

	n, err := f.svc.RequeueStale(context.Background(), 5*time.Minute, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []id.ID{ids[1]}, f.queue.IDs())
}

func TestGetAndList_ScopedToCallerParty(t *testing.T) {
	f := newFixture()
	snap := snapshot()
	ids, err := f.svc.CreateForOrder(context.Background(), snap)
	require.NoError(t, err)

	distCtx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: "u1", Role: appctx.RoleDistributor,
		PartyKind: string(party.KindDistributor), PartyID: snap.Distributor.ID.String(),
	})

	list, err := f.svc.List(distCtx, voucher.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, voucher.TypeSales, list.Items[0].Type)

	_, err = f.svc.Get(distCtx, ids[0])
	assert.NoError(t, err)
	_, err = f.svc.Get(distCtx, ids[1])
	assert.True(t, apperror.IsNotFound(err))

	all, err := f.svc.List(context.Background(), voucher.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}
