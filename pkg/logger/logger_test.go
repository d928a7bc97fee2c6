package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appctx "bizzplus/internal/core/context"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &Logger{zap.New(core).Sugar()}, logs
}

func TestWithContext_AddsTraceAndParty(t *testing.T) {
	log, logs := observed()

	ctx := appctx.WithTrace(context.Background(), &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1"})
	ctx = appctx.WithUser(ctx, &appctx.UserContext{
		UserID:    "u-1",
		Role:      appctx.RoleDistributor,
		PartyKind: "distributor",
		PartyID:   "d-1",
	})

	log.WithContext(ctx).Infow("order placed", "number", "ORD-2026-000001")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "r-1", fields["request_id"])
	assert.Equal(t, "u-1", fields["user_id"])
	assert.Equal(t, "d-1", fields["party_id"])
	assert.Equal(t, "ORD-2026-000001", fields["number"])
}

func TestFromContext_UsesInjectedLogger(t *testing.T) {
	log, logs := observed()
	ctx := WithLogger(context.Background(), log.WithComponent("worker"))

	Warn(ctx, "enqueue failed", "voucher_id", "v-1")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "enqueue failed", entry.Message)
	assert.Equal(t, "worker", entry.ContextMap()["component"])
}

func TestNew_FallsBackToInfoOnBadLevel(t *testing.T) {
	log, err := New(Config{Level: "loud", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.False(t, log.Desugar().Core().Enabled(zap.DebugLevel))
	assert.True(t, log.Desugar().Core().Enabled(zap.InfoLevel))
}

func TestSetDefault_UsedWithoutInjectedLogger(t *testing.T) {
	log, logs := observed()
	prev := defaultLogger.Load()
	SetDefault(log)
	t.Cleanup(func() { defaultLogger.Store(prev) })

	Info(context.Background(), "sweep finished", "requeued", 2)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(2), logs.All()[0].ContextMap()["requeued"])
}

func TestNew_ServiceField(t *testing.T) {
	log, err := New(Config{Level: "info", Service: "bizzplus-worker", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.NotNil(t, log.WithComponent("worker"))
}
