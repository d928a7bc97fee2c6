package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizzplus/internal/core/id"
	"bizzplus/internal/infrastructure/queue/redisqueue"
	"bizzplus/pkg/logger"
)

type call struct {
	voucherID id.ID
	final     bool
}

type fakeExporter struct {
	mu       sync.Mutex
	calls    []call
	fail     error
	requeued int
	stale    time.Duration
}

func (f *fakeExporter) Export(_ context.Context, voucherID id.ID, final bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{voucherID, final})
	return f.fail
}

func (f *fakeExporter) RequeueStale(_ context.Context, staleAfter time.Duration, _ int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requeued++
	f.stale = staleAfter
	return 0, nil
}

func (f *fakeExporter) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type fakeCleaner struct{ n int64 }

func (f *fakeCleaner) CleanupExpired(context.Context) (int64, error) {
	f.n++
	return 1, nil
}

func newQueue(t *testing.T) (*redisqueue.Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisqueue.New(client, redisqueue.Options{Name: "export", Attempts: 2, Backoff: time.Millisecond}), mr
}

func dequeue(t *testing.T, q *redisqueue.Queue) *redisqueue.Delivery {
	t.Helper()
	d, err := q.Dequeue(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func TestProcess_SuccessAcks(t *testing.T) {
	q, mr := newQueue(t)
	exp := &fakeExporter{}
	w := New(q, exp, nil, Config{}, logger.Nop())
	vid := id.New()
	require.NoError(t, q.Enqueue(context.Background(), vid))

	w.Process(context.Background(), dequeue(t, q))

	assert.Equal(t, []call{{vid, false}}, exp.Calls())
	assert.False(t, mr.Exists("export:processing"))
	assert.False(t, mr.Exists("export:delayed"))
}

func TestProcess_FailureRetriesThenGivesUp(t *testing.T) {
	q, mr := newQueue(t)
	exp := &fakeExporter{fail: errors.New("ledger offline")}
	w := New(q, exp, nil, Config{}, logger.Nop())
	vid := id.New()
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, vid))

	w.Process(ctx, dequeue(t, q))
	assert.True(t, mr.Exists("export:delayed"), "first failure is scheduled for retry")

	time.Sleep(5 * time.Millisecond)
	w.Process(ctx, dequeue(t, q))

	assert.Equal(t, []call{{vid, false}, {vid, true}}, exp.Calls())
	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, redisqueue.Stats{}, stats)
}

func TestProcess_LockedElsewhereDropsDuplicate(t *testing.T) {
	q, mr := newQueue(t)
	exp := &fakeExporter{}
	w := New(q, exp, nil, Config{}, logger.Nop())
	ctx := context.Background()
	vid := id.New()
	require.NoError(t, q.Enqueue(ctx, vid))

	lock, err := q.Lock(ctx, vid)
	require.NoError(t, err)
	defer func() { _ = lock.Release(ctx) }()

	w.Process(ctx, dequeue(t, q))

	assert.Empty(t, exp.Calls())
	assert.False(t, mr.Exists("export:processing"))
}

func TestSweepAndCleanup(t *testing.T) {
	q, _ := newQueue(t)
	exp := &fakeExporter{}
	cleaner := &fakeCleaner{}
	w := New(q, exp, cleaner, Config{StaleAfter: 3 * time.Minute}, logger.Nop())

	w.Sweep(context.Background())
	w.Cleanup(context.Background())

	assert.Equal(t, 1, exp.requeued)
	assert.Equal(t, 3*time.Minute, exp.stale)
	assert.Equal(t, int64(1), cleaner.n)
}

func TestRun_ConsumesUntilCancelled(t *testing.T) {
	q, mr := newQueue(t)
	exp := &fakeExporter{}
	w := New(q, exp, nil, Config{Concurrency: 2, PollTimeout: 20 * time.Millisecond}, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	orphan, fresh := id.New(), id.New()
	_, _ = mr.Push("export:processing", orphan.String())
	require.NoError(t, q.Enqueue(ctx, fresh))

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(exp.Calls()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	exported := []id.ID{exp.Calls()[0].voucherID, exp.Calls()[1].voucherID}
	assert.ElementsMatch(t, []id.ID{orphan, fresh}, exported)
}
