// Package worker runs the voucher export consumers and the periodic sweeps.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bizzplus/internal/core/id"
	"bizzplus/internal/infrastructure/queue/redisqueue"
	"bizzplus/pkg/logger"
)

var tracer = otel.Tracer("bizzplus/worker")

// Queue is the export queue consumed by the worker.
type Queue interface {
	RequeueOrphans(ctx context.Context) (int, error)
	Dequeue(ctx context.Context, timeout time.Duration) (*redisqueue.Delivery, error)
	Final(d *redisqueue.Delivery) bool
	Ack(ctx context.Context, d *redisqueue.Delivery) error
	Retry(ctx context.Context, d *redisqueue.Delivery) (bool, error)
	Lock(ctx context.Context, voucherID id.ID) (*redislock.Lock, error)
}

// Exporter exports single vouchers and requeues stale ones.
type Exporter interface {
	Export(ctx context.Context, voucherID id.ID, final bool) error
	RequeueStale(ctx context.Context, staleAfter time.Duration, limit int) (int, error)
}

// KeyCleaner deletes expired idempotency keys.
type KeyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Config controls the worker loops.
type Config struct {
	Concurrency   int
	PollTimeout   time.Duration
	SweepInterval time.Duration
	StaleAfter    time.Duration
	SweepLimit    int
	// CleanupInterval is how often expired idempotency keys are deleted.
	CleanupInterval time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:     5,
		PollTimeout:     time.Second,
		SweepInterval:   time.Minute,
		StaleAfter:      5 * time.Minute,
		SweepLimit:      100,
		CleanupInterval: time.Hour,
	}
}

// Worker consumes the export queue.
type Worker struct {
	queue    Queue
	exporter Exporter
	cleaner  KeyCleaner
	cfg      Config
	log      *logger.Logger
}

// New creates a worker. cleaner may be nil.
func New(queue Queue, exporter Exporter, cleaner KeyCleaner, cfg Config, log *logger.Logger) *Worker {
	def := DefaultConfig()
	if cfg.Concurrency < 1 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = def.PollTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	if cfg.SweepLimit <= 0 {
		cfg.SweepLimit = def.SweepLimit
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	return &Worker{
		queue:    queue,
		exporter: exporter,
		cleaner:  cleaner,
		cfg:      cfg,
		log:      log.WithComponent("worker"),
	}
}

// Run blocks until ctx is cancelled and every consumer has finished its
// current delivery.
func (w *Worker) Run(ctx context.Context) error {
	ctx = logger.WithLogger(ctx, w.log)

	n, err := w.queue.RequeueOrphans(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		w.log.Infow("requeued orphaned deliveries", "count", n)
	}

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.consume(ctx, slot)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.sweep(ctx)
	}()

	w.log.Infow("worker started", "concurrency", w.cfg.Concurrency)
	<-ctx.Done()
	wg.Wait()
	w.log.Info("worker stopped")
	return nil
}

func (w *Worker) consume(ctx context.Context, slot int) {
	for ctx.Err() == nil {
		d, err := w.queue.Dequeue(ctx, w.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Errorw("dequeue failed", "slot", slot, "error", err)
			sleep(ctx, w.cfg.PollTimeout)
			continue
		}
		if d == nil {
			continue
		}
		// A started delivery is finished even during shutdown.
		w.Process(context.WithoutCancel(ctx), d)
	}
}

// Process exports one delivery and acknowledges or reschedules it.
func (w *Worker) Process(ctx context.Context, d *redisqueue.Delivery) {
	ctx, span := tracer.Start(ctx, "voucher.export",
		trace.WithAttributes(
			attribute.String("voucher.id", d.VoucherID.String()),
			attribute.Int("attempt", d.Attempt),
		))
	defer span.End()

	log := w.log.With("voucher_id", d.VoucherID, "attempt", d.Attempt)

	lock, err := w.queue.Lock(ctx, d.VoucherID)
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, redisqueue.ErrLocked) {
		// Another consumer is exporting the same voucher.
		log.Debug("voucher locked elsewhere, dropping duplicate delivery")
		w.ack(ctx, log, d)
		return
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Errorw("lock failed", "error", err)
		w.retry(ctx, log, d)
		return
	}

	exportErr := w.exporter.Export(ctx, d.VoucherID, w.queue.Final(d))
	if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		log.Warnw("release lock failed", "error", err)
	}

	if exportErr != nil {
		span.SetStatus(codes.Error, exportErr.Error())
		log.Warnw("voucher export attempt failed", "error", exportErr)
		w.retry(ctx, log, d)
		return
	}
	w.ack(ctx, log, d)
}

func (w *Worker) ack(ctx context.Context, log *logger.Logger, d *redisqueue.Delivery) {
	if err := w.queue.Ack(ctx, d); err != nil {
		log.Errorw("ack failed", "error", err)
	}
}

func (w *Worker) retry(ctx context.Context, log *logger.Logger, d *redisqueue.Delivery) {
	scheduled, err := w.queue.Retry(ctx, d)
	if err != nil {
		log.Errorw("schedule retry failed", "error", err)
		return
	}
	if !scheduled {
		log.Warn("voucher export attempts exhausted")
	}
}

func (w *Worker) sweep(ctx context.Context) {
	sweepTicker := time.NewTicker(w.cfg.SweepInterval)
	defer sweepTicker.Stop()

	cleanupTicker := time.NewTicker(w.cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweepTicker.C:
			w.Sweep(ctx)
		case <-cleanupTicker.C:
			w.Cleanup(ctx)
		}
	}
}

// Sweep re-enqueues vouchers stuck in queued.
func (w *Worker) Sweep(ctx context.Context) {
	if _, err := w.exporter.RequeueStale(ctx, w.cfg.StaleAfter, w.cfg.SweepLimit); err != nil {
		w.log.Errorw("sweep failed", "error", err)
	}
}

// Cleanup deletes expired idempotency keys.
func (w *Worker) Cleanup(ctx context.Context) {
	if w.cleaner == nil {
		return
	}
	n, err := w.cleaner.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
		return
	}
	if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
