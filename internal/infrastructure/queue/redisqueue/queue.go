// Package redisqueue implements the voucher export queue on Redis lists.
//
// Each enqueue pushes an entry "<voucher id>/<token>" onto a pending list,
// where the token is unique to that enqueue. Consumers move entries
// atomically to a processing list (BLMOVE). Attempts are counted per entry,
// so a voucher enqueued twice keeps two independent counts. An acknowledged delivery is removed from the
// processing list; a failed one is parked in a delayed sorted set scored by
// its retry time and promoted back to pending once due.
package redisqueue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"bizzplus/internal/core/id"
	"bizzplus/internal/domain/voucher"
)

// ErrLocked is returned by Lock when another consumer holds the voucher.
var ErrLocked = errors.New("voucher is locked by another consumer")

// Options configures a Queue.
type Options struct {
	Name     string
	Attempts int
	Backoff  time.Duration
	LockTTL  time.Duration
}

// DefaultOptions mirrors the export defaults: 3 attempts, 2s base backoff.
func DefaultOptions() Options {
	return Options{
		Name:     "voucher-export",
		Attempts: 3,
		Backoff:  2 * time.Second,
		LockTTL:  time.Minute,
	}
}

// Delivery is one dequeued voucher id.
type Delivery struct {
	VoucherID id.ID
	// Attempt starts at 1.
	Attempt int
	raw     string
}

// Queue is a reliable Redis queue of voucher ids.
type Queue struct {
	client *redis.Client
	locker *redislock.Client
	opts   Options
	now    func() time.Time

	pending    string
	processing string
	delayed    string
	attempts   string
}

var _ voucher.Queue = (*Queue)(nil)

// New creates a queue on an existing client.
func New(client *redis.Client, opts Options) *Queue {
	def := DefaultOptions()
	if opts.Name == "" {
		opts.Name = def.Name
	}
	if opts.Attempts < 1 {
		opts.Attempts = def.Attempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = def.Backoff
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = def.LockTTL
	}
	return &Queue{
		client:     client,
		locker:     redislock.New(client),
		opts:       opts,
		now:        time.Now,
		pending:    opts.Name + ":pending",
		processing: opts.Name + ":processing",
		delayed:    opts.Name + ":delayed",
		attempts:   opts.Name + ":attempts",
	}
}

// MaxAttempts returns the configured number of attempts per voucher.
func (q *Queue) MaxAttempts() int { return q.opts.Attempts }

// Enqueue pushes a new entry for the voucher onto the pending list.
func (q *Queue) Enqueue(ctx context.Context, voucherID id.ID) error {
	if err := q.client.LPush(ctx, q.pending, entry(voucherID)).Err(); err != nil {
		return fmt.Errorf("enqueue voucher %s: %w", voucherID, err)
	}
	return nil
}

// Dequeue promotes due retries, then blocks up to timeout for the next id.
// It returns nil, nil when nothing arrived in time.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	if _, err := q.PromoteDue(ctx); err != nil {
		return nil, err
	}

	raw, err := q.client.BLMove(ctx, q.pending, q.processing, "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}

	vid, err := parseEntry(raw)
	if err != nil {
		// Not ours; drop it so it cannot block the processing list.
		q.client.LRem(ctx, q.processing, 1, raw)
		return nil, fmt.Errorf("malformed queue entry %q: %w", raw, err)
	}

	attempt, err := q.client.HIncrBy(ctx, q.attempts, raw, 1).Result()
	if err != nil {
		return nil, fmt.Errorf("count attempt: %w", err)
	}
	return &Delivery{VoucherID: vid, Attempt: int(attempt), raw: raw}, nil
}

func entry(voucherID id.ID) string {
	return voucherID.String() + "/" + id.New().String()
}

// parseEntry returns the voucher id of an entry. Bare ids are accepted.
func parseEntry(raw string) (id.ID, error) {
	vid, _, _ := strings.Cut(raw, "/")
	return id.Parse(vid)
}

// Final reports whether d is the last attempt the queue will make.
func (q *Queue) Final(d *Delivery) bool {
	return d.Attempt >= q.opts.Attempts
}

// Ack removes a finished delivery and forgets its attempt count. Other
// entries of the same voucher keep theirs.
func (q *Queue) Ack(ctx context.Context, d *Delivery) error {
	_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, q.processing, 1, d.raw)
		p.HDel(ctx, q.attempts, d.raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ack voucher %s: %w", d.VoucherID, err)
	}
	return nil
}

// Retry schedules d for another attempt after the backoff delay. When d was
// the final attempt it is acknowledged instead and Retry returns false.
func (q *Queue) Retry(ctx context.Context, d *Delivery) (bool, error) {
	if q.Final(d) {
		return false, q.Ack(ctx, d)
	}

	due := q.now().Add(q.Backoff(d.Attempt))
	_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, q.delayed, redis.Z{Score: float64(due.UnixMilli()), Member: d.raw})
		p.LRem(ctx, q.processing, 1, d.raw)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("schedule retry of voucher %s: %w", d.VoucherID, err)
	}
	return true, nil
}

// Backoff returns base × 2^(attempt-1).
func (q *Queue) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return q.opts.Backoff << (attempt - 1)
}

// PromoteDue moves retries whose time has come back to pending.
func (q *Queue) PromoteDue(ctx context.Context) (int, error) {
	upTo := strconv.FormatInt(q.now().UnixMilli(), 10)
	due, err := q.client.ZRangeByScore(ctx, q.delayed, &redis.ZRangeBy{Min: "-inf", Max: upTo}).Result()
	if err != nil {
		return 0, fmt.Errorf("read delayed: %w", err)
	}

	n := 0
	for _, raw := range due {
		// Only the consumer whose ZREM wins pushes the id.
		removed, err := q.client.ZRem(ctx, q.delayed, raw).Result()
		if err != nil {
			return n, fmt.Errorf("promote %s: %w", raw, err)
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.pending, raw).Err(); err != nil {
			return n, fmt.Errorf("promote %s: %w", raw, err)
		}
		n++
	}
	return n, nil
}

// RequeueOrphans moves entries left in processing by a crashed consumer back
// to pending. Call it once on start, before consumers run.
func (q *Queue) RequeueOrphans(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.LMove(ctx, q.processing, q.pending, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("requeue orphans: %w", err)
		}
		n++
	}
}

// Lock takes the per-voucher export lock.
func (q *Queue) Lock(ctx context.Context, voucherID id.ID) (*redislock.Lock, error) {
	lock, err := q.locker.Obtain(ctx, q.opts.Name+":lock:"+voucherID.String(), q.opts.LockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLocked
	}
	if err != nil {
		return nil, fmt.Errorf("lock voucher %s: %w", voucherID, err)
	}
	return lock, nil
}

// Stats holds queue lengths.
type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Delayed    int64 `json:"delayed"`
}

// Stats returns the current queue lengths.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	var pending, processing *redis.IntCmd
	var delayed *redis.IntCmd
	_, err := q.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		pending = p.LLen(ctx, q.pending)
		processing = p.LLen(ctx, q.processing)
		delayed = p.ZCard(ctx, q.delayed)
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	return Stats{Pending: pending.Val(), Processing: processing.Val(), Delayed: delayed.Val()}, nil
}

// Ping checks the Redis connection.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}
