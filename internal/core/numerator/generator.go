package numerator

import (
	"context"
	"time"
)

// Generator generates unique sequential numbers.
type Generator interface {
	// GetNextNumber returns the next number for cfg in the given period.
	// With StrategyStrict the reservation joins the transaction in ctx, so a
	// rolled back order releases nothing and a committed one never shares its number.
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber overrides the current counter value (data migration).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
