// Package numerator defines the contract for human-readable document numbers
// (orders, vouchers). The PostgreSQL implementation lives in infrastructure/numerator.
package numerator

// Strategy defines how sequence values are reserved.
type Strategy int

const (
	// StrategyStrict increments the sequence row for every number.
	// Gapless when the caller's transaction commits; numbers are never reused.
	StrategyStrict Strategy = iota

	// StrategyCached reserves ranges of numbers in memory.
	// Unique but may leave gaps after a restart.
	StrategyCached
)

// Options configure number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values reserved at once by StrategyCached (default 50).
	RangeSize int64
}

// DefaultOptions returns strict numbering.
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Reset periods.
const (
	ResetYearly  = "year"
	ResetMonthly = "month"
	ResetNever   = "never"
)

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g. "ORD")
	Prefix string

	// IncludeYear adds the period year to the number
	IncludeYear bool

	// PadWidth is the minimum width of the counter (default 6)
	PadWidth int

	// ResetPeriod restarts the counter: "year", "month" or "never"
	ResetPeriod string
}

// DefaultConfig returns yearly numbering such as ORD-2026-000001.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    6,
		ResetPeriod: ResetYearly,
	}
}

// OrderConfig is the numbering used for purchase orders.
func OrderConfig() Config {
	return DefaultConfig("ORD")
}
