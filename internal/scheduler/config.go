package scheduler

import "time"

// demotionCadence is how many cycles apart successive polls of a demoted
// source are (it is polled on every 8th cycle), per SPEC_FULL.md §4.4.
const demotionCadence = 8

// Config carries the scheduler's tunable knobs, including the three open
// questions spec.md §9 left for an implementer to decide.
type Config struct {
	// HighPoolZeroThreshold is the pool-0 entropy byte count that triggers
	// a reseed at priority High. Default 48.
	HighPoolZeroThreshold uint64
	// NormalMinPoolThreshold is the minimum per-pool entropy byte count
	// that triggers a reseed at priority Normal. Default 96.
	NormalMinPoolThreshold uint64
	// LowMinPoolThreshold is the minimum per-pool entropy byte count that
	// triggers a reseed at priority Low. Default 256.
	LowMinPoolThreshold uint64

	// HighSleep, NormalSleep, and LowSleep are the inter-cycle sleep
	// durations for each priority, interruptible by wake or stop.
	HighSleep   time.Duration
	NormalSleep time.Duration
	LowSleep    time.Duration

	// EmptySourcesSleep is how long the worker waits before retrying when
	// the registry snapshot is empty.
	EmptySourcesSleep time.Duration

	// MinReseedInterval is the Fortuna inter-reseed floor (spec.md §9 open
	// question (c), now a concrete, configurable default). A reseed never
	// fires sooner than this after the previous one, even if the entropy
	// threshold for the current priority is already satisfied. Zero
	// disables the floor.
	MinReseedInterval time.Duration

	// ParallelPollBound bounds how many sources are polled concurrently
	// per cycle (spec.md §9 open question (b)). 0 or 1 means sequential.
	ParallelPollBound int

	// SourceFaultDemotionThreshold is the number of consecutive faults
	// after which a source is demoted to being polled only once every
	// demotionCadence cycles (spec.md §9 open question (a)). 0 disables
	// demotion.
	SourceFaultDemotionThreshold int
}

// DefaultConfig returns the thresholds and sleep intervals from spec.md §4.4,
// with the three open-question knobs set to their documented defaults.
func DefaultConfig() Config {
	return Config{
		HighPoolZeroThreshold:        48,
		NormalMinPoolThreshold:       96,
		LowMinPoolThreshold:          256,
		HighSleep:                    time.Millisecond,
		NormalSleep:                  5 * time.Second,
		LowSleep:                     30 * time.Second,
		EmptySourcesSleep:            100 * time.Millisecond,
		MinReseedInterval:            100 * time.Millisecond,
		ParallelPollBound:            1,
		SourceFaultDemotionThreshold: 8,
	}
}

// Option customizes a Config produced by DefaultConfig.
type Option func(*Config)

// WithMinReseedInterval overrides the inter-reseed floor.
func WithMinReseedInterval(d time.Duration) Option {
	return func(c *Config) { c.MinReseedInterval = d }
}

// WithParallelPollBound overrides the bounded parallelism used for polling
// sources within a single cycle.
func WithParallelPollBound(n int) Option {
	return func(c *Config) { c.ParallelPollBound = n }
}

// WithSourceFaultDemotionThreshold overrides how many consecutive faults a
// source tolerates before being demoted. 0 disables demotion entirely.
func WithSourceFaultDemotionThreshold(n int) Option {
	return func(c *Config) { c.SourceFaultDemotionThreshold = n }
}

// WithThresholds overrides the three priority reseed thresholds.
func WithThresholds(high, normal, low uint64) Option {
	return func(c *Config) {
		c.HighPoolZeroThreshold = high
		c.NormalMinPoolThreshold = normal
		c.LowMinPoolThreshold = low
	}
}

// WithSleepIntervals overrides the three inter-cycle sleep durations.
func WithSleepIntervals(high, normal, low time.Duration) Option {
	return func(c *Config) {
		c.HighSleep = high
		c.NormalSleep = normal
		c.LowSleep = low
	}
}

// NewConfig builds a Config from DefaultConfig with the given options applied.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
