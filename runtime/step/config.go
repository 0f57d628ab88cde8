package step

import (
	"fmt"
	"time"
)

// BackpressureStrategy governs how a step's input buffer behaves when full.
type BackpressureStrategy int

const (
	// Buffer suspends producers once the buffer reaches capacity. Default.
	Buffer BackpressureStrategy = iota
	// Drop silently discards items produced while the buffer is full.
	Drop
)

// String returns the canonical name of the backpressure strategy.
func (b BackpressureStrategy) String() string {
	switch b {
	case Buffer:
		return "BUFFER"
	case Drop:
		return "DROP"
	default:
		return "UNKNOWN"
	}
}

// ParseBackpressureStrategy parses a pipeline.defaults.backpressure-strategy
// config value (case-insensitive).
func ParseBackpressureStrategy(s string) (BackpressureStrategy, error) {
	switch s {
	case "BUFFER", "buffer", "":
		return Buffer, nil
	case "DROP", "drop":
		return Drop, nil
	default:
		return Buffer, fmt.Errorf("step: unknown backpressure strategy %q", s)
	}
}

const (
	// DefaultRetryLimit is the default number of retry attempts after the
	// first failure.
	DefaultRetryLimit = 3
	// DefaultRetryWait is the default initial backoff delay.
	DefaultRetryWait = 2 * time.Second
	// DefaultMaxBackoff caps exponential backoff growth.
	DefaultMaxBackoff = 30 * time.Second
	// DefaultBackpressureBufferCapacity is the default bounded-buffer size.
	DefaultBackpressureBufferCapacity = 128
)

// Config holds per-step tunables. Zero-value Config is not valid; use
// DefaultConfig and override individual fields, or Option functions when
// building a step's effective configuration from profile defaults plus
// per-step overrides.
type Config struct {
	RetryLimit   int
	RetryWait    time.Duration
	MaxBackoff   time.Duration
	Jitter       bool
	BackpressureBufferCapacity int
	BackpressureStrategy       BackpressureStrategy
	RecoverOnFailure           bool
}

// DefaultConfig returns a Config populated with spec defaults.
func DefaultConfig() Config {
	return Config{
		RetryLimit:                 DefaultRetryLimit,
		RetryWait:                  DefaultRetryWait,
		MaxBackoff:                 DefaultMaxBackoff,
		Jitter:                     false,
		BackpressureBufferCapacity: DefaultBackpressureBufferCapacity,
		BackpressureStrategy:       Buffer,
		RecoverOnFailure:           false,
	}
}

// Option mutates a Config in place. Options are applied in order, so later
// options win; this is how per-step overrides are layered on top of profile
// defaults.
type Option func(*Config)

// WithRetryLimit overrides the retry limit.
func WithRetryLimit(n int) Option {
	return func(c *Config) { c.RetryLimit = n }
}

// WithRetryWait overrides the initial retry backoff.
func WithRetryWait(d time.Duration) Option {
	return func(c *Config) { c.RetryWait = d }
}

// WithMaxBackoff overrides the backoff ceiling.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Config) { c.MaxBackoff = d }
}

// WithJitter enables or disables +/-50% backoff jitter.
func WithJitter(enabled bool) Option {
	return func(c *Config) { c.Jitter = enabled }
}

// WithBackpressureBufferCapacity overrides the bounded buffer size.
func WithBackpressureBufferCapacity(n int) Option {
	return func(c *Config) { c.BackpressureBufferCapacity = n }
}

// WithBackpressureStrategy overrides the backpressure strategy.
func WithBackpressureStrategy(s BackpressureStrategy) Option {
	return func(c *Config) { c.BackpressureStrategy = s }
}

// WithRecoverOnFailure enables or disables DLQ consultation after final retry failure.
func WithRecoverOnFailure(enabled bool) Option {
	return func(c *Config) { c.RecoverOnFailure = enabled }
}

// NewConfig builds an effective Config starting from DefaultConfig and
// applying options in order.
func NewConfig(opts ...Option) Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
