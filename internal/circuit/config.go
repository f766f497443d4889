package circuit

import (
	"context"
	"time"
)

// Fallback substitutes a result when a call is short-circuited. The wrapped
// operation is not invoked in that case.
type Fallback func(ctx context.Context) (any, error)

// Config holds the per-breaker thresholds. A breaker's config is fixed when
// it is first registered under a name; later registrations under the same
// name do not reconfigure it.
type Config struct {
	// FailureThresholdPct is the window failure rate, in percent, that
	// trips the breaker.
	FailureThresholdPct float64
	// SuccessThreshold is the number of successful trials required in
	// half-open state before the breaker closes again.
	SuccessThreshold int
	// OpenTimeout is the minimum time the breaker stays open before a
	// trial request is allowed through.
	OpenTimeout time.Duration
	// WindowSize caps the number of samples retained in the sliding window.
	WindowSize int
	// VolumeThreshold is the minimum sample count before the failure rate
	// is trusted enough to trip the breaker.
	VolumeThreshold int
	// SingleProbe gates the open-to-half-open transition behind an atomic
	// claim so only one concurrent caller probes while the rest keep
	// short-circuiting. Off by default: without it every caller that
	// observes an expired open timeout issues its own trial call.
	SingleProbe bool
	// Fallback, when set, replaces the CircuitOpen error on short-circuited
	// calls.
	Fallback Fallback
}

// Default configuration values.
const (
	DefaultFailureThresholdPct = 50.0
	DefaultSuccessThreshold    = 2
	DefaultOpenTimeout         = 60 * time.Second
	DefaultWindowSize          = 10
	DefaultVolumeThreshold     = 5
)

// DefaultConfig returns the breaker defaults.
func DefaultConfig() Config {
	return Config{
		FailureThresholdPct: DefaultFailureThresholdPct,
		SuccessThreshold:    DefaultSuccessThreshold,
		OpenTimeout:         DefaultOpenTimeout,
		WindowSize:          DefaultWindowSize,
		VolumeThreshold:     DefaultVolumeThreshold,
	}
}

func (c Config) normalized() Config {
	if c.FailureThresholdPct <= 0 {
		c.FailureThresholdPct = DefaultFailureThresholdPct
	}
	if c.FailureThresholdPct > 100 {
		c.FailureThresholdPct = 100
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = DefaultSuccessThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = DefaultOpenTimeout
	}
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.VolumeThreshold <= 0 {
		c.VolumeThreshold = DefaultVolumeThreshold
	}
	return c
}
