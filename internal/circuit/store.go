package circuit

import (
	"context"
	"time"
)

// Record is a point-in-time view of one breaker identity. Every Execute call
// reads exactly one Record so the state check and the transition decision
// always work against the same snapshot.
type Record struct {
	State     State
	OpenedAt  time.Time // zero when the breaker has not opened
	Failures  int64     // trial counter, meaningful while half-open
	Successes int64     // trial counter, meaningful while half-open
	Window    []Sample
}

// Store persists breaker state shared across processes. All mutations are
// atomic store primitives; the breaker itself never serializes callers.
//
// Store errors are not shielded: they propagate to the caller unchanged,
// which makes the breaker fail closed while the store is unreachable (the
// wrapped operation is not invoked when the snapshot read fails).
type Store interface {
	// Snapshot reads the full record for a breaker name. Names that were
	// never written resolve to a closed record with an empty window.
	Snapshot(ctx context.Context, name string) (Record, error)

	// RecordSample appends an outcome to the sliding window, prunes samples
	// older than WindowHorizon and trims the window to keep entries,
	// dropping the oldest.
	RecordSample(ctx context.Context, name string, sample Sample, keep int) error

	// IncrFailures atomically increments the trial failure counter and
	// returns the new value.
	IncrFailures(ctx context.Context, name string) (int64, error)

	// IncrSuccesses atomically increments the trial success counter and
	// returns the new value.
	IncrSuccesses(ctx context.Context, name string) (int64, error)

	// SetOpen transitions the identity to open: records openedAt and clears
	// both trial counters.
	SetOpen(ctx context.Context, name string, openedAt time.Time) error

	// SetHalfOpen transitions the identity to half-open: clears both trial
	// counters but keeps openedAt until the breaker closes.
	SetHalfOpen(ctx context.Context, name string) error

	// SetClosed transitions the identity to closed: clears openedAt and
	// both trial counters. The window is left intact.
	SetClosed(ctx context.Context, name string) error

	// TryClaimProbe attempts to acquire the half-open probe claim for the
	// identity. It returns true for exactly one caller per ttl.
	TryClaimProbe(ctx context.Context, name string, ttl time.Duration) (bool, error)

	// Reset deletes the identity entirely, returning it to the initial
	// closed state with an empty window.
	Reset(ctx context.Context, name string) error
}
