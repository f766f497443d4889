package circuit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var breakerNopLogger = zerolog.Nop()

// Operation is the zero-argument call guarded by a breaker. The breaker
// invokes it at most once per Execute and imposes no timeout on it; timeout
// enforcement belongs to the caller or a surrounding policy layer.
type Operation func(ctx context.Context) (any, error)

// Topics published on state transitions.
const (
	TopicOpened = "circuit.opened"
	TopicClosed = "circuit.closed"
)

// EventPublisher receives circuit.opened / circuit.closed notifications.
// Publishing is best-effort: failures are logged and never surface to the
// guarded call.
type EventPublisher interface {
	Emit(ctx context.Context, topic, service string, payload map[string]any) error
}

// Breaker guards calls to one named flaky dependency. State lives in the
// Store, so processes sharing a store and a name share the circuit. The
// breaker performs no background work; every check and transition happens
// inside a caller's Execute.
type Breaker struct {
	name   string
	cfg    Config
	store  Store
	logger *zerolog.Logger
	events EventPublisher
}

// NewBreaker constructs a breaker for the named service. Zero or negative
// config values fall back to the documented defaults.
func NewBreaker(name string, cfg Config, store Store) *Breaker {
	return &Breaker{
		name:  name,
		cfg:   cfg.normalized(),
		store: store,
	}
}

// WithLogger configures the logger used for transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.logger = &logger
	return b
}

// WithEvents configures the publisher notified on open/close transitions.
func (b *Breaker) WithEvents(events EventPublisher) *Breaker {
	b.events = events
	return b
}

// Name returns the service name the breaker guards.
func (b *Breaker) Name() string { return b.name }

// Config returns the breaker's effective configuration.
func (b *Breaker) Config() Config { return b.cfg }

// Execute runs op under the breaker. While the circuit is open and the open
// timeout has not elapsed the operation is not invoked: the configured
// fallback result is returned, or an *OpenError when there is none. Once the
// timeout elapses the breaker moves to half-open and op runs as a trial.
// Errors from op pass through unchanged; store errors also pass through,
// which means the breaker fails closed when the shared store is unreachable.
func (b *Breaker) Execute(ctx context.Context, op Operation) (any, error) {
	rec, err := b.store.Snapshot(ctx, b.name)
	if err != nil {
		return nil, err
	}

	state := rec.State
	if state == StateOpen {
		if rec.OpenedAt.IsZero() || time.Since(rec.OpenedAt) < b.cfg.OpenTimeout {
			return b.reject(ctx)
		}
		if b.cfg.SingleProbe {
			claimed, err := b.store.TryClaimProbe(ctx, b.name, b.cfg.OpenTimeout)
			if err != nil {
				return nil, err
			}
			if !claimed {
				return b.reject(ctx)
			}
		}
		// Trial counters reset here; openedAt stays until the breaker
		// closes. No event is emitted for this transition.
		if err := b.store.SetHalfOpen(ctx, b.name); err != nil {
			return nil, err
		}
		b.observeTransition(ctx, StateOpen, StateHalfOpen)
		state = StateHalfOpen
	}

	result, opErr := op(ctx)
	if opErr != nil {
		if err := b.recordFailure(ctx, state); err != nil {
			return nil, err
		}
		return nil, opErr
	}
	if err := b.recordSuccess(ctx, state); err != nil {
		return nil, err
	}
	return result, nil
}

func (b *Breaker) reject(ctx context.Context) (any, error) {
	BreakerRequests.WithLabelValues(b.name, statusRejected).Inc()
	if b.cfg.Fallback != nil {
		return b.cfg.Fallback(ctx)
	}
	return nil, &OpenError{Service: b.name}
}

func (b *Breaker) recordSuccess(ctx context.Context, state State) error {
	now := time.Now()
	if err := b.store.RecordSample(ctx, b.name, Sample{At: now, Failure: false}, b.cfg.WindowSize); err != nil {
		return err
	}
	BreakerRequests.WithLabelValues(b.name, statusSuccess).Inc()

	if state == StateHalfOpen {
		successes, err := b.store.IncrSuccesses(ctx, b.name)
		if err != nil {
			return err
		}
		if successes >= int64(b.cfg.SuccessThreshold) {
			if err := b.store.SetClosed(ctx, b.name); err != nil {
				return err
			}
			b.observeTransition(ctx, StateHalfOpen, StateClosed)
			b.publish(ctx, TopicClosed, now)
		}
	}
	return nil
}

func (b *Breaker) recordFailure(ctx context.Context, state State) error {
	now := time.Now()
	if err := b.store.RecordSample(ctx, b.name, Sample{At: now, Failure: true}, b.cfg.WindowSize); err != nil {
		return err
	}
	if _, err := b.store.IncrFailures(ctx, b.name); err != nil {
		return err
	}
	BreakerRequests.WithLabelValues(b.name, statusFailure).Inc()

	if state == StateOpen {
		return nil
	}
	// Fresh snapshot so the decision sees the sample just recorded.
	rec, err := b.store.Snapshot(ctx, b.name)
	if err != nil {
		return err
	}
	BreakerFailureRate.WithLabelValues(b.name).Set(failureRate(rec.Window))
	if !b.shouldOpen(rec) {
		return nil
	}
	if err := b.store.SetOpen(ctx, b.name, now); err != nil {
		return err
	}
	b.observeTransition(ctx, state, StateOpen)
	b.publish(ctx, TopicOpened, now)
	return nil
}

// shouldOpen evaluates the sliding window against the configured thresholds.
// Below the volume threshold the rate is not trusted and the breaker stays
// put. The window survives state transitions, so samples recorded before an
// open still weigh into the decision once the breaker re-probes, within the
// 60-second horizon.
func (b *Breaker) shouldOpen(rec Record) bool {
	if rec.State == StateOpen {
		return false
	}
	if len(rec.Window) < b.cfg.VolumeThreshold {
		return false
	}
	return failureRate(rec.Window) >= b.cfg.FailureThresholdPct
}

// Stats returns a read-only snapshot of the breaker. Repeated calls without
// intervening executions return identical values.
func (b *Breaker) Stats(ctx context.Context) (Stats, error) {
	rec, err := b.store.Snapshot(ctx, b.name)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		Name:        b.name,
		State:       rec.State,
		FailureRate: failureRate(rec.Window),
		Failures:    rec.Failures,
		Successes:   rec.Successes,
		Total:       len(rec.Window),
		Config:      b.cfg.view(),
	}
	if !rec.OpenedAt.IsZero() {
		openedAt := rec.OpenedAt
		stats.OpenedAt = &openedAt
	}
	return stats, nil
}

// Reset unconditionally clears the breaker back to closed with an empty
// window.
func (b *Breaker) Reset(ctx context.Context) error {
	if err := b.store.Reset(ctx, b.name); err != nil {
		return err
	}
	BreakerState.WithLabelValues(b.name).Set(StateClosed.GaugeValue())
	BreakerFailureRate.WithLabelValues(b.name).Set(0)
	b.loggerFor(ctx).Info().Str("service", b.name).Msg("breaker_reset")
	return nil
}

func (b *Breaker) observeTransition(ctx context.Context, from, to State) {
	BreakerState.WithLabelValues(b.name).Set(to.GaugeValue())
	BreakerTransitions.WithLabelValues(b.name, from.String(), to.String()).Inc()

	logger := b.loggerFor(ctx)
	evt := logger.Info().
		Str("service", b.name).
		Str("from_state", from.String()).
		Str("to_state", to.String())
	if traceID := traceIDFromContext(ctx); traceID != "" {
		evt = evt.Str("trace_id", traceID)
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) publish(ctx context.Context, topic string, at time.Time) {
	if b.events == nil {
		return
	}
	payload := map[string]any{
		"name":      b.name,
		"timestamp": at.UTC().Format(time.RFC3339Nano),
	}
	if err := b.events.Emit(ctx, topic, b.name, payload); err != nil {
		b.loggerFor(ctx).Warn().Err(err).Str("topic", topic).Msg("publish breaker event")
	}
}

func (b *Breaker) loggerFor(ctx context.Context) *zerolog.Logger {
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger != nil && ctxLogger.GetLevel() != zerolog.Disabled {
		return ctxLogger
	}
	if b.logger == nil {
		return &breakerNopLogger
	}
	return b.logger
}

func traceIDFromContext(ctx context.Context) string {
	span := trace.SpanContextFromContext(ctx)
	if span.IsValid() {
		return span.TraceID().String()
	}
	return ""
}
