package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Event is one emitted platform event.
type Event struct {
	Topic      string         `json:"topic"`
	Service    string         `json:"service"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Notifier reacts to emitted events (logging, webhooks, metrics, etc.).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Bus fans emitted events out to downstream notifiers. Delivery is
// best-effort: notifier errors are joined and returned for the caller to
// log, never to fail a request on.
type Bus struct {
	Notifiers []Notifier
	Logger    zerolog.Logger
}

// Emit stamps and dispatches the event to all configured notifiers.
func (b *Bus) Emit(ctx context.Context, topic, service string, payload map[string]any) error {
	if b == nil {
		return errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return errors.New("events: topic is required")
	}
	event := Event{
		Topic:      topic,
		Service:    strings.TrimSpace(service),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, event); err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", err))
		}
	}
	if joined != nil {
		b.Logger.Warn().Err(joined).Str("topic", topic).Msg("event delivery incomplete")
	}
	return joined
}

// LogNotifier renders events through zerolog.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, event Event) error {
	n.Logger.Info().
		Str("topic", event.Topic).
		Str("service", event.Service).
		Time("occurred_at", event.OccurredAt).
		Interface("payload", event.Payload).
		Msg("platform_event")
	return nil
}
