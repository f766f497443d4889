package circuit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNotRegistered is returned when stats are requested for a name no caller
// has referenced yet.
var ErrNotRegistered = errors.New("circuit: breaker not registered")

// Registry owns the set of named breakers sharing one store. It is an
// explicit value held by the composition root, not a package global; call
// sites receive it by reference.
type Registry struct {
	store    Store
	defaults Config
	logger   *zerolog.Logger
	events   EventPublisher

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry constructs a registry. Breakers created without an explicit
// config inherit defaults.
func NewRegistry(store Store, defaults Config) *Registry {
	return &Registry{
		store:    store,
		defaults: defaults.normalized(),
		breakers: make(map[string]*Breaker),
	}
}

// WithLogger sets the logger inherited by every breaker the registry creates.
func (r *Registry) WithLogger(logger zerolog.Logger) *Registry {
	r.logger = &logger
	return r
}

// WithEvents sets the publisher inherited by every breaker the registry
// creates.
func (r *Registry) WithEvents(events EventPublisher) *Registry {
	r.events = events
	return r
}

// Get returns the breaker registered under name, creating it lazily. The
// first caller's config wins: later calls with a different config for the
// same name do not reconfigure the existing breaker. A nil config means the
// registry defaults.
func (r *Registry) Get(name string, cfg *Config) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if breaker, ok := r.breakers[name]; ok {
		return breaker
	}
	effective := r.defaults
	if cfg != nil {
		effective = cfg.normalized()
	}
	breaker := NewBreaker(name, effective, r.store)
	if r.logger != nil {
		breaker = breaker.WithLogger(*r.logger)
	}
	if r.events != nil {
		breaker = breaker.WithEvents(r.events)
	}
	r.breakers[name] = breaker
	return breaker
}

// Execute runs op under the breaker registered for name, creating the
// breaker on first use.
func (r *Registry) Execute(ctx context.Context, name string, op Operation, cfg *Config) (any, error) {
	return r.Get(name, cfg).Execute(ctx, op)
}

// Stats returns the snapshot for one registered breaker.
func (r *Registry) Stats(ctx context.Context, name string) (Stats, error) {
	r.mu.Lock()
	breaker, ok := r.breakers[name]
	r.mu.Unlock()
	if !ok {
		return Stats{}, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return breaker.Stats(ctx)
}

// AllStats snapshots every registered breaker, ordered by name.
func (r *Registry) AllStats(ctx context.Context) ([]Stats, error) {
	breakers := r.snapshot()
	stats := make([]Stats, 0, len(breakers))
	for _, breaker := range breakers {
		s, err := breaker.Stats(ctx)
		if err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// Reset clears one breaker by name. Unknown names are a no-op.
func (r *Registry) Reset(ctx context.Context, name string) error {
	r.mu.Lock()
	breaker, ok := r.breakers[name]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return breaker.Reset(ctx)
}

// ResetAll clears every registered breaker.
func (r *Registry) ResetAll(ctx context.Context) error {
	var joined error
	for _, breaker := range r.snapshot() {
		if err := breaker.Reset(ctx); err != nil {
			joined = errors.Join(joined, err)
		}
	}
	return joined
}

func (r *Registry) snapshot() []*Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, breaker := range r.breakers {
		breakers = append(breakers, breaker)
	}
	sort.Slice(breakers, func(i, j int) bool { return breakers[i].name < breakers[j].name })
	return breakers
}
