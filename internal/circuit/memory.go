package circuit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps breaker state in process memory. It implements the same
// contract as RedisStore and is meant for tests and single-process
// deployments; circuits held here are not shared with other processes.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
}

type memoryRecord struct {
	state       State
	openedAt    time.Time
	failures    int64
	successes   int64
	window      []Sample
	probedUntil time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*memoryRecord)}
}

func (s *MemoryStore) record(name string) *memoryRecord {
	rec, ok := s.records[name]
	if !ok {
		rec = &memoryRecord{state: StateClosed}
		s.records[name] = rec
	}
	return rec
}

func (s *MemoryStore) Snapshot(_ context.Context, name string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(name)
	cutoff := time.Now().Add(-WindowHorizon)
	window := make([]Sample, 0, len(rec.window))
	for _, sample := range rec.window {
		if sample.At.Before(cutoff) {
			continue
		}
		window = append(window, sample)
	}
	return Record{
		State:     rec.state,
		OpenedAt:  rec.openedAt,
		Failures:  rec.failures,
		Successes: rec.successes,
		Window:    window,
	}, nil
}

func (s *MemoryStore) RecordSample(_ context.Context, name string, sample Sample, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(name)
	rec.window = append(rec.window, sample)
	cutoff := sample.At.Add(-WindowHorizon)
	pruned := rec.window[:0]
	for _, existing := range rec.window {
		if existing.At.Before(cutoff) {
			continue
		}
		pruned = append(pruned, existing)
	}
	rec.window = pruned
	if keep > 0 && len(rec.window) > keep {
		rec.window = append([]Sample(nil), rec.window[len(rec.window)-keep:]...)
	}
	return nil
}

func (s *MemoryStore) IncrFailures(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.record(name)
	rec.failures++
	return rec.failures, nil
}

func (s *MemoryStore) IncrSuccesses(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.record(name)
	rec.successes++
	return rec.successes, nil
}

func (s *MemoryStore) SetOpen(_ context.Context, name string, openedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.record(name)
	rec.state = StateOpen
	rec.openedAt = openedAt
	rec.failures = 0
	rec.successes = 0
	rec.probedUntil = time.Time{}
	return nil
}

func (s *MemoryStore) SetHalfOpen(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.record(name)
	rec.state = StateHalfOpen
	rec.failures = 0
	rec.successes = 0
	return nil
}

func (s *MemoryStore) SetClosed(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.record(name)
	rec.state = StateClosed
	rec.openedAt = time.Time{}
	rec.failures = 0
	rec.successes = 0
	rec.probedUntil = time.Time{}
	return nil
}

func (s *MemoryStore) TryClaimProbe(_ context.Context, name string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultOpenTimeout
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.record(name)
	now := time.Now()
	if now.Before(rec.probedUntil) {
		return false, nil
	}
	rec.probedUntil = now.Add(ttl)
	return true, nil
}

func (s *MemoryStore) Reset(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, name)
	return nil
}
