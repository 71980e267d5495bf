package robot

import (
	"context"
	"sync"
	"time"
)

// Snapshot caches the expensive aggregate state one role reads in full on a
// timed refresh cycle (mappings, mugshot availability, queue backlog). The
// cached value is replaced only by a successful load.
type Snapshot[T any] struct {
	clock  Clock
	period time.Duration
	load   func(ctx context.Context) (T, error)

	mu          sync.Mutex
	value       T
	loaded      bool
	refreshedAt time.Time
}

// NewSnapshot builds a snapshot refreshed by load whenever it is older than period.
func NewSnapshot[T any](clock Clock, period time.Duration, load func(ctx context.Context) (T, error)) *Snapshot[T] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Snapshot[T]{clock: clock, period: period, load: load}
}

// Get returns the cached value, reloading it first when it is stale.
func (s *Snapshot[T]) Get(ctx context.Context) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded && s.clock.Now().Sub(s.refreshedAt) < s.period {
		return s.value, nil
	}
	if err := s.refreshLocked(ctx); err != nil {
		var zero T
		return zero, err
	}
	return s.value, nil
}

// Update mutates the cached value in place, for writes the role itself made
// during a pass. It is a no-op before the first load.
func (s *Snapshot[T]) Update(mutate func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		mutate(&s.value)
	}
}

// Invalidate forces the next Get to reload.
func (s *Snapshot[T]) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}

// RefreshedAt reports when the value was last loaded; zero before the first load.
func (s *Snapshot[T]) RefreshedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return time.Time{}
	}
	return s.refreshedAt
}

func (s *Snapshot[T]) refreshLocked(ctx context.Context) error {
	value, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.value = value
	s.loaded = true
	s.refreshedAt = s.clock.Now()
	return nil
}
