// Package counter holds the per-actor DLP counters. Every consume is one
// atomic check-and-increment, so two concurrent requests can never both pass
// a quota that only one of them fits in.
package counter

import (
	"context"
	"sync"
	"time"

	"regulus/internal/policy/models"
)

// numShards spreads counter keys over independent locks to limit contention
// between unrelated actors.
const numShards = 128

// InMemoryCounterStore is a single-process counter store.
type InMemoryCounterStore struct {
	shards [numShards]shard
}

type shard struct {
	mu       sync.Mutex
	counters map[string]*rollingCounter
}

// rollingCounter resets when its own window has elapsed, measured from the
// last reset rather than a global clock boundary.
type rollingCounter struct {
	count      int
	windowFrom time.Time
}

func New() *InMemoryCounterStore {
	s := &InMemoryCounterStore{}
	for i := range s.shards {
		s.shards[i].counters = make(map[string]*rollingCounter)
	}
	return s
}

// Consume rolls the window if due, then increments when below limit.
// A limit of zero means unlimited.
func (s *InMemoryCounterStore) Consume(_ context.Context, key string, limit int, window time.Duration, now time.Time) (*models.CounterResult, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	c := sh.counters[key]
	if c == nil {
		c = &rollingCounter{windowFrom: now}
		sh.counters[key] = c
	}
	c.roll(now, window)

	allowed := limit == 0 || c.count < limit
	if allowed {
		c.count++
	}
	return c.result(allowed, limit, window), nil
}

// Peek reports whether a consume would pass without changing state.
func (s *InMemoryCounterStore) Peek(_ context.Context, key string, limit int, window time.Duration, now time.Time) (*models.CounterResult, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	view := rollingCounter{windowFrom: now}
	if c := sh.counters[key]; c != nil {
		view = *c
	}
	view.roll(now, window)
	return view.result(limit == 0 || view.count < limit, limit, window), nil
}

// Reset clears the counter for key.
func (s *InMemoryCounterStore) Reset(_ context.Context, key string) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.counters, key)
	return nil
}

// Sweep drops counters whose window elapsed before now. Returns the number
// removed.
func (s *InMemoryCounterStore) Sweep(now time.Time, window time.Duration) int {
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for key, c := range sh.counters {
			if now.Sub(c.windowFrom) >= window {
				delete(sh.counters, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

func (c *rollingCounter) roll(now time.Time, window time.Duration) {
	if now.Sub(c.windowFrom) >= window {
		c.count = 0
		c.windowFrom = now
	}
}

func (c *rollingCounter) result(allowed bool, limit int, window time.Duration) *models.CounterResult {
	return &models.CounterResult{
		Allowed:    allowed,
		Count:      c.count,
		Limit:      limit,
		WindowFrom: c.windowFrom,
		ResetAt:    c.windowFrom.Add(window),
	}
}

func (s *InMemoryCounterStore) shardFor(key string) *shard {
	return &s.shards[hashKey(key)%numShards]
}

// hashKey is FNV-1a.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
