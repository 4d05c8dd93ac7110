package cache

import (
	"sync"
	"time"
)

// Memory is a mutex guarded map. Entries are replaced wholesale and never
// evicted, only shadowed by their expiry.
type Memory[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	now     Clock
}

func NewMemory[T any]() *Memory[T] {
	return NewMemoryWithClock[T](time.Now)
}

func NewMemoryWithClock[T any](now Clock) *Memory[T] {
	return &Memory[T]{
		entries: make(map[string]entry[T]),
		now:     now,
	}
}

func (m *Memory[T]) Get(key string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || !e.fresh(m.now()) {
		var zero T
		return zero, false
	}
	return e.Value, true
}

func (m *Memory[T]) Set(key string, value T, ttl time.Duration) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry[T]{CapturedAt: now, ExpiresAt: now.Add(ttl), Value: value}
}
