// Package cache holds the per-pipeline result caches. Pipelines only see the
// Cache interface; the process-local Memory cache is the default and Bolt
// keeps entries in a file so they survive restarts.
package cache

import "time"

type Cache[T any] interface {
	// Get returns the value stored under key when it has not expired yet.
	Get(key string) (T, bool)
	Set(key string, value T, ttl time.Duration)
}

// Clock returns the current time. Tests swap it for a fixed one.
type Clock func() time.Time

type entry[T any] struct {
	CapturedAt time.Time `json:"captured_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Value      T         `json:"value"`
}

func (e entry[T]) fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
