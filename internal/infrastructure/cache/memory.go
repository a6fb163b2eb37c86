package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process cache whose entries expire after a fixed TTL
type Memory[T any] struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewMemory creates an in-process cache; a ttl of zero or less disables caching
func NewMemory[T any](ttl time.Duration) *Memory[T] {
	cleanup := 2 * ttl
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Memory[T]{
		cache: gocache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

// Get returns the value stored under key if it has not expired
func (m *Memory[T]) Get(key string) (T, bool) {
	var zero T
	if m.ttl <= 0 {
		return zero, false
	}

	obj, found := m.cache.Get(key)
	if !found {
		return zero, false
	}
	value, ok := obj.(T)
	if !ok {
		return zero, false
	}
	return value, true
}

// Set stores value under key for the configured ttl
func (m *Memory[T]) Set(key string, value T) {
	if m.ttl <= 0 {
		return
	}
	m.cache.Set(key, value, m.ttl)
}

// Delete drops key
func (m *Memory[T]) Delete(key string) {
	m.cache.Delete(key)
}

// Flush drops every entry
func (m *Memory[T]) Flush() {
	m.cache.Flush()
}
