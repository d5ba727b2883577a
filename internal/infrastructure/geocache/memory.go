// Package geocache caches resolved addresses, either in Redis or in
// process.
package geocache

import (
	"context"
	"sync"
	"time"

	"github.com/example/route-scheduler/internal/domain/geo"
)

type item[T any] struct {
	value     T
	expiresAt time.Time
}

// TTL is a thread-safe map whose entries expire after a fixed duration.
type TTL[T any] struct {
	mu    sync.RWMutex
	items map[string]item[T]
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
}

// NewTTL starts a janitor goroutine that runs every ttl; call Close to stop it.
func NewTTL[T any](ttl time.Duration) *TTL[T] {
	c := &TTL[T]{
		items: make(map[string]item[T]),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go c.janitor()
	return c
}

func (c *TTL[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[key]
	if !ok || c.now().After(it.expiresAt) {
		var zero T
		return zero, false
	}
	return it.value, true
}

func (c *TTL[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item[T]{value: value, expiresAt: c.now().Add(c.ttl)}
}

func (c *TTL[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *TTL[T]) Close() { close(c.stop) }

func (c *TTL[T]) janitor() {
	t := time.NewTicker(c.ttl)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *TTL[T]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, k)
		}
	}
}

// Memory adapts a TTL cache to the oracle's cache interface.
type Memory struct {
	*TTL[geo.Location]
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{TTL: NewTTL[geo.Location](ttl)}
}

func (m *Memory) Get(_ context.Context, key string) (geo.Location, bool, error) {
	loc, ok := m.TTL.Get(key)
	return loc, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, loc geo.Location) error {
	m.TTL.Set(key, loc)
	return nil
}
