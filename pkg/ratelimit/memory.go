package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryCounter implements Counter in process memory. It only sees
// requests handled by its own process, so it is correct for a
// single-instance deployment and an undercount everywhere else. Use the
// Redis counter when running more than one replica.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryCounter builds an empty in-process counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Incr increments the key under a mutex, creating or resetting the entry
// when absent or expired. Expired entries for other keys are dropped
// opportunistically to bound the map size.
func (c *MemoryCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry, ok := c.entries[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &memoryEntry{expiresAt: now.Add(ttl)}
		c.entries[key] = entry
	}
	entry.count++

	if len(c.entries) > 1024 {
		for k, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, k)
			}
		}
	}

	return entry.count, nil
}
