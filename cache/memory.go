package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// sweepInterval is how often Set drops expired entries that were never read again.
const sweepInterval = 10 * time.Second

// Memory is a single-process Store.
type Memory struct {
	mu        sync.Mutex
	items     map[string]memoryEntry
	now       func() time.Time
	nextSweep time.Time
}

// NewMemory returns an empty in-process Store.
func NewMemory() *Memory {
	return &Memory{items: map[string]memoryEntry{}, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[key]
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.items, key)
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if !now.Before(m.nextSweep) {
		for k, e := range m.items {
			if !now.Before(e.expiresAt) {
				delete(m.items, k)
			}
		}
		m.nextSweep = now.Add(sweepInterval)
	}
	m.items[key] = memoryEntry{value: cp, expiresAt: now.Add(ttl)}
}

// Len returns the number of stored entries, expired ones not yet swept included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	m.items = map[string]memoryEntry{}
	m.mu.Unlock()
}
