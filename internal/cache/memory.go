package cache

import (
	"context"
	"sync"
	"time"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

// Memory is an in-process TTL cache. Entries are evicted lazily on read.
type Memory struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	res     types.Resolution
	expires time.Time
}

// NewMemory builds a memory cache with the given TTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Memory{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (m *Memory) Get(_ context.Context, key string) (*types.Resolution, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	res := entry.res
	return &res, true, nil
}

func (m *Memory) Set(_ context.Context, key string, res *types.Resolution) error {
	if res == nil {
		return nil
	}
	m.mu.Lock()
	m.entries[key] = memoryEntry{res: *res, expires: time.Now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}
