package cache

import (
	"context"
	"time"
)

// MemoryCache is an in-process Cache fake for tests.
type MemoryCache struct {
	values map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{values: make(map[string]string)}
}

func (m *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryCache) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	m.values[key] = value
	return nil
}
