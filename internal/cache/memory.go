package cache

import (
	"context"
	"sync"
)

type InMemory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewInMemory() *InMemory {
	return &InMemory{data: make(map[string]string)}
}

func (c *InMemory) Get(_ context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return value, nil
}

func (c *InMemory) Set(_ context.Context, key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = value
	return nil
}

func (c *InMemory) Close() {}
