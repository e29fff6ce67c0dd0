// Package cache is a small string cache used to avoid hammering metadata
// services with repeated lookups. Backends: in-memory, Redis, and a flat
// file for installations without Redis.
package cache

import (
	"context"
	"errors"
)

var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Close()
}
