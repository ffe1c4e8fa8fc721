package cachestore

import (
	"context"
)

type CacheStore interface {
	// Returns the empty string on a cache miss.
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}

func cacheKey(name, key string) string {
	return name + "/" + key
}
