// Package cachestore is a small read-through cache used for factor
// snapshots, which are expensive cross-table aggregations. Values are JSON
// strings; a miss is an empty string, never an error.
package cachestore

import (
	"context"
)

type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}
