package kv

import "context"

// Store is the key-value collaborator behind message threads, presence
// records and study-group documents. Values are opaque JSON blobs.
//
// Get returns (nil, nil) for a missing key. A single Set of one key is
// atomic; nothing spanning two keys or two round trips is.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	GetByPrefix(ctx context.Context, prefix string) ([][]byte, error)
}
