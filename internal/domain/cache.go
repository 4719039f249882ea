package domain

import "context"

// Cache keys live here so they do not spread across packages.
func CacheKeyFile(id string) string         { return "file:" + id }
func CacheKeyFilePath(fileID string) string { return "filepath:" + fileID }

// Cache is a plain k/v store. Implemented by Redis.
// Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttlSeconds int) error
	Del(ctx context.Context, keys ...string) error
	Ping(context.Context) error
	Close()
}
