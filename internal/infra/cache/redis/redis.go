package redisx

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache implements domain.Cache on top of a single Redis client.
// Every key is stored under Config.Prefix so the database can be shared.
type Cache struct {
	rdb    *redis.Client
	prefix string
	logger *log.Logger
}

type Config struct {
	Addr     string
	DB       int
	Password string
	Prefix   string
}

func New(cfg Config, logger *log.Logger) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		DB:           cfg.DB,
		Password:     cfg.Password,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	return &Cache{rdb: rdb, prefix: cfg.Prefix, logger: logger}
}

func (c *Cache) key(k string) string { return c.prefix + k }

func (c *Cache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		c.logger.Printf("PING failed: %v", err)
		return err
	}
	c.logger.Println("PING ok")
	return nil
}

func (c *Cache) Close() {
	if c.rdb == nil {
		c.logger.Println("nothing to close")
		return
	}
	if err := c.rdb.Close(); err != nil {
		c.logger.Printf("error while closing: %v", err)
		return
	}
	c.logger.Println("closed")
}

// Get returns (nil, nil) when the key does not exist.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.logger.Printf("GET %q: miss", key)
		return nil, nil
	case err != nil:
		c.logger.Printf("GET %q: error: %v", key, err)
		return nil, err
	}
	c.logger.Printf("GET %q: hit (%d bytes)", key, len(b))
	return b, nil
}

func (c *Cache) Set(ctx context.Context, key string, val []byte, ttlSeconds int) error {
	var ttl time.Duration
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	if err := c.rdb.Set(ctx, c.key(key), val, ttl).Err(); err != nil {
		c.logger.Printf("SET %q failed: %v", key, err)
		return err
	}
	c.logger.Printf("SET %q ok (ttl=%s)", key, ttl)
	return nil
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	n, err := c.rdb.Del(ctx, full...).Result()
	if err != nil {
		c.logger.Printf("DEL %v failed: %v", keys, err)
		return err
	}
	c.logger.Printf("DEL %v: deleted=%d", keys, n)
	return nil
}
