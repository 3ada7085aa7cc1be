// Package redisstore is a jus.Cache backed by Redis. It holds a
// redis.Pool rather than a single connection so Get/Put from the cache
// and network dispatchers can run concurrently.
package redisstore

import (
	"errors"

	"github.com/gomodule/redigo/redis"

	"github.com/gitter-badger/jus"
)

// Cache is a jus.Cache implementation storing entries in Redis.
type Cache struct {
	pool *redis.Pool
}

// New returns a Cache dialing addr on demand through a pooled connection.
func New(addr string) *Cache {
	return &Cache{pool: &redis.Pool{
		MaxIdle:   8,
		MaxActive: 64,
		Dial:      func() (redis.Conn, error) { return redis.Dial("tcp", addr) },
	}}
}

// NewWithPool wraps an already-configured redis.Pool.
func NewWithPool(pool *redis.Pool) *Cache {
	return &Cache{pool: pool}
}

func cacheKey(key string) string {
	return "jus:" + key
}

// Initialize is a no-op: the pool dials lazily on first Get/Set.
func (c *Cache) Initialize() error { return nil }

// Get returns the decoded entry for key, or ok=false if absent or corrupt.
func (c *Cache) Get(key string) (*jus.Entry, bool) {
	conn := c.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", cacheKey(key)))
	if err != nil {
		return nil, false
	}
	_, entry, err := jus.DecodeEntry(data)
	if err != nil {
		c.Remove(key)
		return nil, false
	}
	return entry, true
}

// Put stores entry under key.
func (c *Cache) Put(key string, entry *jus.Entry) error {
	data, err := jus.EncodeEntry(key, entry)
	if err != nil {
		return err
	}
	conn := c.pool.Get()
	defer conn.Close()
	_, err = conn.Do("SET", cacheKey(key), data)
	return err
}

// Invalidate loads the entry, forces its TTLs into the past, and rewrites
// it. A miss is a silent no-op.
func (c *Cache) Invalidate(key string, fullExpire bool) {
	entry, ok := c.Get(key)
	if !ok {
		return
	}
	jus.InvalidateEntry(entry, fullExpire)
	_ = c.Put(key, entry)
}

// Remove deletes the entry for key.
func (c *Cache) Remove(key string) {
	conn := c.pool.Get()
	defer conn.Close()
	_, _ = conn.Do("DEL", cacheKey(key))
}

// Clear is unsupported for the same reason as memcachestore: Redis has no
// primitive to enumerate only this cache's keys without a full KEYS scan,
// which is unsafe to run against a production instance.
func (c *Cache) Clear() error {
	return errors.New("redisstore: Clear is unsupported, use Invalidate/Remove or a dedicated Redis DB")
}
