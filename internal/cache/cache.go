// Package cache provides the view cache used for the tours and jobs listings.
// Entries are opaque byte slices keyed by view name.
//
// Every key carries a generation that Invalidate bumps. Get reports the
// generation it read, and Set only stores a value if the generation is still
// current, so a fill computed before an invalidation can never overwrite it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crewdesk/console/internal/metrics"
)

// errStaleGeneration aborts a Redis Set whose generation was bumped.
var errStaleGeneration = errors.New("stale generation")

// Redis is a view cache shared by every API instance.
// Keys are namespaced under prefix so several deployments can share a server.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis constructs a Redis cache. A ttl of zero keeps entries until they
// are invalidated.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (c *Redis) key(k string) string {
	return c.prefix + ":" + k
}

func (c *Redis) genKey(k string) string {
	return c.prefix + ":gen:" + k
}

// Get returns the entry for key and the key's current generation; ok is
// false on a miss.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, uint64, bool, error) {
	var genCmd, valCmd *redis.StringCmd
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		genCmd = p.Get(ctx, c.genKey(key))
		valCmd = p.Get(ctx, c.key(key))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, fmt.Errorf("cache.Redis.Get: %w", err)
	}

	gen, err := genCmd.Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, fmt.Errorf("cache.Redis.Get: generation: %w", err)
	}
	b, err := valCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("cache.Redis.Get: %w", err)
	}
	return b, gen, true, nil
}

// Set stores value under key if gen is still the key's generation.
// A stale generation is silently dropped.
func (c *Redis) Set(ctx context.Context, key string, gen uint64, value []byte) error {
	genKey := c.genKey(key)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, c.key(key), value, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStaleGeneration) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache.Redis.Set: %w", err)
	}
	return nil
}

// Invalidate bumps the generation of keys and deletes their entries in one
// transaction.
func (c *Redis) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Incr(ctx, c.genKey(k))
			p.Del(ctx, c.key(k))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache.Redis.Invalidate: %w", err)
	}
	for _, k := range keys {
		metrics.RecordCacheInvalidate(k)
	}
	return nil
}

// Memory is an in-process view cache for single-instance deployments and
// local development.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
	gens    map[string]uint64
}

type memoryEntry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// NewMemory constructs a Memory cache. A ttl of zero keeps entries until
// they are invalidated.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
		gens:    make(map[string]uint64),
	}
}

// Get returns a copy of the entry for key and the key's current generation;
// ok is false on a miss or expiry.
func (c *Memory) Get(_ context.Context, key string) ([]byte, uint64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen := c.gens[key]
	e, ok := c.entries[key]
	if !ok {
		return nil, gen, false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, gen, false, nil
	}
	return append([]byte(nil), e.value...), gen, true, nil
}

// Set stores a copy of value under key if gen is still the key's generation.
func (c *Memory) Set(_ context.Context, key string, gen uint64, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[key] != gen {
		return nil
	}
	e := memoryEntry{value: append([]byte(nil), value...)}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.entries[key] = e
	return nil
}

// Invalidate removes the entries for keys and bumps their generations.
func (c *Memory) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range keys {
		delete(c.entries, k)
		c.gens[k]++
		metrics.RecordCacheInvalidate(k)
	}
	return nil
}
