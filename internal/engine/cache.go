package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "perm:effective:"

// Cache is a Redis backed read-through view of effective permission
// sets, one entry per user with a configurable TTL. Misses for the same
// user are coalesced through singleflight so a stampede of checks
// computes the set once. Invalidation deletes the single user key, so
// unrelated users are never serialized against each other.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &Cache{client: client, ttl: ttl}
}

// TTL reports the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Fetch loads the user's effective set from Redis, computing and storing
// it via loader on a miss. A nil client degrades to loader-only, which
// keeps checks working when Redis is down at the cost of recomputation.
func (c *Cache) Fetch(ctx context.Context, userID string, loader func(context.Context) (EffectiveSet, error)) (EffectiveSet, error) {
	if loader == nil {
		return EffectiveSet{}, errors.New("engine: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key := cacheKeyPrefix + userID
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var set EffectiveSet
		if err := json.Unmarshal(payload, &set); err == nil {
			return set, nil
		}
		// Corrupt entry: drop it and recompute.
		_ = c.client.Del(ctx, key).Err()
	} else if err != redis.Nil {
		return EffectiveSet{}, fmt.Errorf("engine: cache get: %w", err)
	}

	result := c.group.DoChan(key, func() (interface{}, error) {
		// The computation is shared with coalesced waiters, so it must
		// not die with the first caller's context.
		loadCtx := context.WithoutCancel(ctx)
		set, err := loader(loadCtx)
		if err != nil {
			return EffectiveSet{}, err
		}
		raw, err := json.Marshal(set)
		if err != nil {
			return EffectiveSet{}, err
		}
		if err := c.client.Set(loadCtx, key, raw, c.ttl).Err(); err != nil {
			return EffectiveSet{}, fmt.Errorf("engine: cache set: %w", err)
		}
		return set, nil
	})
	select {
	case <-ctx.Done():
		return EffectiveSet{}, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return EffectiveSet{}, res.Err
		}
		return res.Val.(EffectiveSet), nil
	}
}

// Invalidate drops the user's cached entry. Bounds staleness to zero for
// the mutating path; concurrent readers may observe the old set for up
// to the TTL.
func (c *Cache) Invalidate(ctx context.Context, userID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, cacheKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("engine: cache invalidate: %w", err)
	}
	return nil
}
