// Package cache provides the Redis-backed read models used by the domain
// services: entity views stored as JSON under typed key prefixes, read
// through to PostgreSQL on a miss and refreshed after every mutation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Client{Client: rdb}, nil
}

// View is a JSON-backed cache bound to one entity type T. TTL zero means
// entries do not expire.
type View[T any] struct {
	client *redis.Client
	ttl    time.Duration
}

func NewView[T any](client *redis.Client, ttl time.Duration) *View[T] {
	return &View[T]{client: client, ttl: ttl}
}

// Get returns (nil, false) on any miss or deserialisation failure; the
// caller falls back to the write store.
func (v *View[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := v.client.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var value T
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		return nil, false
	}
	return &value, true
}

// Set stores value under key. A failed cache write is logged, not returned;
// the write store remains the source of truth.
func (v *View[T]) Set(ctx context.Context, key string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache: marshal error for key %s: %v", key, err)
		return
	}
	if err := v.client.Set(ctx, key, data, v.ttl).Err(); err != nil {
		log.Printf("cache: write error for key %s: %v", key, err)
	}
}

func (v *View[T]) Delete(ctx context.Context, key string) {
	if err := v.client.Del(ctx, key).Err(); err != nil {
		log.Printf("cache: delete error for key %s: %v", key, err)
	}
}
