package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache holds the last fetched product list. The contract is
// invalidate-on-mutation: any successful create/delete/toggle marks the
// cached list stale, and the next read refetches from the backend.
type Cache interface {
	Get(ctx context.Context) ([]Product, bool, error)
	Set(ctx context.Context, products []Product) error
	Invalidate(ctx context.Context) error
}

const redisProductsKey = "storefront:products"

// RedisCache keeps the product list in Redis so multiple storefront
// instances share one invalidation domain.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context) ([]Product, bool, error) {
	raw, err := c.client.Get(ctx, redisProductsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		// Treat a corrupt entry as a miss; the next Set overwrites it.
		return nil, false, nil
	}
	return products, true, nil
}

func (c *RedisCache) Set(ctx context.Context, products []Product) error {
	raw, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("marshal products: %w", err)
	}
	if err := c.client.Set(ctx, redisProductsKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, redisProductsKey).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// MemoryCache is the single-process fallback used when no Redis address is
// configured, and in tests.
type MemoryCache struct {
	mu       sync.Mutex
	products []Product
	valid    bool
	setAt    time.Time
	ttl      time.Duration
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl}
}

func (c *MemoryCache) Get(ctx context.Context) ([]Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid {
		return nil, false, nil
	}
	if c.ttl > 0 && time.Since(c.setAt) > c.ttl {
		c.valid = false
		return nil, false, nil
	}

	cp := make([]Product, len(c.products))
	copy(cp, c.products)
	return cp, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, products []Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.products = make([]Product, len(products))
	copy(c.products, products)
	c.valid = true
	c.setAt = time.Now()
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.products = nil
	c.valid = false
	return nil
}
