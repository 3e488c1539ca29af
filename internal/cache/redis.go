package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zsiskos/roadstartire/internal/domain"
)

const notFoundMarker = "notfound"

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

// RedisCache keeps the rendered CURRENT cart per user.
type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, userID int64) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err2 := json.Unmarshal(data, &cart); err2 != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err2)
	}

	return &cart, nil
}

func (r RedisCache) Set(ctx context.Context, userID int64, cart *domain.Cart) error {
	jsonCart, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := r.client.Set(ctx, cartKey(userID), jsonCart, withJitter(r.baseTTL)).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func NewRedisProductCache(client *redis.Client) *RedisProductCache {
	return &RedisProductCache{
		client:      client,
		ttl:         5 * time.Minute,
		notFoundTTL: time.Minute,
	}
}

type RedisProductCache struct {
	client      *redis.Client
	ttl         time.Duration
	notFoundTTL time.Duration
}

func (c RedisProductCache) Get(ctx context.Context, productID int64) (*domain.CatalogItem, error) {
	data, err := c.client.Get(ctx, productKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	if string(data) == notFoundMarker {
		return nil, ErrCachedNotFound
	}

	var item domain.CatalogItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("unmarshal product failed: %w", err)
	}
	return &item, nil
}

// Set expires the entry no later than the item's next scheduled revision.
func (c RedisProductCache) Set(ctx context.Context, item *domain.CatalogItem) error {
	ttl := c.ttl
	if item.NextRevisionAt != nil {
		until := time.Until(*item.NextRevisionAt)
		if until < time.Second {
			return nil
		}
		ttl = min(ttl, until)
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}
	if err := c.client.Set(ctx, productKey(item.Product.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c RedisProductCache) SetNotFound(ctx context.Context, productID int64) error {
	if err := c.client.Set(ctx, productKey(productID), notFoundMarker, c.notFoundTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c RedisProductCache) Delete(ctx context.Context, productIDs ...int64) error {
	if len(productIDs) == 0 {
		return nil
	}
	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = productKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// withJitter spreads expiry so entries written together do not expire together.
func withJitter(base time.Duration) time.Duration {
	return base + time.Duration(rand.Intn(5))*time.Minute
}

func cartKey(userID int64) string {
	return fmt.Sprintf("cart:%d", userID)
}

func productKey(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}
