package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vkuksa/product-catalog/internal/domain"
)

// ProductCache caches stored product records by code. Only the durable row
// is cached; pre-signed URLs and availability are assembled fresh per read.
// The image update worker invalidates entries when it applies an event, so a
// stale entry lives at most the configured TTL.
type ProductCache struct {
	client     *redis.Client
	productTTL time.Duration
}

// NewProductCache creates a new Redis-backed product cache
func NewProductCache(client *redis.Client, productTTL time.Duration) *ProductCache {
	return &ProductCache{
		client:     client,
		productTTL: productTTL,
	}
}

func (c *ProductCache) productKey(code string) string {
	return fmt.Sprintf("product:%s", code)
}

// GetProduct retrieves a cached product record by code
func (c *ProductCache) GetProduct(ctx context.Context, code string) (*domain.Product, error) {
	key := c.productKey(code)
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var product domain.Product
	if err := json.Unmarshal([]byte(val), &product); err != nil {
		return nil, err
	}

	return &product, nil
}

// SetProduct stores a product record in the cache
func (c *ProductCache) SetProduct(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.productKey(product.Code), data, c.productTTL).Err()
}

// InvalidateProduct removes the cached record for a code
func (c *ProductCache) InvalidateProduct(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.productKey(code)).Err()
}
