package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"foodorder/internal/models"
	"foodorder/internal/repositories"
)

const (
	allProductsKey = "products:all"
	notFoundMarker = "notfound"
	notFoundTTL    = time.Minute
)

// CachedProductRepository is a read-through redis cache in front of a ProductRepository.
// Redis failures are logged and the call falls through to the wrapped repository.
type CachedProductRepository struct {
	realRepo repositories.ProductRepository
	redis    *redis.Client
	ttl      time.Duration
}

// NewCachedProductRepository wraps realRepo. A non-positive ttl defaults to five minutes.
func NewCachedProductRepository(realRepo repositories.ProductRepository, rdb *redis.Client, ttl time.Duration) *CachedProductRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProductRepository{
		realRepo: realRepo,
		redis:    rdb,
		ttl:      ttl,
	}
}

func productKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

// GetByID serves from cache, remembering misses for a short time.
func (c *CachedProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	key := productKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, errors.Wrapf(repositories.ErrNotFound, "product with ID %s (cached)", id)
		}
		var product models.Product
		if err := json.Unmarshal(data, &product); err == nil {
			return &product, nil
		}
		logrus.WithError(err).Warn("failed to decode cached product, continuing with DB")
	case errors.Is(err, redis.Nil):
	default:
		logrus.WithError(err).Warn("redis error, continuing with DB")
	}

	product, err := c.realRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			if setErr := c.redis.Set(ctx, key, notFoundMarker, notFoundTTL).Err(); setErr != nil {
				logrus.WithError(setErr).Warn("failed to cache product miss")
			}
		}
		return nil, err
	}

	c.store(ctx, key, product)
	return product, nil
}

// GetAll serves the full catalog from cache.
func (c *CachedProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	data, err := c.redis.Get(ctx, allProductsKey).Bytes()
	if err == nil {
		var products []models.Product
		if err := json.Unmarshal(data, &products); err == nil {
			return products, nil
		}
		logrus.WithError(err).Warn("failed to decode cached catalog, continuing with DB")
	} else if !errors.Is(err, redis.Nil) {
		logrus.WithError(err).Warn("redis error, continuing with DB")
	}

	products, err := c.realRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, allProductsKey, products)
	return products, nil
}

// Create writes through and drops the catalog listing.
func (c *CachedProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := c.realRepo.Create(ctx, product); err != nil {
		return err
	}
	c.invalidate(ctx, product.ID)
	return nil
}

// Update writes through and drops the product and catalog entries.
func (c *CachedProductRepository) Update(ctx context.Context, product *models.Product) error {
	err := c.realRepo.Update(ctx, product)
	c.invalidate(ctx, product.ID)
	return err
}

// Delete writes through and drops the product and catalog entries.
func (c *CachedProductRepository) Delete(ctx context.Context, id string) error {
	err := c.realRepo.Delete(ctx, id)
	c.invalidate(ctx, id)
	return err
}

func (c *CachedProductRepository) store(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).Warnf("failed to encode %s for cache", key)
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logrus.WithError(err).Warnf("failed to cache %s", key)
	}
}

func (c *CachedProductRepository) invalidate(ctx context.Context, id string) {
	if err := c.redis.Del(ctx, productKey(id), allProductsKey).Err(); err != nil {
		logrus.WithError(err).Warnf("failed to invalidate cache for product %s", id)
	}
}
