package repository

import (
	"context"
	"errors"
	"fmt"

	"gadget-grove/internal/cache"
	"gadget-grove/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	allProductsKey    = "products:all"
	listGenerationKey = "products:gen"
)

// listKey scopes the cached listing to a generation. Create bumps the
// generation, so a listing read before an insert can only land under a
// key no later reader asks for.
func listKey(generation int64) string {
	return fmt.Sprintf("%s:%d", allProductsKey, generation)
}

func productKey(id primitive.ObjectID) string {
	return "product:" + id.Hex()
}

// productList wraps the listing so it encodes as a BSON document.
type productList struct {
	Products []*domain.Product `bson:"products"`
}

type cachedProductRepository struct {
	repo   ProductRepository
	cache  *cache.RedisCache
	logger *zap.Logger
}

// NewCachedProductRepository decorates repo with a Redis read-through cache.
// Cache failures are logged and never fail the call.
func NewCachedProductRepository(repo ProductRepository, c *cache.RedisCache, logger *zap.Logger) ProductRepository {
	return &cachedProductRepository{
		repo:   repo,
		cache:  c,
		logger: logger,
	}
}

func (r *cachedProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if err := r.repo.Create(ctx, product); err != nil {
		return err
	}

	generation, err := r.cache.Bump(ctx, listGenerationKey)
	if err != nil {
		r.logger.Warn("Failed to invalidate product list cache", zap.Error(err))
		return nil
	}

	// Free the superseded listing early instead of waiting for its TTL
	if err := r.cache.Delete(ctx, listKey(generation-1)); err != nil {
		r.logger.Warn("Failed to drop stale product list", zap.Error(err))
	}

	return nil
}

func (r *cachedProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	key := productKey(id)

	var product domain.Product
	err := r.cache.Get(ctx, key, &product)
	if err == nil {
		r.logger.Debug("Cache hit", zap.String("key", key))
		return &product, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		r.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}

	found, err := r.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, key, found); err != nil {
		r.logger.Warn("Failed to cache product", zap.String("key", key), zap.Error(err))
	}

	return found, nil
}

func (r *cachedProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	generation, err := r.cache.Version(ctx, listGenerationKey)
	if err != nil {
		r.logger.Warn("Cache read failed", zap.String("key", listGenerationKey), zap.Error(err))
		return r.repo.List(ctx)
	}
	key := listKey(generation)

	var cached productList
	err = r.cache.Get(ctx, key, &cached)
	if err == nil {
		r.logger.Debug("Cache hit", zap.String("key", key))
		if cached.Products == nil {
			cached.Products = []*domain.Product{}
		}
		return cached.Products, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		r.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}

	products, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, key, productList{Products: products}); err != nil {
		r.logger.Warn("Failed to cache product list", zap.Error(err))
	}

	return products, nil
}
