package rediscache

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mwynn/storefront/internal/domain"
	"github.com/mwynn/storefront/internal/repository"
)

const keyPrefix = "product:"

// ProductRepository is a read-through cache in front of another product
// repository. Single-product reads are served from Redis when possible;
// every mutation invalidates the cached document. Cache failures are logged
// and fall back to the underlying repository.
type ProductRepository struct {
	next   repository.ProductRepository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewProductRepository wraps next with a Redis read cache.
func NewProductRepository(next repository.ProductRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	return r.next.Create(ctx, product)
}

func (r *ProductRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	key := keyPrefix + id.Hex()

	if data, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var product domain.Product
		if err := json.Unmarshal(data, &product); err == nil {
			return &product, nil
		}
		// Unreadable cache entry; drop it and fall through to the store.
		r.client.Del(ctx, key)
	} else if err != redis.Nil {
		r.logger.WarnContext(ctx, "product cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	product, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.WarnContext(ctx, "product cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	return product, nil
}

// List is not cached: filtered catalog queries have too many parameter
// combinations to be worth keying on.
func (r *ProductRepository) List(ctx context.Context, params url.Values) (*repository.ProductList, error) {
	return r.next.List(ctx, params)
}

func (r *ProductRepository) Update(ctx context.Context, id primitive.ObjectID, update repository.ProductUpdate) error {
	if err := r.next.Update(ctx, id, update); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *ProductRepository) SaveReviews(ctx context.Context, product *domain.Product) error {
	if err := r.next.SaveReviews(ctx, product); err != nil {
		return err
	}
	r.invalidate(ctx, product.ID)
	return nil
}

func (r *ProductRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	if err := r.next.DecrementStock(ctx, id, quantity); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *ProductRepository) invalidate(ctx context.Context, id primitive.ObjectID) {
	key := keyPrefix + id.Hex()
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.WarnContext(ctx, "product cache invalidation failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
