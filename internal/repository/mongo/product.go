package mongo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mwynn/storefront/internal/domain"
	"github.com/mwynn/storefront/internal/repository"
	apperrors "github.com/mwynn/storefront/pkg/errors"
)

const productCollection = "products"

// ProductRepository is a MongoDB implementation of repository.ProductRepository.
type ProductRepository struct {
	col      *mongo.Collection
	pageSize int
}

// NewProductRepository creates a product repository backed by the given
// database. pageSize is the default catalog page size.
func NewProductRepository(db *mongo.Database, pageSize int) *ProductRepository {
	return &ProductRepository{col: db.Collection(productCollection), pageSize: pageSize}
}

// EnsureIndexes creates the indexes the catalog queries lean on.
func (r *ProductRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create product indexes: %w", err)
	}
	return nil
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	if product.Reviews == nil {
		product.Reviews = []domain.Review{}
	}

	res, err := r.col.InsertOne(ctx, product)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		product.ID = id
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	var product domain.Product
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.NotFound("product")
	}
	if err != nil {
		return nil, fmt.Errorf("find product by id: %w", err)
	}
	return &product, nil
}

// List runs a filtered, paginated catalog query. The filter-wide count is
// taken before skip and limit are applied so pagination metadata stays
// correct on every page.
func (r *ProductRepository) List(ctx context.Context, params url.Values) (*repository.ProductList, error) {
	filter := BuildCatalogFilter(params)

	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	filtered, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count filtered products: %w", err)
	}

	page, pageSize := Pagination(params, r.pageSize)
	opts := options.Find().
		SetSort(BuildCatalogSort(params)).
		SetSkip((page - 1) * pageSize).
		SetLimit(pageSize)

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer cur.Close(ctx)

	products := []domain.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	return &repository.ProductList{
		Products:      products,
		TotalCount:    total,
		FilteredCount: filtered,
		PageSize:      pageSize,
	}, nil
}

// Update writes only the fields present in the update, leaving embedded
// reviews and derived rating fields untouched.
func (r *ProductRepository) Update(ctx context.Context, id primitive.ObjectID, update repository.ProductUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Price != nil {
		set["price"] = *update.Price
	}
	if update.Category != nil {
		set["category"] = *update.Category
	}
	if update.Stock != nil {
		set["stock"] = *update.Stock
	}
	if update.Images != nil {
		set["images"] = update.Images
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("product")
	}
	return nil
}

// SaveReviews persists the embedded reviews together with the derived rating
// and review count in a single targeted update.
func (r *ProductRepository) SaveReviews(ctx context.Context, product *domain.Product) error {
	update := bson.M{"$set": bson.M{
		"reviews":     product.Reviews,
		"rating":      product.Rating,
		"num_reviews": product.NumReviews,
		"updated_at":  time.Now().UTC(),
	}}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": product.ID}, update)
	if err != nil {
		return fmt.Errorf("save product reviews: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("product")
	}
	return nil
}

// DecrementStock atomically reduces stock by quantity. The filter requires
// enough stock so the count can never go negative.
func (r *ProductRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	filter := bson.M{"_id": id, "stock": bson.M{"$gte": quantity}}
	update := bson.M{
		"$inc": bson.M{"stock": -quantity},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("decrement product stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.Conflict("insufficient stock")
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("product")
	}
	return nil
}
