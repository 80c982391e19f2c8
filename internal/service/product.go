package service

import (
	"context"
	"log/slog"
	"net/url"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mwynn/storefront/internal/domain"
	"github.com/mwynn/storefront/internal/repository"
	apperrors "github.com/mwynn/storefront/pkg/errors"
)

// ProductService implements the business logic for the catalog and its
// embedded reviews.
type ProductService struct {
	productRepo repository.ProductRepository
	logger      *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger *slog.Logger) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		logger:      logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name        string
	Description string
	Price       int64
	Category    string
	Stock       int
	Images      []domain.Image
}

// UpsertReviewInput holds the parameters for creating or updating a review.
type UpsertReviewInput struct {
	ProductID primitive.ObjectID
	UserID    primitive.ObjectID
	UserName  string
	Rating    float64
	Comment   string
}

// CreateProduct adds a product to the catalog. The creator may be the zero
// ObjectID when the upload carried no session.
func (s *ProductService) CreateProduct(ctx context.Context, createdBy primitive.ObjectID, input CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.Price <= 0 {
		return nil, apperrors.InvalidInput("price must be positive")
	}
	if input.Category == "" {
		return nil, apperrors.InvalidInput("category is required")
	}
	if input.Stock < 0 {
		return nil, apperrors.InvalidInput("stock must not be negative")
	}

	product := &domain.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		Stock:       input.Stock,
		Images:      input.Images,
		CreatedBy:   createdBy,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID.Hex()),
		slog.String("name", product.Name),
	)

	return product, nil
}

// GetProduct retrieves a single product with its embedded reviews.
func (s *ProductService) GetProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

// ListProducts runs a filtered, paginated catalog query straight from the
// request's query parameters.
func (s *ProductService) ListProducts(ctx context.Context, params url.Values) (*repository.ProductList, error) {
	return s.productRepo.List(ctx, params)
}

// UpdateProduct applies a partial update to a product.
func (s *ProductService) UpdateProduct(ctx context.Context, id primitive.ObjectID, update repository.ProductUpdate) (*domain.Product, error) {
	if update.Price != nil && *update.Price <= 0 {
		return nil, apperrors.InvalidInput("price must be positive")
	}
	if update.Stock != nil && *update.Stock < 0 {
		return nil, apperrors.InvalidInput("stock must not be negative")
	}

	if err := s.productRepo.Update(ctx, id, update); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", id.Hex()),
	)

	return s.productRepo.GetByID(ctx, id)
}

// DeleteProduct removes a product and its embedded reviews.
func (s *ProductService) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id.Hex()),
	)

	return nil
}

// UpsertReview creates or replaces the caller's review on a product and
// persists the recomputed rating fields in the same write.
func (s *ProductService) UpsertReview(ctx context.Context, input UpsertReviewInput) (*domain.Product, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}

	product, err := s.productRepo.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	product.ApplyReview(domain.Review{
		ID:      primitive.NewObjectID(),
		UserID:  input.UserID,
		Name:    input.UserName,
		Rating:  input.Rating,
		Comment: input.Comment,
	})

	if err := s.productRepo.SaveReviews(ctx, product); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product review saved",
		slog.String("product_id", product.ID.Hex()),
		slog.String("user_id", input.UserID.Hex()),
	)

	return product, nil
}

// ListReviews returns all reviews embedded in a product.
func (s *ProductService) ListReviews(ctx context.Context, productID primitive.ObjectID) ([]domain.Review, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return product.Reviews, nil
}

// DeleteReview removes a review from a product. The review's author and
// admins may delete it; anyone else is rejected.
func (s *ProductService) DeleteReview(ctx context.Context, productID, reviewID, requesterID primitive.ObjectID, requesterRole string) (*domain.Product, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	var target *domain.Review
	for i := range product.Reviews {
		if product.Reviews[i].ID == reviewID {
			target = &product.Reviews[i]
			break
		}
	}
	if target == nil {
		return nil, apperrors.NotFound("review")
	}

	if target.UserID != requesterID && requesterRole != domain.RoleAdmin {
		return nil, apperrors.Forbidden("you can only delete your own reviews")
	}

	product.RemoveReview(reviewID)

	if err := s.productRepo.SaveReviews(ctx, product); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product review deleted",
		slog.String("product_id", product.ID.Hex()),
		slog.String("review_id", reviewID.Hex()),
	)

	return product, nil
}
