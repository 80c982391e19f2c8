package http

import (
	"log/slog"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mwynn/storefront/internal/domain"
	"github.com/mwynn/storefront/internal/repository"
	"github.com/mwynn/storefront/internal/service"
	apperrors "github.com/mwynn/storefront/pkg/errors"
	"github.com/mwynn/storefront/pkg/httputil"
	"github.com/mwynn/storefront/pkg/middleware"
	"github.com/mwynn/storefront/pkg/validator"
)

// ProductHandler handles HTTP requests for catalog and review endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name        string         `json:"name" validate:"required,min=1,max=200"`
	Description string         `json:"description"`
	Price       int64          `json:"price" validate:"required,gte=1"`
	Category    string         `json:"category" validate:"required"`
	Stock       int            `json:"stock" validate:"gte=0"`
	Images      []domain.Image `json:"images"`
}

// UpdateProductRequest is the JSON request body for a partial product update.
type UpdateProductRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Price       *int64         `json:"price"`
	Category    *string        `json:"category"`
	Stock       *int           `json:"stock"`
	Images      []domain.Image `json:"images"`
}

// UpsertReviewRequest is the JSON request body for creating or updating a review.
type UpsertReviewRequest struct {
	ProductID string  `json:"product_id" validate:"required"`
	Rating    float64 `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   string  `json:"comment" validate:"max=2000"`
}

// Create handles POST /api/uploadProducts. The route is unauthenticated, so
// the creator is recorded only when a session happens to be present.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	createdBy, _ := identityObjectID(r)

	var req CreateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), createdBy, service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Stock:       req.Stock,
		Images:      req.Images,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, httputil.Envelope{"product": product})
}

// List handles GET /api/allProduct
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListProducts(r.Context(), r.URL.Query())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"products":                list.Products,
		"products_count":          list.TotalCount,
		"filtered_products_count": list.FilteredCount,
		"result_per_page":         list.PageSize,
	})
}

// Get handles GET /api/singleProduct/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"product": product})
}

// Update handles PUT /api/updateProduct/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req UpdateProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), id, repository.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Stock:       req.Stock,
		Images:      req.Images,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"product": product})
}

// Delete handles DELETE /api/deleteProduct/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"message": "product deleted successfully",
	})
}

// UpsertReview handles POST /api/reviews
func (h *ProductHandler) UpsertReview(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	userID, err := identityObjectID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req UpsertReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid product_id"), h.logger)
		return
	}

	product, err := h.service.UpsertReview(r.Context(), service.UpsertReviewInput{
		ProductID: productID,
		UserID:    userID,
		UserName:  identity.Name,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"product": product})
}

// ListReviews handles GET /api/allReviews?id=... The web client sends the
// product under "id"; "productId" is accepted as an alias.
func (h *ProductHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	name := "id"
	if r.URL.Query().Get(name) == "" && r.URL.Query().Get("productId") != "" {
		name = "productId"
	}
	productID, err := objectIDQuery(r, name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	reviews, err := h.service.ListReviews(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"reviews": reviews})
}

// DeleteReview handles DELETE /api/deleteReview?productId=...&id=...
func (h *ProductHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	userID, err := identityObjectID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	productID, err := objectIDQuery(r, "productId")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	reviewID, err := objectIDQuery(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.service.DeleteReview(r.Context(), productID, reviewID, userID, identity.Role)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"reviews":     product.Reviews,
		"rating":      product.Rating,
		"num_reviews": product.NumReviews,
	})
}

// objectIDQuery parses an ObjectID from a query parameter.
func objectIDQuery(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(r.URL.Query().Get(name))
	if err != nil {
		return primitive.NilObjectID, apperrors.InvalidInput("invalid " + name + " parameter")
	}
	return id, nil
}
