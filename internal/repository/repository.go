package repository

import (
	"context"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mwynn/storefront/internal/domain"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, name, email string) error
	UpdateRole(ctx context.Context, id primitive.ObjectID, role string) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id primitive.ObjectID) error
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ProductList is a page of catalog results together with the collection-wide
// and filter-wide counts the listing endpoint reports.
type ProductList struct {
	Products      []domain.Product
	TotalCount    int64
	FilteredCount int64
	PageSize      int64
}

// ProductUpdate carries the admin-editable product fields. Nil fields are
// left untouched; set fields are written with a targeted update.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *int64
	Category    *string
	Stock       *int
	Images      []domain.Image
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	List(ctx context.Context, params url.Values) (*ProductList, error)
	Update(ctx context.Context, id primitive.ObjectID, update ProductUpdate) error
	SaveReviews(ctx context.Context, product *domain.Product) error
	DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string, deliveredAt *time.Time) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}
