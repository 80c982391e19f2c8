// Package main implements a standalone seed tool that populates the
// storefront database with an admin account and a small sample catalog.
// It talks to MongoDB directly so it works against a fresh database
// before the API has ever been started.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/mwynn/storefront/internal/config"
	"github.com/mwynn/storefront/internal/domain"
	mongorepo "github.com/mwynn/storefront/internal/repository/mongo"
	"github.com/mwynn/storefront/pkg/database"
	apperrors "github.com/mwynn/storefront/pkg/errors"
	"github.com/mwynn/storefront/pkg/logger"
)

const (
	adminEmailEnv    = "SEED_ADMIN_EMAIL"
	adminPasswordEnv = "SEED_ADMIN_PASSWORD"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("storefront-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoCfg := database.DefaultMongoConfig()
	mongoCfg.URI = cfg.MongoURI
	mongoCfg.Database = cfg.MongoDatabase

	client, err := database.NewMongoClient(ctx, mongoCfg)
	if err != nil {
		log.Error("failed to connect to mongodb", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer client.Disconnect(context.Background()) //nolint:errcheck

	db := client.Database(cfg.MongoDatabase)
	userRepo := mongorepo.NewUserRepository(db)
	productRepo := mongorepo.NewProductRepository(db, cfg.CatalogPageSize)

	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Error("failed to ensure user indexes", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := productRepo.EnsureIndexes(ctx); err != nil {
		log.Error("failed to ensure product indexes", slog.String("error", err.Error()))
		os.Exit(1)
	}

	admin, err := seedAdmin(ctx, userRepo, log)
	if err != nil {
		log.Error("failed to seed admin user", slog.String("error", err.Error()))
		os.Exit(1)
	}

	created, err := seedProducts(ctx, productRepo, admin.ID, log)
	if err != nil {
		log.Error("failed to seed products", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("seed complete",
		slog.String("admin_email", admin.Email),
		slog.Int("products_created", created),
	)
}

// seedAdmin creates the admin account, or returns the existing one when the
// email is already registered so reruns stay idempotent.
func seedAdmin(ctx context.Context, repo *mongorepo.UserRepository, log *slog.Logger) (*domain.User, error) {
	email := getEnv(adminEmailEnv, "admin@storefront.local")
	password := getEnv(adminPasswordEnv, "change-me-please")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	admin := &domain.User{
		Name:         "Storefront Admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}

	if err := repo.Create(ctx, admin); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			log.Info("admin user already exists, skipping", slog.String("email", email))
			return repo.GetByEmail(ctx, email)
		}
		return nil, err
	}

	log.Info("created admin user", slog.String("email", email))
	return admin, nil
}

// seedProducts inserts the sample catalog. Products already present (matched
// by name) are skipped.
func seedProducts(ctx context.Context, repo *mongorepo.ProductRepository, createdBy primitive.ObjectID, log *slog.Logger) (int, error) {
	existing, err := repo.List(ctx, url.Values{"limit": {"100"}})
	if err != nil {
		return 0, err
	}
	present := make(map[string]bool, len(existing.Products))
	for _, p := range existing.Products {
		present[p.Name] = true
	}

	created := 0
	for _, p := range sampleProducts() {
		if present[p.Name] {
			continue
		}
		p.CreatedBy = createdBy
		if err := repo.Create(ctx, &p); err != nil {
			return created, err
		}
		log.Info("created product", slog.String("name", p.Name))
		created++
	}
	return created, nil
}

func sampleProducts() []domain.Product {
	return []domain.Product{
		{
			Name:        "Wireless Mechanical Keyboard",
			Description: "Hot-swappable 75% layout with RGB backlight and USB-C.",
			Price:       12999,
			Category:    "electronics",
			Stock:       40,
			Images: []domain.Image{
				{PublicID: "seed/keyboard", URL: "https://cdn.storefront.local/seed/keyboard.jpg"},
			},
		},
		{
			Name:        "Trail Running Shoes",
			Description: "Lightweight trail shoes with aggressive grip for wet terrain.",
			Price:       8950,
			Category:    "sports",
			Stock:       25,
			Images: []domain.Image{
				{PublicID: "seed/shoes", URL: "https://cdn.storefront.local/seed/shoes.jpg"},
			},
		},
		{
			Name:        "Ceramic Pour-Over Set",
			Description: "Dripper, carafe and two cups in matte stoneware.",
			Price:       4500,
			Category:    "home",
			Stock:       60,
			Images: []domain.Image{
				{PublicID: "seed/pourover", URL: "https://cdn.storefront.local/seed/pourover.jpg"},
			},
		},
		{
			Name:        "Noise Cancelling Headphones",
			Description: "Over-ear wireless headphones with 30 hour battery life.",
			Price:       19999,
			Category:    "electronics",
			Stock:       15,
			Images: []domain.Image{
				{PublicID: "seed/headphones", URL: "https://cdn.storefront.local/seed/headphones.jpg"},
			},
		},
		{
			Name:        "Canvas Weekender Bag",
			Description: "Waxed canvas duffel with leather trim and brass hardware.",
			Price:       11500,
			Category:    "accessories",
			Stock:       30,
			Images: []domain.Image{
				{PublicID: "seed/bag", URL: "https://cdn.storefront.local/seed/bag.jpg"},
			},
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
