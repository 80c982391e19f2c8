package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mwynn/storefront/internal/domain"
	"github.com/mwynn/storefront/internal/service"
	"github.com/mwynn/storefront/pkg/health"
	"github.com/mwynn/storefront/pkg/middleware"
)

// RouterConfig holds the HTTP-layer settings for the router.
type RouterConfig struct {
	CORS          middleware.CORSConfig
	SessionCookie SessionCookieConfig
}

// catalogCacheSeconds is the Cache-Control max-age for public catalog reads.
const catalogCacheSeconds = 60

// NewRouter creates a chi router with all storefront routes registered. The
// public API keeps the path layout the web storefront already depends on.
func NewRouter(
	userService *service.UserService,
	productService *service.ProductService,
	orderService *service.OrderService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))

	// Operational endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	userHandler := NewUserHandler(userService, logger, cfg.SessionCookie)
	productHandler := NewProductHandler(productService, logger)
	orderHandler := NewOrderHandler(orderService, logger)

	authenticate := middleware.Authenticate(userService.ResolveIdentity)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/registerUser", userHandler.Register)
		r.Post("/login", userHandler.Login)
		r.Post("/password/forgot", userHandler.ForgotPassword)
		r.Put("/password/reset/{token}", userHandler.ResetPassword)

		// The original API leaves product uploads open.
		r.Post("/uploadProducts", productHandler.Create)

		// Public catalog reads
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(catalogCacheSeconds))

			r.Get("/allProduct", productHandler.List)
			r.Get("/singleProduct/{id}", productHandler.Get)
			r.Get("/allReviews", productHandler.ListReviews)
		})

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/me", userHandler.GetMe)
			r.Put("/me/update", userHandler.UpdateProfile)
			r.Put("/password/update", userHandler.UpdatePassword)
			r.Get("/logout", userHandler.Logout)

			r.Post("/reviews", productHandler.UpsertReview)
			r.Delete("/deleteReview", productHandler.DeleteReview)

			r.Put("/updateProduct/{id}", productHandler.Update)
			r.Delete("/deleteProduct/{id}", productHandler.Delete)

			r.Post("/newOrder", orderHandler.Create)
			r.Get("/orders/me", orderHandler.ListMine)

			// Admin endpoints
			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Get("/admin/users", userHandler.ListUsers)
				r.Get("/admin/singleUser/{id}", userHandler.GetUser)
				r.Put("/admin/updateRole/{id}", userHandler.UpdateRole)
				r.Delete("/admin/deleteUser/{id}", userHandler.DeleteUser)

				r.Get("/order/{id}", orderHandler.Get)
				r.Get("/allOrders", orderHandler.ListAll)
				r.Put("/updateOrder/{id}", orderHandler.UpdateStatus)
				r.Delete("/deletOrder/{id}", orderHandler.Delete)
			})
		})
	})

	return r
}
