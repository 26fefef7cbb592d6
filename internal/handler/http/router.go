package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moni-del/dragon-d/internal/auth"
	"github.com/moni-del/dragon-d/internal/gate"
	"github.com/moni-del/dragon-d/internal/service"
	"github.com/moni-del/dragon-d/pkg/health"
	"github.com/moni-del/dragon-d/pkg/i18n"
	"github.com/moni-del/dragon-d/pkg/middleware"
)

const serviceName = "dt-store"

// RouterDeps bundles everything the router wires into handlers.
type RouterDeps struct {
	Sessions   *service.SessionService
	Catalog    *service.CatalogService
	Discounts  *service.DiscountService
	Auth       *service.AuthService
	Gate       *gate.Service
	JWT        *auth.JWTManager
	Health     *health.Handler
	Translator *i18n.Translator
	GateConfig GateConfig
	CORS       middleware.CORSConfig
	Logger     *slog.Logger

	// Optional limiters; nil disables them.
	DiscountLimiter *middleware.RateLimiter
	LoginLimiter    *middleware.RateLimiter
}

// NewRouter creates a chi router with all store routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(deps.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	gateHandler := NewGateHandler(deps.Gate, deps.JWT, deps.GateConfig, logger)
	catalogHandler := NewCatalogHandler(deps.Catalog, logger)
	cartHandler := NewCartHandler(deps.Sessions, deps.Translator, logger)
	discountHandler := NewDiscountHandler(deps.Discounts, logger)
	authHandler := NewAuthHandler(deps.Auth, logger)

	// Discord gate
	r.Get("/auth/discord/login", gateHandler.Login)
	r.With(deps.LoginLimiter.Handler).Get("/auth/discord/callback", gateHandler.Callback)
	r.Post("/auth/logout", gateHandler.Logout)
	r.Get("/api/status", gateHandler.Status)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(JSONBody)

		// Public catalog
		r.Get("/products", catalogHandler.ListProducts)
		r.Get("/products/{id}", catalogHandler.GetProduct)
		r.Get("/categories", catalogHandler.ListCategories)
		r.Get("/categories/{id}", catalogHandler.GetCategory)

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.Auth(deps.JWT.Validator(), middleware.CookieToken(SessionCookie), middleware.BearerToken))
			r.Use(middleware.RequireRole(auth.RoleShopper))

			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)

			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productId}", cartHandler.SetQuantity)
			r.Delete("/items/{productId}", cartHandler.RemoveItem)

			r.With(deps.DiscountLimiter.Handler).Post("/discount", cartHandler.ApplyDiscount)
			r.Post("/checkout", cartHandler.Checkout)
			r.Get("/flying", cartHandler.FlyingItems)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(deps.LoginLimiter.Handler).Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(deps.JWT.Validator(), middleware.BearerToken))
				r.Use(middleware.RequireRole(auth.RoleAdmin))

				r.Post("/products", catalogHandler.CreateProduct)
				r.Put("/products/{id}", catalogHandler.UpdateProduct)
				r.Delete("/products/{id}", catalogHandler.DeleteProduct)

				r.Post("/categories", catalogHandler.CreateCategory)
				r.Put("/categories/{id}", catalogHandler.UpdateCategory)
				r.Delete("/categories/{id}", catalogHandler.DeleteCategory)

				r.Get("/discounts", discountHandler.ListDiscounts)
				r.Post("/discounts", discountHandler.CreateDiscount)
				r.Get("/discounts/{id}", discountHandler.GetDiscount)
				r.Put("/discounts/{id}", discountHandler.UpdateDiscount)
				r.Post("/discounts/{id}/toggle", discountHandler.ToggleDiscount)
				r.Delete("/discounts/{id}", discountHandler.DeleteDiscount)
			})
		})
	})

	return r
}
