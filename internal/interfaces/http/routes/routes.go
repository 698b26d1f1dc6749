// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/xcybeamer/storefront-backend/internal/config"
	"github.com/xcybeamer/storefront-backend/internal/domain/cart"
	"github.com/xcybeamer/storefront-backend/internal/domain/checkout"
	"github.com/xcybeamer/storefront-backend/internal/domain/pricing"
	"github.com/xcybeamer/storefront-backend/internal/interfaces/http/handlers"
	"github.com/xcybeamer/storefront-backend/internal/interfaces/http/middleware"
	"github.com/xcybeamer/storefront-backend/internal/pkg/auth"
	"github.com/xcybeamer/storefront-backend/internal/pkg/metrics"
)

// Dependencies are the services the API routes are bound to
type Dependencies struct {
	Config   *config.Config
	Redis    redis.Cmdable
	Catalog  handlers.Catalog
	Carts    *cart.Service
	Promos   *pricing.Service
	Checkout *checkout.Service
	Attempts checkout.AttemptRepository
	Metrics  *metrics.Metrics
	Log      logrus.FieldLogger
}

// SetupProductRoutes sets up catalog routes
func SetupProductRoutes(rg *gin.RouterGroup, deps Dependencies) {
	productHandler := handlers.NewProductHandler(deps.Catalog)

	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
	}
}

// SetupCartRoutes sets up cart and promo routes. Guests and signed-in
// users share them; the owner is resolved per request.
func SetupCartRoutes(rg *gin.RouterGroup, deps Dependencies) {
	cartHandler := handlers.NewCartHandler(deps.Carts, deps.Promos, deps.Catalog, deps.Metrics, deps.Config, deps.Log)
	promoHandler := handlers.NewPromoHandler(deps.Carts, deps.Promos, deps.Metrics, deps.Config, deps.Log)

	cartGroup := rg.Group("/cart")
	{
		cartGroup.GET("", cartHandler.GetCart)
		cartGroup.GET("/count", cartHandler.GetCartCount)
		cartGroup.DELETE("", cartHandler.ClearCart)
		cartGroup.POST("/items", cartHandler.AddToCart)
		cartGroup.PUT("/items/:id", cartHandler.UpdateCartItem)
		cartGroup.DELETE("/items/:id", cartHandler.RemoveFromCart)
		cartGroup.POST("/validate", cartHandler.ValidateCart)

		cartGroup.GET("/quote", promoHandler.GetQuote)
		cartGroup.POST("/promo", promoHandler.ApplyPromo)
		cartGroup.DELETE("/promo", promoHandler.RemovePromo)

		// Protected cart endpoints
		cartGroup.POST("/merge", middleware.AuthMiddleware(deps.Config), cartHandler.MergeGuestCart)
	}
}

// SetupCheckoutRoutes sets up checkout routes. Sign-in is checked by the
// checkout service so guests get a redirect hint instead of a bare 401.
func SetupCheckoutRoutes(rg *gin.RouterGroup, deps Dependencies) {
	checkoutHandler := handlers.NewCheckoutHandler(deps.Checkout, deps.Config, deps.Log)

	checkoutGroup := rg.Group("/checkout")
	{
		checkoutGroup.POST("", checkoutHandler.BeginCheckout)
		checkoutGroup.POST("/:id/complete", middleware.AuthMiddleware(deps.Config), checkoutHandler.CompleteCheckout)
	}
}

// SetupAdminRoutes sets up staff-only support routes
func SetupAdminRoutes(rg *gin.RouterGroup, deps Dependencies) {
	adminHandler := handlers.NewAdminHandler(deps.Carts, deps.Attempts)

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(deps.Config))
	admin.Use(middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/carts/sessions/:id", adminHandler.GetSessionCart)
		admin.GET("/carts/users/:id", adminHandler.GetUserCart)
		admin.GET("/checkout-attempts/:id", adminHandler.GetCheckoutAttempt)
	}
}

// SetupRoutes sets up all API routes
func SetupRoutes(rg *gin.RouterGroup, deps Dependencies) {
	rg.Use(middleware.OptionalAuthMiddleware(deps.Config))
	rg.Use(middleware.RateLimit(deps.Config, deps.Redis, deps.Log))

	SetupProductRoutes(rg, deps)
	SetupCartRoutes(rg, deps)
	SetupCheckoutRoutes(rg, deps)
	SetupAdminRoutes(rg, deps)
}
