// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xcybeamer/storefront-backend/internal/config"
	"github.com/xcybeamer/storefront-backend/internal/domain/cart"
	"github.com/xcybeamer/storefront-backend/internal/domain/license"
	"github.com/xcybeamer/storefront-backend/internal/domain/pricing"
	"github.com/xcybeamer/storefront-backend/internal/domain/product"
	"github.com/xcybeamer/storefront-backend/internal/interfaces/http/middleware"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
	"github.com/xcybeamer/storefront-backend/internal/pkg/metrics"
)

// Catalog reads products from the storefront catalog
type Catalog interface {
	ListProducts(ctx context.Context) ([]product.Product, error)
	GetProduct(ctx context.Context, id string) (*product.Product, error)
}

// CartHandler handles cart-related HTTP requests
type CartHandler struct {
	carts    *cart.Service
	promos   *pricing.Service
	catalog  Catalog
	metrics  *metrics.Metrics
	sessions sessions
	log      logrus.FieldLogger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts *cart.Service, promos *pricing.Service, catalog Catalog, m *metrics.Metrics, cfg *config.Config, log logrus.FieldLogger) *CartHandler {
	return &CartHandler{
		carts:    carts,
		promos:   promos,
		catalog:  catalog,
		metrics:  m,
		sessions: sessions{cfg: cfg.Cart},
		log:      log.WithField("handler", "cart"),
	}
}

// AddToCartRequest is the body of POST /cart/items
type AddToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	KeyType   string `json:"key_type" binding:"omitempty,key_type"`
}

// UpdateCartItemRequest is the body of PUT /cart/items/:id. A quantity
// below one removes the item.
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// CartLine is a cart item with its display price
type CartLine struct {
	cart.Item
	Media           product.Media   `json:"media"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// CartResponse is the cart as shown to the shopper
type CartResponse struct {
	Items []CartLine            `json:"items"`
	Count int                   `json:"count"`
	Quote pricing.Quote         `json:"quote"`
	Promo *pricing.PromoSession `json:"promo,omitempty"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	owner := h.sessions.owner(c)
	store, err := h.carts.Open(c.Request.Context(), owner)
	if err != nil {
		respondError(c, apperror.Wrap(apperror.CodeValidation, err, "cart session required"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": h.respond(c.Request.Context(), owner, store),
	})
}

// GetCartCount handles GET /cart/count
func (h *CartHandler) GetCartCount(c *gin.Context) {
	store, err := h.carts.Open(c.Request.Context(), h.sessions.owner(c))
	if err != nil {
		respondError(c, apperror.Wrap(apperror.CodeValidation, err, "cart session required"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"count": store.Count()},
	})
}

// AddToCart handles POST /cart/items. Price and details come from the
// catalog, never from the client.
func (h *CartHandler) AddToCart(c *gin.Context) {
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	p, err := h.catalog.GetProduct(ctx, strings.TrimSpace(req.ProductID))
	if err != nil {
		respondError(c, err)
		return
	}
	if !p.IsAvailable() {
		respondError(c, apperror.Newf(apperror.CodeOutOfStock, "%q is not available right now", p.Name))
		return
	}

	price := p.Price
	if req.KeyType != "" {
		kt, _ := license.ParseKeyType(req.KeyType)
		price = p.PriceFor(kt)
	}

	owner := h.sessions.owner(c)
	store, err := h.carts.Open(ctx, owner)
	if err != nil {
		respondError(c, apperror.Wrap(apperror.CodeValidation, err, "cart session required"))
		return
	}

	result := store.Add(ctx, cart.Product{
		ID:       p.ID,
		Name:     p.Name,
		Game:     p.Game,
		Category: p.Category,
		Price:    price,
		Image:    p.Media.Value,
	})
	if !result.Success {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": result.Message,
			"code":  apperror.CodeValidation,
		})
		return
	}
	h.metrics.IncCartMutation("add")

	c.JSON(http.StatusOK, gin.H{
		"message": result.Message,
		"data":    h.respond(ctx, owner, store),
	})
}

// UpdateCartItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	owner := h.sessions.owner(c)
	store, err := h.carts.Open(ctx, owner)
	if err != nil {
		respondError(c, apperror.Wrap(apperror.CodeValidation, err, "cart session required"))
		return
	}

	store.UpdateQuantity(ctx, c.Param("id"), *req.Quantity)
	h.metrics.IncCartMutation("update")

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart updated",
		"data":    h.respond(ctx, owner, store),
	})
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	ctx := c.Request.Context()
	owner := h.sessions.owner(c)
	store, err := h.carts.Open(ctx, owner)
	if err != nil {
		respondError(c, apperror.Wrap(apperror.CodeValidation, err, "cart session required"))
		return
	}

	store.Remove(ctx, c.Param("id"))
	h.metrics.IncCartMutation("remove")

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart",
		"data":    h.respond(ctx, owner, store),
	})
}

// ClearCart handles DELETE /cart. The promo goes with the items.
func (h *CartHandler) ClearCart(c *gin.Context) {
	ctx := c.Request.Context()
	owner := h.sessions.owner(c)
	store, err := h.carts.Open(ctx, owner)
	if err != nil {
		respondError(c, apperror.Wrap(apperror.CodeValidation, err, "cart session required"))
		return
	}

	store.Clear(ctx)
	if err := h.promos.Remove(ctx, owner.Key()); err != nil {
		h.log.WithError(err).Warn("Failed to drop promo with cleared cart")
	}
	h.metrics.IncCartMutation("clear")

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared",
	})
}

// MergeGuestCart handles POST /cart/merge after sign-in
func (h *CartHandler) MergeGuestCart(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		respondError(c, apperror.New(apperror.CodeUnauthorized, "user not authenticated"))
		return
	}

	ctx := c.Request.Context()
	sessionID := h.sessions.sessionID(c)
	store, err := h.carts.Merge(ctx, userID, sessionID)
	if err != nil {
		respondError(c, apperror.Wrap(apperror.CodeValidation, err, "cart session required"))
		return
	}
	if sessionID != "" {
		guest := cart.Owner{SessionID: sessionID}
		if err := h.promos.Remove(ctx, guest.Key()); err != nil {
			h.log.WithError(err).Warn("Failed to drop guest promo after merge")
		}
	}
	h.metrics.IncCartMutation("merge")

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart merged",
		"data":    h.respond(ctx, cart.Owner{UserID: userID}, store),
	})
}

// ValidateCart handles POST /cart/validate - re-checks items against the catalog before checkout
func (h *CartHandler) ValidateCart(c *gin.Context) {
	ctx := c.Request.Context()
	owner := h.sessions.owner(c)
	store, err := h.carts.Open(ctx, owner)
	if err != nil {
		respondError(c, apperror.Wrap(apperror.CodeValidation, err, "cart session required"))
		return
	}

	// Validate each item in cart
	validationErrors := []string{}

	for _, item := range store.Items() {
		p, err := h.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if apperror.CodeOf(err) != apperror.CodeNotFound {
				respondError(c, err)
				return
			}
			validationErrors = append(validationErrors, fmt.Sprintf("Product '%s' not found", item.Name))
			continue
		}

		if !p.IsAvailable() {
			validationErrors = append(validationErrors, fmt.Sprintf("Product '%s' is no longer available", item.Name))
			continue
		}

		// Any of the product's tier prices is acceptable
		if !priceOffered(*p, item.EffectivePrice()) {
			validationErrors = append(validationErrors,
				fmt.Sprintf("Price for product '%s' has changed. Current: $%s, Cart: $%s",
					item.Name, p.Price.StringFixed(2), item.EffectivePrice().StringFixed(2)))
		}
	}

	// Return validation results
	if len(validationErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "Cart validation failed",
			"code":              apperror.CodeValidation,
			"validation_errors": validationErrors,
			"data":              h.respond(ctx, owner, store),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart is valid",
		"data":    h.respond(ctx, owner, store),
	})
}

// respond builds the cart view. A promo store outage degrades to an
// undiscounted quote instead of failing the read.
func (h *CartHandler) respond(ctx context.Context, owner cart.Owner, store *cart.Store) CartResponse {
	items := store.Items()

	var promo *pricing.Promo
	session, err := h.promos.Session(ctx, owner.Key())
	if err != nil {
		h.log.WithError(err).Warn("Promo session unavailable, quoting without discount")
	} else {
		promo = session.Applied()
	}

	quote := pricing.NewQuote(items, promo, time.Now().UTC())
	if !quote.PromoEligible {
		promo = nil
	}

	resp := CartResponse{
		Items: make([]CartLine, 0, len(items)),
		Count: store.Count(),
		Quote: quote,
	}
	if session != nil && session.State != pricing.StateNoPromo {
		resp.Promo = session
	}
	for _, item := range items {
		resp.Items = append(resp.Items, CartLine{
			Item:            item,
			Media:           product.NewMedia(item.ImageRef),
			DiscountedPrice: pricing.ItemPrice(item, promo, quote.Subtotal),
			LineTotal:       item.LineTotal(),
		})
	}
	return resp
}

func priceOffered(p product.Product, price decimal.Decimal) bool {
	if p.Price.Equal(price) {
		return true
	}
	for _, tier := range p.Pricing {
		if tier.Equal(price) {
			return true
		}
	}
	return false
}
