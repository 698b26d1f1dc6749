package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xcybeamer/storefront-backend/internal/domain/cart"
	"github.com/xcybeamer/storefront-backend/internal/domain/checkout"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
)

// AdminHandler exposes read-only support views for staff
type AdminHandler struct {
	carts    *cart.Service
	attempts checkout.AttemptRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(carts *cart.Service, attempts checkout.AttemptRepository) *AdminHandler {
	return &AdminHandler{
		carts:    carts,
		attempts: attempts,
	}
}

// GetSessionCart handles GET /admin/carts/sessions/:id
func (h *AdminHandler) GetSessionCart(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		respondError(c, apperror.New(apperror.CodeValidation, "invalid session id"))
		return
	}
	h.showCart(c, cart.Owner{SessionID: sessionID})
}

// GetUserCart handles GET /admin/carts/users/:id
func (h *AdminHandler) GetUserCart(c *gin.Context) {
	h.showCart(c, cart.Owner{UserID: c.Param("id")})
}

// GetCheckoutAttempt handles GET /admin/checkout-attempts/:id
func (h *AdminHandler) GetCheckoutAttempt(c *gin.Context) {
	attempt, err := h.attempts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": attempt,
	})
}

func (h *AdminHandler) showCart(c *gin.Context, owner cart.Owner) {
	store, err := h.carts.Open(c.Request.Context(), owner)
	if err != nil {
		respondError(c, apperror.Wrap(apperror.CodeValidation, err, "cart owner required"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"owner": owner.Key(),
			"items": store.Items(),
			"count": store.Count(),
			"total": store.Total(),
		},
	})
}
