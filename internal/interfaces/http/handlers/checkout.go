// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xcybeamer/storefront-backend/internal/config"
	"github.com/xcybeamer/storefront-backend/internal/domain/checkout"
	"github.com/xcybeamer/storefront-backend/internal/interfaces/http/middleware"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
)

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	checkoutService *checkout.Service
	sessions        sessions
	signInPath      string
	log             logrus.FieldLogger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *checkout.Service, cfg *config.Config, log logrus.FieldLogger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		sessions:        sessions{cfg: cfg.Cart},
		signInPath:      cfg.Cart.SignInPath,
		log:             log.WithField("handler", "checkout"),
	}
}

// BeginCheckout handles POST /checkout. The cart is not cleared here; that
// happens once the payment flow reports back through CompleteCheckout.
func (h *CheckoutHandler) BeginCheckout(c *gin.Context) {
	email, _ := middleware.GetUserEmailFromContext(c)

	result, err := h.checkoutService.Begin(c.Request.Context(), checkout.Request{
		Owner:     h.sessions.owner(c),
		Token:     middleware.GetTokenFromContext(c),
		UserEmail: email,
	})
	if err != nil {
		if errors.Is(err, checkout.ErrSignInRequired) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":       checkout.ErrSignInRequired.PublicMessage(),
				"code":        apperror.CodeUnauthorized,
				"redirect_to": h.signInPath,
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout session created",
		"data": gin.H{
			"attempt_id": result.AttemptID,
			"url":        result.URL,
			"payload":    result.Payload,
		},
	})
}

// CompleteCheckout handles POST /checkout/:id/complete
func (h *CheckoutHandler) CompleteCheckout(c *gin.Context) {
	attempt, err := h.checkoutService.Complete(c.Request.Context(), h.sessions.owner(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout completed",
		"data":    attempt,
	})
}
