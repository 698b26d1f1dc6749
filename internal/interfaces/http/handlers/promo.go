package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xcybeamer/storefront-backend/internal/config"
	"github.com/xcybeamer/storefront-backend/internal/domain/cart"
	"github.com/xcybeamer/storefront-backend/internal/domain/pricing"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
	"github.com/xcybeamer/storefront-backend/internal/pkg/metrics"
)

// PromoHandler handles promo code requests
type PromoHandler struct {
	carts    *cart.Service
	promos   *pricing.Service
	metrics  *metrics.Metrics
	sessions sessions
	log      logrus.FieldLogger
}

// NewPromoHandler creates a new promo handler
func NewPromoHandler(carts *cart.Service, promos *pricing.Service, m *metrics.Metrics, cfg *config.Config, log logrus.FieldLogger) *PromoHandler {
	return &PromoHandler{
		carts:    carts,
		promos:   promos,
		metrics:  m,
		sessions: sessions{cfg: cfg.Cart},
		log:      log.WithField("handler", "promo"),
	}
}

// ApplyPromoRequest is the body of POST /cart/promo
type ApplyPromoRequest struct {
	Code string `json:"code" binding:"required,max=64"`
}

// ApplyPromo handles POST /cart/promo
func (h *PromoHandler) ApplyPromo(c *gin.Context) {
	var req ApplyPromoRequest
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
	items := store.Items()
	if len(items) == 0 {
		respondError(c, pricing.ErrPromoEmptyCart)
		return
	}

	session, err := h.promos.Apply(ctx, owner.Key(), req.Code, items)
	if err != nil {
		h.metrics.IncPromoValidation(promoOutcome(err))
		respondError(c, err)
		return
	}
	h.metrics.IncPromoValidation("applied")

	c.JSON(http.StatusOK, gin.H{
		"message": "Promo code applied",
		"data": gin.H{
			"promo": session,
			"quote": pricing.NewQuote(items, session.Applied(), session.UpdatedAt),
		},
	})
}

// RemovePromo handles DELETE /cart/promo
func (h *PromoHandler) RemovePromo(c *gin.Context) {
	owner := h.sessions.owner(c)
	if err := h.promos.Remove(c.Request.Context(), owner.Key()); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Promo code removed",
	})
}

// GetQuote handles GET /cart/quote
func (h *PromoHandler) GetQuote(c *gin.Context) {
	ctx := c.Request.Context()
	owner := h.sessions.owner(c)
	store, err := h.carts.Open(ctx, owner)
	if err != nil {
		respondError(c, apperror.Wrap(apperror.CodeValidation, err, "cart session required"))
		return
	}

	quote, err := h.promos.Quote(ctx, owner.Key(), store.Items())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": quote,
	})
}

func promoOutcome(err error) string {
	switch apperror.CodeOf(err) {
	case apperror.CodePromoInvalid:
		return "rejected"
	case apperror.CodeConflict:
		return "conflict"
	case apperror.CodeValidation:
		return "invalid_request"
	default:
		return "error"
	}
}
