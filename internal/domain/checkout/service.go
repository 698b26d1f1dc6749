// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xcybeamer/storefront-backend/internal/domain/cart"
	"github.com/xcybeamer/storefront-backend/internal/domain/pricing"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
	"github.com/xcybeamer/storefront-backend/internal/pkg/metrics"
)

// KeyInventory reports how many keys a product has left
type KeyInventory interface {
	AvailableKeys(ctx context.Context, productID string) (int, error)
}

// PaymentGateway opens external payment sessions
type PaymentGateway interface {
	CreateSession(ctx context.Context, token string, payload Payload) (*Session, error)
}

// CartOpener loads the cart of an owner
type CartOpener interface {
	Open(ctx context.Context, owner cart.Owner) (*cart.Store, error)
}

// PromoSessions exposes the promo applied to a cart
type PromoSessions interface {
	Session(ctx context.Context, ownerKey string) (*pricing.PromoSession, error)
	Remove(ctx context.Context, ownerKey string) error
}

// Dependencies wires a checkout Service
type Dependencies struct {
	Carts     CartOpener
	Promos    PromoSessions
	Inventory KeyInventory
	Gateway   PaymentGateway
	Attempts  AttemptRepository
	Metrics   *metrics.Metrics
	Log       logrus.FieldLogger
	Timeout   time.Duration
}

// Service submits carts to the payment API
type Service struct {
	carts     CartOpener
	promos    PromoSessions
	inventory KeyInventory
	gateway   PaymentGateway
	attempts  AttemptRepository
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
	timeout   time.Duration
	now       func() time.Time
}

// NewService creates a checkout service
func NewService(deps Dependencies) *Service {
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		carts:     deps.Carts,
		promos:    deps.Promos,
		inventory: deps.Inventory,
		gateway:   deps.Gateway,
		attempts:  deps.Attempts,
		metrics:   deps.Metrics,
		log:       log.WithField("component", "checkout"),
		timeout:   deps.Timeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Request is a checkout submission
type Request struct {
	Owner     cart.Owner
	Token     string
	UserEmail string
}

// Begin checks stock for every item, builds the payload and opens a
// payment session. The cart is left untouched on every path.
func (s *Service) Begin(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Token) == "" {
		s.metrics.IncCheckout("sign_in_required")
		return nil, ErrSignInRequired
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	store, err := s.carts.Open(ctx, req.Owner)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeValidation, err, "cart session required")
	}
	items := store.Items()
	if len(items) == 0 {
		s.metrics.IncCheckout("empty_cart")
		return nil, ErrEmptyCart
	}

	if err := s.checkStock(ctx, items); err != nil {
		return nil, err
	}

	session, err := s.promos.Session(ctx, req.Owner.Key())
	if err != nil {
		return nil, err
	}
	payload := s.buildPayload(items, session.Applied(), req.UserEmail)

	attempt := &Attempt{
		ID:        uuid.New().String(),
		OwnerKey:  req.Owner.Key(),
		UserEmail: req.UserEmail,
		Status:    AttemptStatusPending,
		Subtotal:  payload.Subtotal,
		Discount:  payload.Discount,
		Total:     payload.Total,
		ItemCount: len(payload.Items),
	}
	if payload.PromoCode != nil {
		attempt.PromoCode = *payload.PromoCode
	}

	paymentSession, err := s.gateway.CreateSession(ctx, req.Token, payload)
	if err != nil {
		s.metrics.IncCheckout("gateway_failed")
		attempt.Status = AttemptStatusFailed
		attempt.FailureReason = err.Error()
		s.record(ctx, attempt)
		return nil, err
	}

	attempt.SessionURL = paymentSession.URL
	attempt.ExternalID = paymentSession.ExternalID
	s.record(ctx, attempt)
	s.metrics.IncCheckout("created")

	s.log.WithFields(logrus.Fields{
		"attempt_id": attempt.ID,
		"owner":      attempt.OwnerKey,
		"items":      attempt.ItemCount,
		"total":      attempt.Total.StringFixed(2),
	}).Info("Checkout session created")

	return &Result{AttemptID: attempt.ID, URL: paymentSession.URL, Payload: payload}, nil
}

// Complete finishes a checkout after the payment redirect, emptying the
// cart and dropping its promo.
func (s *Service) Complete(ctx context.Context, owner cart.Owner, attemptID string) (*Attempt, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.OwnerKey != owner.Key() {
		return nil, ErrAttemptNotFound
	}
	if attempt.Status == AttemptStatusFailed {
		return nil, apperror.New(apperror.CodeConflict, "checkout attempt failed and cannot be completed")
	}

	if attempt.Status != AttemptStatusCompleted {
		completedAt := s.now()
		if err := s.attempts.MarkCompleted(ctx, attempt.ID, completedAt); err != nil {
			return nil, err
		}
		attempt.Status = AttemptStatusCompleted
		attempt.CompletedAt = &completedAt
	}

	store, err := s.carts.Open(ctx, owner)
	if err != nil {
		return nil, err
	}
	store.Clear(ctx)
	if err := s.promos.Remove(ctx, owner.Key()); err != nil {
		s.log.WithError(err).Warn("Failed to drop promo after checkout")
	}
	s.metrics.IncCheckout("completed")

	return attempt, nil
}

// checkStock stops at the first item without keys
func (s *Service) checkStock(ctx context.Context, items []cart.Item) error {
	for _, item := range items {
		available, err := s.inventory.AvailableKeys(ctx, item.ProductID)
		if err != nil {
			s.metrics.IncCheckout("stock_check_failed")
			if apperror.As(err) != nil {
				return err
			}
			return apperror.Wrap(apperror.CodeDependency, err, "failed to check stock")
		}
		if available < 1 {
			s.metrics.IncCheckout("out_of_stock")
			oos := &OutOfStockError{ProductID: item.ProductID, ItemName: item.Name}
			return apperror.Wrap(apperror.CodeOutOfStock, oos, oos.Error())
		}
	}
	return nil
}

func (s *Service) buildPayload(items []cart.Item, promo *pricing.Promo, email string) Payload {
	quote := pricing.NewQuote(items, promo, s.now())
	if !quote.PromoEligible {
		promo = nil
	}

	subtotal := pricing.Subtotal(items)
	payload := Payload{
		Items:     make([]PayloadItem, len(items)),
		Subtotal:  quote.Subtotal,
		Discount:  quote.Discount,
		Total:     quote.Total,
		UserEmail: email,
	}
	for i, item := range items {
		payload.Items[i] = PayloadItem{
			ProductID:              item.ProductID,
			Name:                   item.Name,
			Game:                   item.Game,
			UnitPriceAfterDiscount: pricing.ItemPrice(item, promo, subtotal),
			Quantity:               item.EffectiveQuantity(),
			ImageRef:               item.ImageRef,
		}
	}
	if promo != nil {
		code := promo.Code
		payload.PromoCode = &code
	}
	return payload
}

// record stores attempt; failures are logged and never block checkout
func (s *Service) record(ctx context.Context, attempt *Attempt) {
	if s.attempts == nil {
		return
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		s.log.WithError(err).WithField("attempt_id", attempt.ID).Warn("Failed to record checkout attempt")
	}
}
