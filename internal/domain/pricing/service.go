// internal/domain/pricing/service.go
package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xcybeamer/storefront-backend/internal/domain/cart"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
)

// Validator asks the promo collaborator whether code applies to a cart
type Validator interface {
	ValidatePromo(ctx context.Context, code string, games []string, total decimal.Decimal) (*Promo, error)
}

// Service drives the promo state machine of each cart
type Service struct {
	store     *PromoStore
	validator Validator
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewService creates a promo service
func NewService(store *PromoStore, validator Validator, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store:     store,
		validator: validator,
		log:       log.WithField("component", "pricing"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Session returns the current promo session of ownerKey
func (s *Service) Session(ctx context.Context, ownerKey string) (*PromoSession, error) {
	session, err := s.store.Get(ctx, ownerKey)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDependency, err, "promo session unavailable")
	}
	return session, nil
}

// Apply validates code against the cart's contents and applies it. A
// rejection leaves the session in the rejected state and returns the reason.
func (s *Service) Apply(ctx context.Context, ownerKey, code string, items []cart.Item) (*PromoSession, error) {
	session, err := s.Session(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	if err := session.Begin(code, s.now()); err != nil {
		return session, err
	}
	if err := s.store.Save(ctx, ownerKey, session); err != nil {
		return nil, apperror.Wrap(apperror.CodeDependency, err, "promo session unavailable")
	}

	subtotal := Subtotal(items)
	games := gamesOf(items)

	promo, err := s.validator.ValidatePromo(ctx, session.Code, games, subtotal)
	if err == nil && promo != nil {
		err = promo.CheckEligibility(s.now(), subtotal, games)
	}
	if err == nil && promo == nil {
		err = apperror.New(apperror.CodePromoInvalid, "invalid promo code")
	}
	if err != nil {
		return s.reject(ctx, ownerKey, session, err)
	}

	if err := session.Apply(*promo, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, ownerKey, session); err != nil {
		return nil, apperror.Wrap(apperror.CodeDependency, err, "promo session unavailable")
	}

	s.log.WithFields(logrus.Fields{
		"owner": ownerKey,
		"code":  session.Code,
	}).Info("Promo code applied")

	return session, nil
}

// Remove drops the promo of ownerKey
func (s *Service) Remove(ctx context.Context, ownerKey string) error {
	if err := s.store.Delete(ctx, ownerKey); err != nil {
		return apperror.Wrap(apperror.CodeDependency, err, "promo session unavailable")
	}
	return nil
}

// Quote prices items with the promo applied to ownerKey, if any
func (s *Service) Quote(ctx context.Context, ownerKey string, items []cart.Item) (Quote, error) {
	session, err := s.Session(ctx, ownerKey)
	if err != nil {
		return Quote{}, err
	}
	return NewQuote(items, session.Applied(), s.now()), nil
}

func (s *Service) reject(ctx context.Context, ownerKey string, session *PromoSession, cause error) (*PromoSession, error) {
	reason := publicMessage(cause)
	if rejectErr := session.Reject(reason, s.now()); rejectErr != nil {
		return nil, rejectErr
	}
	if err := s.store.Save(ctx, ownerKey, session); err != nil {
		s.log.WithError(err).Warn("Failed to save rejected promo session")
	}

	s.log.WithFields(logrus.Fields{
		"owner":  ownerKey,
		"code":   session.Code,
		"reason": reason,
	}).Info("Promo code rejected")

	if apperror.As(cause) == nil {
		cause = apperror.Wrap(apperror.CodeDependency, cause, "promo validation unavailable")
	}
	return session, cause
}
