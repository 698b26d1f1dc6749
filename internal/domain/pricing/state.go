// internal/domain/pricing/state.go
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
)

// PromoState is the promo application state of one cart
type PromoState string

const (
	StateNoPromo    PromoState = "no_promo"
	StateValidating PromoState = "validating"
	StateApplied    PromoState = "applied"
	StateRejected   PromoState = "rejected"
)

var (
	// ErrPromoAlreadyApplied is returned when a code is submitted while
	// another one is applied
	ErrPromoAlreadyApplied = apperror.New(apperror.CodeConflict, "remove the applied promo code first")
	ErrInvalidTransition   = errors.New("invalid promo state transition")
	ErrPromoCodeRequired   = apperror.New(apperror.CodeValidation, "promo code is required")
)

// PromoSession tracks the promo of a cart:
// no_promo → validating → applied | rejected, applied → no_promo on
// removal, rejected → validating on retry.
type PromoSession struct {
	State     PromoState `json:"state"`
	Code      string     `json:"code,omitempty"`
	Promo     *Promo     `json:"promo,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewPromoSession returns a session with no promo
func NewPromoSession() *PromoSession {
	return &PromoSession{State: StateNoPromo}
}

// Begin starts validating code
func (s *PromoSession) Begin(code string, now time.Time) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrPromoCodeRequired
	}
	if s.State == StateApplied {
		return ErrPromoAlreadyApplied
	}
	s.State = StateValidating
	s.Code = strings.ToUpper(code)
	s.Promo = nil
	s.Reason = ""
	s.UpdatedAt = now
	return nil
}

// Apply records a successful validation
func (s *PromoSession) Apply(promo Promo, now time.Time) error {
	if s.State != StateValidating {
		return fmt.Errorf("%w: apply from %s", ErrInvalidTransition, s.State)
	}
	s.State = StateApplied
	s.Promo = &promo
	if promo.Code != "" {
		s.Code = promo.Code
	}
	s.UpdatedAt = now
	return nil
}

// Reject records a failed validation
func (s *PromoSession) Reject(reason string, now time.Time) error {
	if s.State != StateValidating {
		return fmt.Errorf("%w: reject from %s", ErrInvalidTransition, s.State)
	}
	s.State = StateRejected
	s.Promo = nil
	s.Reason = reason
	s.UpdatedAt = now
	return nil
}

// Remove drops any promo
func (s *PromoSession) Remove(now time.Time) {
	*s = PromoSession{State: StateNoPromo, UpdatedAt: now}
}

// Applied returns the applied promo, or nil
func (s *PromoSession) Applied() *Promo {
	if s == nil || s.State != StateApplied {
		return nil
	}
	return s.Promo
}

// PromoStore keeps promo sessions in redis under promo:session:<owner>
type PromoStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewPromoStore creates a store whose entries expire with the cart session
func NewPromoStore(client redis.Cmdable, ttl time.Duration) *PromoStore {
	return &PromoStore{client: client, ttl: ttl}
}

func promoKey(ownerKey string) string {
	return fmt.Sprintf("promo:session:%s", ownerKey)
}

// Get returns the session of ownerKey; a missing or unreadable entry is no_promo
func (p *PromoStore) Get(ctx context.Context, ownerKey string) (*PromoSession, error) {
	data, err := p.client.Get(ctx, promoKey(ownerKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewPromoSession(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read promo session: %w", err)
	}

	var session PromoSession
	if err := json.Unmarshal(data, &session); err != nil || session.State == "" {
		return NewPromoSession(), nil
	}
	return &session, nil
}

// Save writes session, deleting the key when no promo remains
func (p *PromoStore) Save(ctx context.Context, ownerKey string, session *PromoSession) error {
	if session.State == StateNoPromo {
		return p.Delete(ctx, ownerKey)
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode promo session: %w", err)
	}
	if err := p.client.Set(ctx, promoKey(ownerKey), data, p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save promo session: %w", err)
	}
	return nil
}

// Delete removes the session of ownerKey
func (p *PromoStore) Delete(ctx context.Context, ownerKey string) error {
	if err := p.client.Del(ctx, promoKey(ownerKey)).Err(); err != nil {
		return fmt.Errorf("failed to delete promo session: %w", err)
	}
	return nil
}
