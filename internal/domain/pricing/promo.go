// internal/domain/pricing/promo.go
package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
)

// DiscountType selects how a promo's DiscountValue is interpreted
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// ParseDiscountType accepts the collaborator's spellings
func ParseDiscountType(raw string) (DiscountType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "percentage", "percent":
		return DiscountPercentage, nil
	case "fixed", "fixed_amount", "amount":
		return DiscountFixed, nil
	}
	return "", fmt.Errorf("unknown discount type %q", raw)
}

// Eligibility failures. Each carries CodePromoInvalid.
var (
	ErrPromoInactive      = apperror.New(apperror.CodePromoInvalid, "promo code is not active")
	ErrPromoExpired       = apperror.New(apperror.CodePromoInvalid, "promo code has expired")
	ErrPromoExhausted     = apperror.New(apperror.CodePromoInvalid, "promo code usage limit reached")
	ErrPromoBelowMinimum  = apperror.New(apperror.CodePromoInvalid, "cart total is below the promo minimum")
	ErrPromoNotApplicable = apperror.New(apperror.CodePromoInvalid, "promo code does not apply to the games in your cart")
	ErrPromoEmptyCart     = apperror.New(apperror.CodePromoInvalid, "promo code cannot be applied to an empty cart")
)

// Promo is a discount rule as returned by the promo validation API
type Promo struct {
	Code              string          `json:"code"`
	DiscountType      DiscountType    `json:"discountType"`
	DiscountValue     decimal.Decimal `json:"discountValue"`
	ApplicableGames   []string        `json:"applicableGames,omitempty"`
	MinPurchaseAmount decimal.Decimal `json:"minPurchaseAmount"`
	MaxUses           *int            `json:"maxUses,omitempty"`
	UsedCount         int             `json:"usedCount"`
	ExpiresAt         *time.Time      `json:"expiresAt,omitempty"`
	IsActive          bool            `json:"isActive"`
}

// CheckEligibility mirrors the validation API's rules so an applied promo
// can be re-checked after the cart changes.
func (p *Promo) CheckEligibility(now time.Time, subtotal decimal.Decimal, games []string) error {
	switch {
	case !p.IsActive:
		return ErrPromoInactive
	case p.ExpiresAt != nil && !now.Before(*p.ExpiresAt):
		return ErrPromoExpired
	case p.MaxUses != nil && p.UsedCount >= *p.MaxUses:
		return ErrPromoExhausted
	case !subtotal.IsPositive():
		return ErrPromoEmptyCart
	case subtotal.LessThan(p.MinPurchaseAmount):
		return apperror.Wrap(apperror.CodePromoInvalid, ErrPromoBelowMinimum,
			fmt.Sprintf("minimum purchase for %s is %s", p.Code, p.MinPurchaseAmount.StringFixed(2)))
	case !p.appliesTo(games):
		return ErrPromoNotApplicable
	}
	return nil
}

func (p *Promo) appliesTo(games []string) bool {
	if len(p.ApplicableGames) == 0 {
		return true
	}
	for _, allowed := range p.ApplicableGames {
		for _, game := range games {
			if strings.EqualFold(strings.TrimSpace(allowed), strings.TrimSpace(game)) {
				return true
			}
		}
	}
	return false
}
