// internal/domain/pricing/engine.go
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/xcybeamer/storefront-backend/internal/domain/cart"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
)

// Money amounts are rounded half away from zero to this many places
const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Quote is the priced view of a cart
type Quote struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	PromoCode     string          `json:"promo_code,omitempty"`
	PromoEligible bool            `json:"promo_eligible"`
	PromoMessage  string          `json:"promo_message,omitempty"`
}

// Subtotal sums unit price × quantity, matching cart.Store.Total
func Subtotal(items []cart.Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Discount returns the amount promo takes off subtotal. The result never
// exceeds subtotal and is zero for an empty cart.
func Discount(promo *Promo, subtotal decimal.Decimal) decimal.Decimal {
	if promo == nil || !subtotal.IsPositive() || !promo.DiscountValue.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch promo.DiscountType {
	case DiscountPercentage:
		discount = subtotal.Mul(promo.DiscountValue).Div(hundred)
	case DiscountFixed:
		discount = promo.DiscountValue
	default:
		return decimal.Zero
	}
	return decimal.Min(discount, subtotal).Round(moneyPlaces)
}

// ItemPrice returns item's unit price after promo. Fixed discounts are
// spread across items in proportion to their share of subtotal.
func ItemPrice(item cart.Item, promo *Promo, subtotal decimal.Decimal) decimal.Decimal {
	price := item.EffectivePrice()
	if promo == nil || !subtotal.IsPositive() || !promo.DiscountValue.IsPositive() {
		return price.Round(moneyPlaces)
	}

	switch promo.DiscountType {
	case DiscountPercentage:
		rate := decimal.Min(promo.DiscountValue, hundred).Div(hundred)
		price = price.Mul(decimal.NewFromInt(1).Sub(rate))
	case DiscountFixed:
		off := decimal.Min(promo.DiscountValue, subtotal)
		price = price.Sub(price.Div(subtotal).Mul(off))
	}
	return price.Round(moneyPlaces)
}

// Total is subtotal minus discount, rounded for display and checkout
func Total(subtotal, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount).Round(moneyPlaces)
}

// NewQuote prices items with an optional applied promo. A promo that no
// longer qualifies for the cart contributes no discount.
func NewQuote(items []cart.Item, promo *Promo, now time.Time) Quote {
	subtotal := Subtotal(items)
	quote := Quote{
		Subtotal: subtotal.Round(moneyPlaces),
		Discount: decimal.Zero,
	}

	if promo != nil {
		quote.PromoCode = promo.Code
		if err := promo.CheckEligibility(now, subtotal, gamesOf(items)); err != nil {
			quote.PromoMessage = publicMessage(err)
		} else {
			quote.PromoEligible = true
			quote.Discount = Discount(promo, subtotal)
		}
	}

	quote.Total = Total(subtotal, quote.Discount)
	return quote
}

func gamesOf(items []cart.Item) []string {
	games := make([]string, 0, len(items))
	for _, item := range items {
		if item.Game != "" {
			games = append(games, item.Game)
		}
	}
	return games
}

func publicMessage(err error) string {
	if typed := apperror.As(err); typed != nil {
		return typed.PublicMessage()
	}
	return err.Error()
}
