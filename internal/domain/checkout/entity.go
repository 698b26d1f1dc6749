// internal/domain/checkout/entity.go
package checkout

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
)

// AttemptStatus represents the state of a checkout attempt
type AttemptStatus string

const (
	AttemptStatusPending   AttemptStatus = "pending"
	AttemptStatusFailed    AttemptStatus = "failed"
	AttemptStatusCompleted AttemptStatus = "completed"
)

// Attempt records one submission to the payment API
type Attempt struct {
	ID        string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerKey  string        `gorm:"size:100;not null;index" json:"owner_key"`
	UserEmail string        `gorm:"size:255" json:"user_email"`
	Status    AttemptStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`

	// Financial Information
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Discount  decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"discount"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	PromoCode string          `gorm:"size:50" json:"promo_code,omitempty"`
	ItemCount int             `gorm:"not null" json:"item_count"`

	// Payment session
	SessionURL    string `gorm:"type:text" json:"session_url,omitempty"`
	ExternalID    string `gorm:"size:255" json:"external_id,omitempty"`
	FailureReason string `gorm:"type:text" json:"failure_reason,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName overrides the table name
func (Attempt) TableName() string {
	return "checkout_attempts"
}

// PayloadItem is one line submitted to the payment API
type PayloadItem struct {
	ProductID              string          `json:"productId"`
	Name                   string          `json:"name"`
	Game                   string          `json:"game"`
	UnitPriceAfterDiscount decimal.Decimal `json:"price"`
	Quantity               int             `json:"quantity"`
	ImageRef               string          `json:"image"`
}

// Payload is derived from the cart at submission time and never stored
type Payload struct {
	Items     []PayloadItem   `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
	PromoCode *string         `json:"promoCode,omitempty"`
	UserEmail string          `json:"userEmail"`
}

// MarshalJSON writes amounts as JSON numbers with two decimals
func (p Payload) MarshalJSON() ([]byte, error) {
	type wireItem struct {
		ProductID string      `json:"productId"`
		Name      string      `json:"name"`
		Game      string      `json:"game"`
		Price     json.Number `json:"price"`
		Quantity  int         `json:"quantity"`
		Image     string      `json:"image"`
	}
	items := make([]wireItem, len(p.Items))
	for i, item := range p.Items {
		items[i] = wireItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Game:      item.Game,
			Price:     money(item.UnitPriceAfterDiscount),
			Quantity:  item.Quantity,
			Image:     item.ImageRef,
		}
	}
	return json.Marshal(struct {
		Items     []wireItem  `json:"items"`
		Subtotal  json.Number `json:"subtotal"`
		Discount  json.Number `json:"discount"`
		Total     json.Number `json:"total"`
		PromoCode *string     `json:"promoCode,omitempty"`
		UserEmail string      `json:"userEmail"`
	}{
		Items:     items,
		Subtotal:  money(p.Subtotal),
		Discount:  money(p.Discount),
		Total:     money(p.Total),
		PromoCode: p.PromoCode,
		UserEmail: p.UserEmail,
	})
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// Session is the payment flow handle returned by the payment API
type Session struct {
	URL        string `json:"url"`
	ExternalID string `json:"external_id,omitempty"`
}

// Result is returned by a successful Begin
type Result struct {
	AttemptID string  `json:"attempt_id"`
	URL       string  `json:"url"`
	Payload   Payload `json:"-"`
}

var (
	// ErrSignInRequired is returned when checkout is attempted without a bearer token
	ErrSignInRequired  = apperror.New(apperror.CodeUnauthorized, "please sign in to checkout")
	ErrEmptyCart       = apperror.New(apperror.CodeValidation, "your cart is empty")
	ErrAttemptNotFound = apperror.New(apperror.CodeNotFound, "checkout attempt not found")
)

// OutOfStockError names the first cart item without available keys
type OutOfStockError struct {
	ProductID string
	ItemName  string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("Sorry, %q is currently out of stock", e.ItemName)
}

// AsOutOfStock extracts an OutOfStockError from err
func AsOutOfStock(err error) (*OutOfStockError, bool) {
	var oos *OutOfStockError
	if errors.As(err, &oos) {
		return oos, true
	}
	return nil, false
}
