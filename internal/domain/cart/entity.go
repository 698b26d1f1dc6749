// internal/domain/cart/entity.go
package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Result messages returned by Add
const (
	MessageAdded            = "Added to cart"
	MessageQuantityIncrease = "Quantity increased"
	MessageInvalidProduct   = "Invalid product"
)

// Item is one line of the cart. ProductID is unique within a cart.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Game      string          `json:"game"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image"`
}

// EffectivePrice is the unit price with invalid values coerced to zero
func (i Item) EffectivePrice() decimal.Decimal {
	if i.UnitPrice.IsNegative() {
		return decimal.Zero
	}
	return i.UnitPrice
}

// EffectiveQuantity is the quantity with invalid values coerced to one
func (i Item) EffectiveQuantity() int {
	if i.Quantity < 1 {
		return 1
	}
	return i.Quantity
}

// LineTotal returns unit price × quantity after coercion
func (i Item) LineTotal() decimal.Decimal {
	return i.EffectivePrice().Mul(decimal.NewFromInt(int64(i.EffectiveQuantity())))
}

// Product is what a caller hands to Add
type Product struct {
	ID       string
	Name     string
	Game     string
	Category string
	Price    decimal.Decimal
	Image    string
}

// Result reports the outcome of Add
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

var (
	errNoCart      = errors.New("no cart stored")
	errCorruptCart = errors.New("stored cart is not a sequence of items")
)

// decodeItems parses a persisted cart. Absent, "undefined" and "null" yield
// errNoCart; anything that is not a JSON array yields errCorruptCart.
// Entries without a product id are dropped and duplicate ids are merged.
func decodeItems(raw []byte) ([]Item, error) {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "undefined", "null", `"undefined"`, `"null"`:
		return nil, errNoCart
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, errCorruptCart
	}

	items := make([]Item, 0, len(elements))
	index := make(map[string]int, len(elements))
	for _, element := range elements {
		item, ok := decodeItem(element)
		if !ok {
			continue
		}
		if at, seen := index[item.ProductID]; seen {
			items[at].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(items)
		items = append(items, item)
	}
	return items, nil
}

func decodeItem(raw json.RawMessage) (Item, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Item{}, false
	}

	id := stringField(fields, "product_id", "productId", "_id", "id")
	if id == "" {
		return Item{}, false
	}

	return Item{
		ProductID: id,
		Name:      stringField(fields, "name"),
		Game:      stringField(fields, "game"),
		Category:  stringField(fields, "category"),
		UnitPrice: coercePrice(firstField(fields, "unit_price", "price")),
		Quantity:  coerceQuantity(fields["quantity"]),
		ImageRef:  stringField(fields, "image", "image_ref"),
	}, true
}

func firstField(fields map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, key := range keys {
		if value, ok := fields[key]; ok {
			return value
		}
	}
	return nil
}

func stringField(fields map[string]json.RawMessage, keys ...string) string {
	raw := firstField(fields, keys...)
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	// numeric ids show up in hand-edited carts
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func coercePrice(raw json.RawMessage) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func coerceQuantity(raw json.RawMessage) int {
	if raw == nil {
		return 1
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil || d.LessThan(decimal.NewFromInt(1)) {
		return 1
	}
	return int(d.IntPart())
}
