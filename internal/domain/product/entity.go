// internal/domain/product/entity.go
package product

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xcybeamer/storefront-backend/internal/domain/license"
)

// Status values reported by the catalog
const (
	StatusActive      = "active"
	StatusOutOfStock  = "out_of_stock"
	StatusDisabled    = "disabled"
	StatusMaintenance = "maintenance"
)

// MediaKind tells clients how to render a product's media
type MediaKind string

const (
	MediaEmoji    MediaKind = "emoji"
	MediaImageURL MediaKind = "image_url"
)

// Media is either an emoji glyph or an image URL
type Media struct {
	Kind  MediaKind `json:"kind"`
	Value string    `json:"value"`
}

// NewMedia classifies a raw catalog image field
func NewMedia(raw string) Media {
	value := strings.TrimSpace(raw)
	lower := strings.ToLower(value)
	switch {
	case value == "":
		return Media{Kind: MediaEmoji, Value: "🎮"}
	case strings.HasPrefix(lower, "http://"),
		strings.HasPrefix(lower, "https://"),
		strings.HasPrefix(lower, "data:image/"),
		strings.HasPrefix(value, "/"):
		return Media{Kind: MediaImageURL, Value: value}
	default:
		return Media{Kind: MediaEmoji, Value: value}
	}
}

// Product is the storefront view of a catalog product
type Product struct {
	ID       string                              `json:"id"`
	Name     string                              `json:"name"`
	Game     string                              `json:"game"`
	Category string                              `json:"category"`
	Price    decimal.Decimal                     `json:"price"`
	Pricing  map[license.KeyType]decimal.Decimal `json:"pricing,omitempty"`
	Media    Media                               `json:"media"`
	Features []string                            `json:"features,omitempty"`
	Status   string                              `json:"status"`
	Rating   float64                             `json:"rating"`
}

// Wire mirrors the catalog API's JSON document
type Wire struct {
	ID       string                     `json:"_id"`
	Name     string                     `json:"name"`
	Game     string                     `json:"game"`
	Category string                     `json:"category"`
	Price    decimal.NullDecimal        `json:"price"`
	Pricing  map[string]decimal.Decimal `json:"pricing"`
	Image    string                     `json:"image"`
	Features []string                   `json:"features"`
	Status   string                     `json:"status"`
	Rating   float64                    `json:"rating"`
}

// ToProduct converts a catalog document, classifying media and key-type prices once
func (w Wire) ToProduct() Product {
	p := Product{
		ID:       strings.TrimSpace(w.ID),
		Name:     w.Name,
		Game:     w.Game,
		Category: w.Category,
		Media:    NewMedia(w.Image),
		Features: w.Features,
		Status:   strings.ToLower(strings.TrimSpace(w.Status)),
		Rating:   w.Rating,
	}
	if w.Price.Valid && !w.Price.Decimal.IsNegative() {
		p.Price = w.Price.Decimal
	}
	for raw, price := range w.Pricing {
		kt, err := license.ParseKeyType(raw)
		if err != nil || price.IsNegative() {
			continue
		}
		if p.Pricing == nil {
			p.Pricing = make(map[license.KeyType]decimal.Decimal)
		}
		p.Pricing[kt] = price
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	return p
}

// PriceFor returns the price of the given key tier, falling back to the base price
func (p Product) PriceFor(kt license.KeyType) decimal.Decimal {
	if price, ok := p.Pricing[kt]; ok {
		return price
	}
	return p.Price
}

// IsAvailable reports whether the product can be put in a cart
func (p Product) IsAvailable() bool {
	switch p.Status {
	case StatusOutOfStock, StatusDisabled, StatusMaintenance:
		return false
	}
	return p.ID != ""
}
