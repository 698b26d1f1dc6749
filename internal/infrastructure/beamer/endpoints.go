// internal/infrastructure/beamer/endpoints.go
package beamer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xcybeamer/storefront-backend/internal/domain/checkout"
	"github.com/xcybeamer/storefront-backend/internal/domain/pricing"
	"github.com/xcybeamer/storefront-backend/internal/domain/product"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
)

// ListProducts fetches the catalog. Concurrent callers share one request.
func (c *Client) ListProducts(ctx context.Context) ([]product.Product, error) {
	v, err, _ := c.catalog.Do("products", func() (interface{}, error) {
		data, err := c.do(ctx, request{endpoint: "products_list", method: http.MethodGet, path: "/products/get"})
		if err != nil {
			return nil, mapError(err, apperror.CodeNotFound, "failed to load products")
		}
		return decodeProducts(data)
	})
	if err != nil {
		return nil, err
	}
	return v.([]product.Product), nil
}

// GetProduct fetches one catalog product
func (c *Client) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.New(apperror.CodeValidation, "product id is required")
	}

	v, err, _ := c.catalog.Do("product:"+id, func() (interface{}, error) {
		data, err := c.do(ctx, request{
			endpoint: "products_get",
			method:   http.MethodGet,
			path:     "/products/get/" + url.PathEscape(id),
		})
		if err != nil {
			return nil, mapError(err, apperror.CodeNotFound, "product not found")
		}
		return decodeProduct(data)
	})
	if err != nil {
		return nil, err
	}
	p := v.(product.Product)
	return &p, nil
}

type validatePromoRequest struct {
	Code        string          `json:"code"`
	Games       []string        `json:"games"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

type validatePromoResponse struct {
	envelope
	PromoCode *promoWire `json:"promoCode"`
}

type promoWire struct {
	pricing.Promo
	DiscountType string `json:"discountType"`
}

// ValidatePromo asks the promo API whether code applies to a cart
func (c *Client) ValidatePromo(ctx context.Context, code string, games []string, total decimal.Decimal) (*pricing.Promo, error) {
	if games == nil {
		games = []string{}
	}
	data, err := c.do(ctx, request{
		endpoint: "promo_validate",
		method:   http.MethodPost,
		path:     "/promo-codes/validate",
		body:     validatePromoRequest{Code: code, Games: games, TotalAmount: total},
	})
	if err != nil {
		c.metrics.IncPromoValidation("rejected")
		return nil, mapError(err, apperror.CodePromoInvalid, "invalid promo code")
	}

	var resp validatePromoResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, apperror.Wrap(apperror.CodeDependency, err, "unexpected promo validation response")
	}
	if resp.failed() || resp.PromoCode == nil {
		c.metrics.IncPromoValidation("rejected")
		message := resp.text()
		if message == "" {
			message = "invalid promo code"
		}
		return nil, apperror.New(apperror.CodePromoInvalid, message)
	}

	kind, err := pricing.ParseDiscountType(resp.PromoCode.DiscountType)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDependency, err, "unexpected promo validation response")
	}

	promo := resp.PromoCode.Promo
	promo.DiscountType = kind
	if promo.Code == "" {
		promo.Code = code
	}
	c.metrics.IncPromoValidation("accepted")
	return &promo, nil
}

type availableKeysResponse struct {
	envelope
	AvailableKeys int `json:"availableKeys"`
}

// AvailableKeys returns how many unassigned keys a product has
func (c *Client) AvailableKeys(ctx context.Context, productID string) (int, error) {
	data, err := c.do(ctx, request{
		endpoint: "keys_available",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/product-keys/%s/available", url.PathEscape(productID)),
	})
	if err != nil {
		return 0, mapError(err, apperror.CodeNotFound, "failed to check stock")
	}

	var resp availableKeysResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, apperror.Wrap(apperror.CodeDependency, err, "unexpected stock response")
	}
	if resp.failed() {
		message := resp.text()
		if message == "" {
			message = "failed to check stock"
		}
		return 0, apperror.New(apperror.CodeDependency, message)
	}
	return resp.AvailableKeys, nil
}

type createSessionResponse struct {
	envelope
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// CreateSession opens a payment session for payload on behalf of token's user
func (c *Client) CreateSession(ctx context.Context, token string, payload checkout.Payload) (*checkout.Session, error) {
	data, err := c.do(ctx, request{
		endpoint: "payments_create_session",
		method:   http.MethodPost,
		path:     "/payments/create-session",
		token:    token,
		body:     payload,
	})
	if err != nil {
		return nil, mapError(err, apperror.CodeConflict, "failed to create checkout session")
	}

	var resp createSessionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, apperror.Wrap(apperror.CodeDependency, err, "unexpected checkout response")
	}
	if resp.failed() || resp.URL == "" {
		message := resp.text()
		if message == "" {
			message = "failed to create checkout session"
		}
		return nil, apperror.New(apperror.CodeDependency, message)
	}
	return &checkout.Session{URL: resp.URL, ExternalID: resp.SessionID}, nil
}

type productsResponse struct {
	envelope
	Products []product.Wire `json:"products"`
	Data     []product.Wire `json:"data"`
}

func decodeProducts(data []byte) ([]product.Product, error) {
	var wires []product.Wire
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &wires); err != nil {
			return nil, apperror.Wrap(apperror.CodeDependency, err, "unexpected catalog response")
		}
	} else {
		var resp productsResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, apperror.Wrap(apperror.CodeDependency, err, "unexpected catalog response")
		}
		if resp.failed() {
			return nil, apperror.New(apperror.CodeDependency, "failed to load products")
		}
		wires = resp.Products
		if wires == nil {
			wires = resp.Data
		}
	}

	products := make([]product.Product, 0, len(wires))
	for _, w := range wires {
		p := w.ToProduct()
		if p.ID == "" {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

type productResponse struct {
	envelope
	Product *product.Wire `json:"product"`
	Data    *product.Wire `json:"data"`
}

func decodeProduct(data []byte) (product.Product, error) {
	var resp productResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return product.Product{}, apperror.Wrap(apperror.CodeDependency, err, "unexpected catalog response")
	}

	wire := resp.Product
	if wire == nil {
		wire = resp.Data
	}
	if wire == nil {
		var bare product.Wire
		if err := json.Unmarshal(data, &bare); err == nil && bare.ID != "" {
			wire = &bare
		}
	}
	if resp.failed() || wire == nil {
		return product.Product{}, apperror.New(apperror.CodeNotFound, "product not found")
	}

	p := wire.ToProduct()
	if p.ID == "" {
		return product.Product{}, apperror.New(apperror.CodeNotFound, "product not found")
	}
	return p, nil
}
