package beamer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xcybeamer/storefront-backend/internal/config"
	"github.com/xcybeamer/storefront-backend/internal/domain/checkout"
	"github.com/xcybeamer/storefront-backend/internal/domain/pricing"
	"github.com/xcybeamer/storefront-backend/internal/domain/product"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
	"github.com/xcybeamer/storefront-backend/internal/pkg/metrics"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger, _ := test.NewNullLogger()
	return NewClient(config.CollaboratorConfig{
		BaseURL:          srv.URL + "/api/",
		Timeout:          2 * time.Second,
		BreakerFailures:  2,
		BreakerOpenFor:   time.Minute,
		BreakerHalfOpens: 1,
	}, metrics.New(prometheus.NewRegistry()), logger)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestListProducts(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/get", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"products": []map[string]any{
				{"_id": "p1", "name": "Lite", "price": 9.99, "image": "https://cdn/x.png"},
				{"name": "no id"},
			},
		})
	}))

	products, err := client.ListProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, product.MediaImageURL, products[0].Media.Kind)
}

func TestListProductsCoalescesConcurrentCalls(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		writeJSON(w, http.StatusOK, []map[string]any{{"_id": "p1", "price": 1}})
	}))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.ListProducts(context.Background())
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestGetProductNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Product not found"})
	}))

	_, err := client.GetProduct(context.Background(), "missing")

	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}

func TestValidatePromo(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SAVE10", body["code"])
		assert.Equal(t, []any{"Valorant"}, body["games"])

		writeJSON(w, http.StatusOK, map[string]any{
			"promoCode": map[string]any{
				"code":              "SAVE10",
				"discountType":      "percentage",
				"discountValue":     10,
				"minPurchaseAmount": 5,
				"isActive":          true,
			},
		})
	}))

	promo, err := client.ValidatePromo(context.Background(), "SAVE10", []string{"Valorant"}, decimal.NewFromInt(50))

	require.NoError(t, err)
	assert.Equal(t, pricing.DiscountPercentage, promo.DiscountType)
	assert.True(t, promo.DiscountValue.Equal(decimal.NewFromInt(10)))
	assert.True(t, promo.IsActive)
}

func TestValidatePromoRejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Promo code has expired"})
	}))

	_, err := client.ValidatePromo(context.Background(), "OLD", nil, decimal.NewFromInt(50))

	require.Error(t, err)
	assert.Equal(t, apperror.CodePromoInvalid, apperror.CodeOf(err))
	assert.Equal(t, "Promo code has expired", apperror.As(err).PublicMessage())
}

func TestAvailableKeys(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/product-keys/p1/available", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "availableKeys": 3})
	}))

	n, err := client.AvailableKeys(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCreateSession(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 9.5, body["total"])
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "url": "https://pay/1"})
	}))

	session, err := client.CreateSession(context.Background(), "tok", checkout.Payload{Total: decimal.RequireFromString("9.5")})

	require.NoError(t, err)
	assert.Equal(t, "https://pay/1", session.URL)
}

func TestCreateSessionUnsuccessful(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Card declined"})
	}))

	_, err := client.CreateSession(context.Background(), "tok", checkout.Payload{})

	assert.Equal(t, apperror.CodeDependency, apperror.CodeOf(err))
	assert.Equal(t, "Card declined", apperror.As(err).PublicMessage())
}

func TestBreakerOpensAfterServerErrors(t *testing.T) {
	var hits int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	for i := 0; i < 2; i++ {
		_, err := client.AvailableKeys(context.Background(), "p1")
		assert.Equal(t, apperror.CodeDependency, apperror.CodeOf(err))
	}

	_, err := client.AvailableKeys(context.Background(), "p1")
	assert.Equal(t, apperror.CodeDependency, apperror.CodeOf(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "open breaker short-circuits")
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	var hits int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid"})
	}))

	for i := 0; i < 4; i++ {
		_, _ = client.ValidatePromo(context.Background(), "X", nil, decimal.Zero)
	}

	assert.Equal(t, int32(4), atomic.LoadInt32(&hits))
}
