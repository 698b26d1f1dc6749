package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xcybeamer/storefront-backend/internal/domain/cart"
	"github.com/xcybeamer/storefront-backend/internal/domain/pricing"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type memoryCarts struct {
	mu    sync.Mutex
	byKey map[string]*cart.MemoryPersistence
}

func (m *memoryCarts) persistence(owner cart.Owner) cart.Persistence {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byKey == nil {
		m.byKey = make(map[string]*cart.MemoryPersistence)
	}
	p, ok := m.byKey[owner.Key()]
	if !ok {
		p = cart.NewMemoryPersistence(nil)
		m.byKey[owner.Key()] = p
	}
	return p
}

type stubInventory struct {
	stock map[string]int
	err   error
	calls []string
}

func (s *stubInventory) AvailableKeys(ctx context.Context, productID string) (int, error) {
	s.calls = append(s.calls, productID)
	if s.err != nil {
		return 0, s.err
	}
	return s.stock[productID], nil
}

type stubGateway struct {
	err     error
	calls   int
	token   string
	payload Payload
}

func (g *stubGateway) CreateSession(ctx context.Context, token string, payload Payload) (*Session, error) {
	g.calls++
	g.token = token
	g.payload = payload
	if g.err != nil {
		return nil, g.err
	}
	return &Session{URL: "https://pay.example/session/1", ExternalID: "cs_1"}, nil
}

type stubPromos struct {
	session *pricing.PromoSession
	removed []string
}

func (p *stubPromos) Session(ctx context.Context, ownerKey string) (*pricing.PromoSession, error) {
	if p.session == nil {
		return pricing.NewPromoSession(), nil
	}
	return p.session, nil
}

func (p *stubPromos) Remove(ctx context.Context, ownerKey string) error {
	p.removed = append(p.removed, ownerKey)
	p.session = nil
	return nil
}

type fixture struct {
	svc       *Service
	carts     *cart.Service
	inventory *stubInventory
	gateway   *stubGateway
	promos    *stubPromos
	attempts  *GormAttemptRepository
	owner     cart.Owner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Attempt{}))

	mem := &memoryCarts{}
	f := &fixture{
		carts:     cart.NewServiceWith(mem.persistence, logger),
		inventory: &stubInventory{stock: map[string]int{}},
		gateway:   &stubGateway{},
		promos:    &stubPromos{},
		attempts:  NewGormAttemptRepository(db),
		owner:     cart.Owner{UserID: "u1"},
	}
	f.svc = NewService(Dependencies{
		Carts:     f.carts,
		Promos:    f.promos,
		Inventory: f.inventory,
		Gateway:   f.gateway,
		Attempts:  f.attempts,
		Log:       logger,
	})
	return f
}

func (f *fixture) add(t *testing.T, id, name, price string, stock int) {
	t.Helper()
	store, err := f.carts.Open(context.Background(), f.owner)
	require.NoError(t, err)
	store.Add(context.Background(), cart.Product{
		ID:    id,
		Name:  name,
		Game:  "Valorant",
		Price: decimal.RequireFromString(price),
	})
	f.inventory.stock[id] = stock
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	store, err := f.carts.Open(context.Background(), f.owner)
	require.NoError(t, err)
	return store.Count()
}

func TestBegin_RequiresToken(t *testing.T) {
	f := newFixture(t)
	f.add(t, "p1", "Beamer Lite", "10", 5)

	_, err := f.svc.Begin(context.Background(), Request{Owner: f.owner})

	assert.ErrorIs(t, err, ErrSignInRequired)
	assert.Equal(t, apperror.CodeUnauthorized, apperror.CodeOf(err))
	assert.Zero(t, f.gateway.calls)
	assert.Empty(t, f.inventory.calls)
}

func TestBegin_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Begin(context.Background(), Request{Owner: f.owner, Token: "tok"})

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, f.gateway.calls)
}

func TestBegin_OutOfStockAbortsBeforeSession(t *testing.T) {
	f := newFixture(t)
	f.add(t, "p1", "Beamer Lite", "10", 3)
	f.add(t, "p2", "Beamer Pro", "20", 0)
	f.add(t, "p3", "Beamer Max", "30", 0)

	_, err := f.svc.Begin(context.Background(), Request{Owner: f.owner, Token: "tok"})

	require.Error(t, err)
	oos, ok := AsOutOfStock(err)
	require.True(t, ok)
	assert.Equal(t, "Beamer Pro", oos.ItemName)
	assert.Contains(t, apperror.As(err).PublicMessage(), "Beamer Pro")
	assert.Equal(t, apperror.CodeOutOfStock, apperror.CodeOf(err))
	assert.Equal(t, []string{"p1", "p2"}, f.inventory.calls, "stops at the first unavailable item")
	assert.Zero(t, f.gateway.calls)
	assert.Equal(t, 3, f.count(t))
}

func TestBegin_StockCheckFailure(t *testing.T) {
	f := newFixture(t)
	f.add(t, "p1", "Beamer Lite", "10", 3)
	f.inventory.err = errors.New("timeout")

	_, err := f.svc.Begin(context.Background(), Request{Owner: f.owner, Token: "tok"})

	assert.Equal(t, apperror.CodeDependency, apperror.CodeOf(err))
	assert.Zero(t, f.gateway.calls)
	assert.Equal(t, 1, f.count(t))
}

func TestBegin_GatewayFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	f.add(t, "p1", "Beamer Lite", "10", 3)
	f.gateway.err = apperror.New(apperror.CodeDependency, "payment provider unavailable")

	_, err := f.svc.Begin(context.Background(), Request{Owner: f.owner, Token: "tok"})

	require.Error(t, err)
	assert.Equal(t, 1, f.gateway.calls)
	assert.Equal(t, 1, f.count(t))

	var attempts []Attempt
	require.NoError(t, f.attempts.db.Find(&attempts).Error)
	require.Len(t, attempts, 1)
	assert.Equal(t, AttemptStatusFailed, attempts[0].Status)
}

func TestBegin_SuccessWithFixedPromo(t *testing.T) {
	f := newFixture(t)
	f.add(t, "p1", "Beamer Lite", "60", 3)
	f.add(t, "p2", "Beamer Pro", "40", 3)

	session := pricing.NewPromoSession()
	now := f.svc.now()
	require.NoError(t, session.Begin("FLAT20", now))
	require.NoError(t, session.Apply(pricing.Promo{
		Code:          "FLAT20",
		DiscountType:  pricing.DiscountFixed,
		DiscountValue: decimal.NewFromInt(20),
		IsActive:      true,
	}, now))
	f.promos.session = session

	res, err := f.svc.Begin(context.Background(), Request{Owner: f.owner, Token: "tok", UserEmail: "a@b.c"})
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example/session/1", res.URL)
	assert.NotEmpty(t, res.AttemptID)
	assert.Equal(t, "tok", f.gateway.token)

	payload := f.gateway.payload
	require.Len(t, payload.Items, 2)
	assert.True(t, payload.Items[0].UnitPriceAfterDiscount.Equal(decimal.NewFromInt(48)))
	assert.True(t, payload.Items[1].UnitPriceAfterDiscount.Equal(decimal.NewFromInt(32)))
	assert.True(t, payload.Total.Equal(decimal.NewFromInt(80)))
	require.NotNil(t, payload.PromoCode)
	assert.Equal(t, "FLAT20", *payload.PromoCode)
	assert.Equal(t, "a@b.c", payload.UserEmail)

	assert.Equal(t, 2, f.count(t), "cart survives until completion")

	attempt, err := f.svc.Complete(context.Background(), f.owner, res.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, AttemptStatusCompleted, attempt.Status)
	assert.Equal(t, 0, f.count(t))
	assert.Equal(t, []string{"user:u1"}, f.promos.removed)
}

func TestComplete_RejectsOtherOwner(t *testing.T) {
	f := newFixture(t)
	f.add(t, "p1", "Beamer Lite", "10", 3)

	res, err := f.svc.Begin(context.Background(), Request{Owner: f.owner, Token: "tok"})
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), cart.Owner{UserID: "intruder"}, res.AttemptID)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
	assert.Equal(t, 1, f.count(t))

	_, err = f.svc.Complete(context.Background(), f.owner, "missing")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestPayloadMarshalsNumbers(t *testing.T) {
	code := "SAVE"
	payload := Payload{
		Items: []PayloadItem{{
			ProductID:              "p1",
			Name:                   "Beamer",
			UnitPriceAfterDiscount: decimal.RequireFromString("8.991"),
			Quantity:               1,
		}},
		Subtotal:  decimal.NewFromInt(10),
		Discount:  decimal.NewFromInt(1),
		Total:     decimal.NewFromInt(9),
		PromoCode: &code,
	}

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"items":[{"productId":"p1","name":"Beamer","game":"","price":8.99,"quantity":1,"image":""}],
		"subtotal":10.00,"discount":1.00,"total":9.00,"promoCode":"SAVE","userEmail":""
	}`, string(data))
}
