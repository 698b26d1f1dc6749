package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xcybeamer/storefront-backend/internal/domain/cart"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
)

func TestPromoSessionTransitions(t *testing.T) {
	s := NewPromoSession()
	assert.Nil(t, s.Applied())

	require.NoError(t, s.Begin(" save10 ", now))
	assert.Equal(t, StateValidating, s.State)
	assert.Equal(t, "SAVE10", s.Code)

	require.NoError(t, s.Reject("nope", now))
	assert.Equal(t, StateRejected, s.State)
	assert.Equal(t, "nope", s.Reason)

	require.NoError(t, s.Begin("SAVE10", now))
	require.NoError(t, s.Apply(*activePromo(DiscountPercentage, "10"), now))
	assert.Equal(t, StateApplied, s.State)
	require.NotNil(t, s.Applied())

	assert.ErrorIs(t, s.Begin("OTHER", now), ErrPromoAlreadyApplied)
	assert.Equal(t, StateApplied, s.State)

	s.Remove(now)
	assert.Equal(t, StateNoPromo, s.State)
	assert.Nil(t, s.Applied())
}

func TestPromoSessionRejectsInvalidTransitions(t *testing.T) {
	s := NewPromoSession()

	assert.ErrorIs(t, s.Apply(Promo{}, now), ErrInvalidTransition)
	assert.ErrorIs(t, s.Reject("x", now), ErrInvalidTransition)
	assert.ErrorIs(t, s.Begin("  ", now), ErrPromoCodeRequired)
}

type stubValidator struct {
	promo *Promo
	err   error
	calls int
	code  string
	games []string
}

func (v *stubValidator) ValidatePromo(ctx context.Context, code string, games []string, total decimal.Decimal) (*Promo, error) {
	v.calls++
	v.code = code
	v.games = games
	return v.promo, v.err
}

func newTestPromoService(t *testing.T, validator Validator) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	logger, _ := test.NewNullLogger()
	svc := NewService(NewPromoStore(client, 24*time.Hour), validator, logger)
	svc.now = func() time.Time { return now }
	return svc, mr
}

func TestServiceApplyAndQuote(t *testing.T) {
	ctx := context.Background()
	validator := &stubValidator{promo: activePromo(DiscountPercentage, "10")}
	svc, mr := newTestPromoService(t, validator)
	items := []cart.Item{item("a", "Valorant", "100", 1)}

	session, err := svc.Apply(ctx, "session:s1", "save", items)
	require.NoError(t, err)
	assert.Equal(t, StateApplied, session.State)
	assert.Equal(t, "SAVE", validator.code)
	assert.Equal(t, []string{"Valorant"}, validator.games)
	assert.True(t, mr.Exists("promo:session:session:s1"))

	quote, err := svc.Quote(ctx, "session:s1", items)
	require.NoError(t, err)
	assertMoney(t, "90", quote.Total)

	_, err = svc.Apply(ctx, "session:s1", "OTHER", items)
	assert.ErrorIs(t, err, ErrPromoAlreadyApplied)
	assert.Equal(t, 1, validator.calls)

	require.NoError(t, svc.Remove(ctx, "session:s1"))
	quote, err = svc.Quote(ctx, "session:s1", items)
	require.NoError(t, err)
	assertMoney(t, "100", quote.Total)
	assert.Empty(t, quote.PromoCode)
}

func TestServiceApplyRejected(t *testing.T) {
	ctx := context.Background()
	validator := &stubValidator{err: apperror.New(apperror.CodePromoInvalid, "Promo code expired")}
	svc, _ := newTestPromoService(t, validator)

	session, err := svc.Apply(ctx, "user:1", "OLD", []cart.Item{item("a", "Valorant", "10", 1)})

	require.Error(t, err)
	assert.Equal(t, apperror.CodePromoInvalid, apperror.CodeOf(err))
	assert.Equal(t, StateRejected, session.State)
	assert.Equal(t, "Promo code expired", session.Reason)

	stored, err := svc.Session(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, StateRejected, stored.State)

	validator.err = nil
	validator.promo = activePromo(DiscountFixed, "2")
	session, err = svc.Apply(ctx, "user:1", "NEW", []cart.Item{item("a", "Valorant", "10", 1)})
	require.NoError(t, err)
	assert.Equal(t, StateApplied, session.State)
}

func TestServiceApplyLocallyIneligible(t *testing.T) {
	promo := activePromo(DiscountFixed, "5")
	promo.ApplicableGames = []string{"Apex"}
	svc, _ := newTestPromoService(t, &stubValidator{promo: promo})

	session, err := svc.Apply(context.Background(), "user:1", "APEX5", []cart.Item{item("a", "Valorant", "10", 1)})

	assert.ErrorIs(t, err, ErrPromoNotApplicable)
	assert.Equal(t, StateRejected, session.State)
}

func TestServiceApplyCollaboratorDown(t *testing.T) {
	svc, _ := newTestPromoService(t, &stubValidator{err: errors.New("connection refused")})

	session, err := svc.Apply(context.Background(), "user:1", "SAVE", []cart.Item{item("a", "Valorant", "10", 1)})

	assert.Equal(t, apperror.CodeDependency, apperror.CodeOf(err))
	assert.Equal(t, StateRejected, session.State)
}

func TestPromoStoreIgnoresCorruptEntries(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewPromoStore(client, time.Hour)

	require.NoError(t, mr.Set("promo:session:user:9", "{broken"))

	session, err := store.Get(ctx, "user:9")
	require.NoError(t, err)
	assert.Equal(t, StateNoPromo, session.State)
}
