// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/xcybeamer/storefront-backend/internal/config"
	"gorm.io/gorm"
)

// ErrNoOwner is returned when a request carries neither a user nor a session
var ErrNoOwner = errors.New("cart owner required")

// Owner identifies whose cart is being used. A signed-in user wins over
// the guest session.
type Owner struct {
	UserID    string
	SessionID string
}

// IsUser reports whether the owner is a signed-in user
func (o Owner) IsUser() bool {
	return strings.TrimSpace(o.UserID) != ""
}

// Key is a stable identifier used for logging and the promo session
func (o Owner) Key() string {
	if o.IsUser() {
		return UserKey(o.UserID)
	}
	return "session:" + o.SessionID
}

// PersistenceFactory picks the persistence for an owner
type PersistenceFactory func(owner Owner) Persistence

// Service opens cart stores for users and guest sessions
type Service struct {
	persistenceFor PersistenceFactory
	log            logrus.FieldLogger
}

// NewService keeps guest carts in redis and user carts in the database
func NewService(db *gorm.DB, redisClient redis.Cmdable, cfg *config.Config, log logrus.FieldLogger) *Service {
	ttl := cfg.Cart.SessionTTL
	return NewServiceWith(func(owner Owner) Persistence {
		if owner.IsUser() {
			return NewDBPersistence(db, UserKey(owner.UserID))
		}
		return NewRedisPersistence(redisClient, owner.SessionID, ttl)
	}, log)
}

// NewServiceWith creates a service backed by an arbitrary persistence factory
func NewServiceWith(factory PersistenceFactory, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		persistenceFor: factory,
		log:            log.WithField("component", "cart"),
	}
}

// Open returns the loaded cart of owner
func (s *Service) Open(ctx context.Context, owner Owner) (*Store, error) {
	if !owner.IsUser() && strings.TrimSpace(owner.SessionID) == "" {
		return nil, ErrNoOwner
	}

	store := NewStore(s.persistenceFor(owner), s.log.WithField("owner", owner.Key()))
	store.Load(ctx)
	return store, nil
}

// Merge moves a guest cart into a user's cart on sign-in. Quantities of
// products present in both are summed and the guest cart is cleared.
func (s *Service) Merge(ctx context.Context, userID, sessionID string) (*Store, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrNoOwner
	}

	userCart, err := s.Open(ctx, Owner{UserID: userID})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sessionID) == "" {
		return userCart, nil
	}

	guestCart, err := s.Open(ctx, Owner{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	if guestCart.IsEmpty() {
		return userCart, nil
	}

	items := guestCart.Items()
	userCart.absorb(ctx, items)
	guestCart.Clear(ctx)

	s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": sessionID,
		"merged":     len(items),
	}).Info("Merged guest cart into user cart")

	return userCart, nil
}
