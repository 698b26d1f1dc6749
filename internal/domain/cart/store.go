// internal/domain/cart/store.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Store is the authoritative list of items for one cart. Mutations are
// written through to its Persistence once Load has completed; writes
// are serialized by the store's mutex.
type Store struct {
	mu          sync.Mutex
	persistence Persistence
	log         logrus.FieldLogger
	items       []Item
	loaded      bool
}

// NewStore creates an empty, not yet loaded store
func NewStore(persistence Persistence, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		persistence: persistence,
		log:         log,
		items:       []Item{},
	}
}

// Load hydrates the store from persistence. It never fails: unreadable or
// corrupted state leaves an empty cart and corrupted data is discarded.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []Item{}
	defer func() { s.loaded = true }()

	raw, err := s.persistence.Load(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to read persisted cart, starting empty")
		return
	}
	if raw == nil {
		return
	}

	items, err := decodeItems(raw)
	switch {
	case errors.Is(err, errNoCart), errors.Is(err, errCorruptCart):
		if len(raw) > 0 {
			s.log.WithField("reason", err.Error()).Warn("Discarding invalid persisted cart")
			if clearErr := s.persistence.Clear(ctx); clearErr != nil {
				s.log.WithError(clearErr).Warn("Failed to clear invalid persisted cart")
			}
		}
		return
	case err != nil:
		s.log.WithError(err).Warn("Failed to decode persisted cart")
		return
	}

	s.items = items
}

// Loaded reports whether Load has completed
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Add puts one unit of product in the cart
func (s *Store) Add(ctx context.Context, product Product) Result {
	id := strings.TrimSpace(product.ID)
	if id == "" {
		return Result{Success: false, Message: MessageInvalidProduct}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		s.items[i].Quantity = s.items[i].EffectiveQuantity() + 1
		s.persist(ctx)
		return Result{Success: true, Message: MessageQuantityIncrease}
	}

	price := product.Price
	if price.IsNegative() {
		price = decimal.Zero
	}
	s.items = append(s.items, Item{
		ProductID: id,
		Name:      product.Name,
		Game:      product.Game,
		Category:  product.Category,
		UnitPrice: price,
		Quantity:  1,
		ImageRef:  product.Image,
	})
	s.persist(ctx)
	return Result{Success: true, Message: MessageAdded}
}

// Remove deletes the item with productID; absent ids are ignored
func (s *Store) Remove(ctx context.Context, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(ctx, productID)
}

// UpdateQuantity sets an item's quantity; values below one remove the item
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity < 1 {
		s.remove(ctx, productID)
		return
	}

	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.items[i].Quantity = quantity
	s.persist(ctx)
}

// Clear empties the cart and its persisted state
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []Item{}
	if !s.loaded {
		return
	}
	if err := s.persistence.Clear(ctx); err != nil {
		s.log.WithError(err).Warn("Failed to clear persisted cart")
	}
}

// Total is the sum of unit price × quantity over all items
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Count is the sum of quantities over all items
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, item := range s.items {
		count += item.EffectiveQuantity()
	}
	return count
}

// Items returns a copy of the items in insertion order
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// IsEmpty reports whether the cart has no items
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

// Games returns the distinct games in the cart, sorted
func (s *Store) Games() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.items))
	games := make([]string, 0, len(s.items))
	for _, item := range s.items {
		if item.Game == "" {
			continue
		}
		if _, ok := seen[item.Game]; ok {
			continue
		}
		seen[item.Game] = struct{}{}
		games = append(games, item.Game)
	}
	sort.Strings(games)
	return games
}

// absorb folds items into the cart, summing quantities of matching ids
func (s *Store) absorb(ctx context.Context, items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		if i := s.indexOf(item.ProductID); i >= 0 {
			s.items[i].Quantity = s.items[i].EffectiveQuantity() + item.EffectiveQuantity()
			continue
		}
		item.Quantity = item.EffectiveQuantity()
		s.items = append(s.items, item)
	}
	s.persist(ctx)
}

func (s *Store) remove(ctx context.Context, productID string) {
	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.persist(ctx)
}

func (s *Store) indexOf(productID string) int {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// persist writes the full sequence; callers hold s.mu
func (s *Store) persist(ctx context.Context) {
	if !s.loaded {
		return
	}
	data, err := json.Marshal(s.items)
	if err != nil {
		s.log.WithError(err).Error("Failed to encode cart")
		return
	}
	if err := s.persistence.Save(ctx, data); err != nil {
		s.log.WithError(err).Warn("Failed to persist cart")
	}
}
