// Package cart owns the local shopping cart. Every mutation is applied in
// memory, persisted and announced to subscribers before it returns.
package cart

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/shoperr"
	"storefront/internal/storage"
)

// Listener receives the cart after a mutation. Listeners run on the
// mutating goroutine and must not mutate the cart themselves.
type Listener func(models.Cart)

type Store struct {
	// opMu orders mutation, persistence and notification as one step.
	opMu sync.Mutex

	mu      sync.RWMutex
	current models.Cart

	listenersMu sync.RWMutex
	listeners   map[int]Listener
	nextID      int

	storage storage.Store
	log     *zap.Logger
	newID   func() string
}

type Option func(*Store)

// WithIDGenerator replaces the uuid line id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New restores the cart from storage. Absent or malformed data yields an
// empty cart.
func New(store storage.Store, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		storage:   store,
		log:       log.Named("cart"),
		listeners: make(map[int]Listener),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	var restored models.Cart
	err := storage.LoadJSON(context.Background(), store, storage.KeyCart, &restored)
	switch {
	case err == nil:
		s.current = restored
		s.log.Info("cart restored", zap.Int("lines", restored.Len()))
	case errors.Is(err, storage.ErrNotFound):
	default:
		s.log.Warn("discarding stored cart", zap.Error(err))
	}
	return s
}

// Snapshot returns the current cart. The value is immutable.
func (s *Store) Snapshot() models.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Add puts qty of product in the cart, merging with an existing line for the
// same product.
func (s *Store) Add(product models.Product, qty int) error {
	if err := validateProduct(product, qty); err != nil {
		return err
	}
	s.mutate("add", func(items []models.CartItem) []models.CartItem {
		for i := range items {
			if items[i].ProductID == product.ID {
				items[i].Quantity += qty
				return items
			}
		}
		return append(items, models.CartItem{
			ID:        s.newID(),
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  qty,
			ImageURL:  product.ImageURL,
		})
	})
	return nil
}

// UpdateQuantity sets the quantity of the line holding productID. A quantity
// of zero or less removes the line. Unknown products are ignored.
func (s *Store) UpdateQuantity(productID string, qty int) {
	if qty <= 0 {
		s.Remove(productID)
		return
	}
	s.mutate("update", func(items []models.CartItem) []models.CartItem {
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity = qty
				break
			}
		}
		return items
	})
}

// Remove deletes the line holding productID. Unknown products are ignored.
func (s *Store) Remove(productID string) {
	s.mutate("remove", func(items []models.CartItem) []models.CartItem {
		out := items[:0]
		for _, item := range items {
			if item.ProductID != productID {
				out = append(out, item)
			}
		}
		return out
	})
}

func (s *Store) Clear() {
	s.mutate("clear", func([]models.CartItem) []models.CartItem {
		return nil
	})
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Store) mutate(op string, apply func([]models.CartItem) []models.CartItem) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	next := models.NewCart(apply(s.current.Items()))
	s.current = next
	s.mu.Unlock()

	if err := storage.SaveJSON(context.Background(), s.storage, storage.KeyCart, next); err != nil {
		s.log.Error("persist cart failed", zap.String("op", op), zap.Error(err))
	}

	s.log.Debug("cart changed", zap.String("op", op), zap.Int("lines", next.Len()), zap.Int("items", next.ItemCount()))
	s.notify(next)
}

// notify calls listeners in subscription order.
func (s *Store) notify(c models.Cart) {
	s.listenersMu.RLock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

func validateProduct(p models.Product, qty int) error {
	fields := map[string]string{}
	if strings.TrimSpace(p.ID) == "" {
		fields["productId"] = "is required"
	}
	if p.Price.LessThan(decimal.Zero) {
		fields["price"] = "must not be negative"
	}
	if qty < 1 {
		fields["quantity"] = "must be at least 1"
	}
	if len(fields) > 0 {
		return shoperr.NewValidation(fields)
	}
	return nil
}
