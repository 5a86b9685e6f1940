// Package wishlist keeps saved-for-later products. It shares the cart's
// storage layout and change-notification style on its own key and topic.
package wishlist

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/pkg/broadcast"
)

// Service owns the wishlist key. Entries are cart lines with quantity 1.
type Service struct {
	store   *cart.Store
	changed *broadcast.Topic[broadcast.Signal]
	lg      *zap.Logger

	mu sync.Mutex
}

// NewService creates a wishlist Service.
func NewService(store *cart.Store, changed *broadcast.Topic[broadcast.Signal], lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{store: store, changed: changed, lg: lg}
}

// Load returns the saved entries.
func (s *Service) Load(ctx context.Context) cart.Cart {
	return s.store.Load(ctx)
}

// Add saves p. Adding an already saved product changes nothing but still
// notifies subscribers.
func (s *Service) Add(ctx context.Context, p product.Product) (cart.Cart, error) {
	if p.ID == "" {
		return nil, product.ErrMissingID
	}
	return s.mutate(ctx, "add", func(c cart.Cart) cart.Cart {
		if c.Contains(p.ID) {
			return c
		}
		return cart.AddItem(c, p, 1)
	})
}

// Remove drops productID from the wishlist.
func (s *Service) Remove(ctx context.Context, productID string) (cart.Cart, error) {
	return s.mutate(ctx, "remove", func(c cart.Cart) cart.Cart { return cart.Remove(c, productID) })
}

// Toggle saves p when absent and removes it when present. It reports
// whether p is saved afterwards.
func (s *Service) Toggle(ctx context.Context, p product.Product) (bool, error) {
	if p.ID == "" {
		return false, product.ErrMissingID
	}
	var saved bool
	_, err := s.mutate(ctx, "toggle", func(c cart.Cart) cart.Cart {
		if c.Contains(p.ID) {
			return cart.Remove(c, p.ID)
		}
		saved = true
		return cart.AddItem(c, p, 1)
	})
	return saved, err
}

// Contains reports whether productID is saved.
func (s *Service) Contains(ctx context.Context, productID string) bool {
	return s.Load(ctx).Contains(productID)
}

// Clear removes every entry.
func (s *Service) Clear(ctx context.Context) error {
	_, err := s.mutate(ctx, "clear", func(cart.Cart) cart.Cart { return cart.Cart{} })
	return err
}

// Subscribe registers fn for wishlist change signals.
func (s *Service) Subscribe(fn func(broadcast.Signal)) (unsubscribe func()) {
	return s.changed.Subscribe(fn)
}

func (s *Service) mutate(ctx context.Context, op string, apply func(cart.Cart) cart.Cart) (cart.Cart, error) {
	s.mu.Lock()
	next := apply(s.store.Load(ctx))
	err := s.store.Save(ctx, next)
	s.mu.Unlock()

	if err != nil {
		s.lg.Error("Wishlist mutation not saved", zap.String("op", op), zap.Error(err))
		return nil, errors.Wrap(err, op)
	}
	s.changed.Publish(broadcast.Signal{})
	return next, nil
}
