package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/pkg/broadcast"
)

// ErrInvalidQuantity is returned when an add asks for fewer than one unit or
// would take a line past MaxQuantity.
var ErrInvalidQuantity = errors.New("quantity must be between 1 and 9999")

// Service is the only writer of the cart key. Every mutation reads the whole
// cart, applies a pure operation, saves once and then publishes exactly one
// change signal.
type Service struct {
	store   *Store
	changed *broadcast.Topic[broadcast.Signal]
	rates   Rates
	lg      *zap.Logger

	// mu serialises read-modify-write cycles within the process.
	mu sync.Mutex
}

// NewService creates a cart Service.
func NewService(store *Store, changed *broadcast.Topic[broadcast.Signal], rates Rates, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{
		store:   store,
		changed: changed,
		rates:   rates,
		lg:      lg,
	}
}

// Load returns the current cart.
func (s *Service) Load(ctx context.Context) Cart {
	return s.store.Load(ctx)
}

// Add puts qty units of p into the cart.
func (s *Service) Add(ctx context.Context, p product.Product, qty int) (Cart, error) {
	if qty < 1 || qty > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	if p.ID == "" {
		return nil, product.ErrMissingID
	}
	return s.mutateErr(ctx, "add", func(c Cart) (Cart, error) {
		if i := c.Index(p.ID); i >= 0 && c[i].Quantity > MaxQuantity-qty {
			return nil, ErrInvalidQuantity
		}
		return AddItem(c, p, qty), nil
	})
}

// Increase adds one unit of an existing line.
func (s *Service) Increase(ctx context.Context, productID string) (Cart, error) {
	return s.mutate(ctx, "increase", func(c Cart) Cart { return Increase(c, productID) })
}

// Decrease removes one unit, dropping the line when it reaches zero.
func (s *Service) Decrease(ctx context.Context, productID string) (Cart, error) {
	return s.mutate(ctx, "decrease", func(c Cart) Cart { return Decrease(c, productID) })
}

// Remove drops the line for productID.
func (s *Service) Remove(ctx context.Context, productID string) (Cart, error) {
	return s.mutate(ctx, "remove", func(c Cart) Cart { return Remove(c, productID) })
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context) error {
	_, err := s.mutate(ctx, "clear", func(Cart) Cart { return Cart{} })
	return err
}

// Subscribe registers fn for cart change signals.
func (s *Service) Subscribe(fn func(broadcast.Signal)) (unsubscribe func()) {
	return s.changed.Subscribe(fn)
}

// Count returns the number of units in the cart (the navbar badge).
func (s *Service) Count(ctx context.Context) int {
	return s.Load(ctx).Count()
}

// Contains reports whether productID is already in the cart.
func (s *Service) Contains(ctx context.Context, productID string) bool {
	return s.Load(ctx).Contains(productID)
}

// Totals computes the order totals for the current cart.
func (s *Service) Totals(ctx context.Context) Totals {
	return ComputeTotals(s.Load(ctx), s.rates)
}

// Rates returns the pricing rules the service computes totals with.
func (s *Service) Rates() Rates {
	return s.rates
}

func (s *Service) mutate(ctx context.Context, op string, apply func(Cart) Cart) (Cart, error) {
	return s.mutateErr(ctx, op, func(c Cart) (Cart, error) { return apply(c), nil })
}

// mutateErr is mutate for operations that can refuse; a refusal saves and
// publishes nothing.
func (s *Service) mutateErr(ctx context.Context, op string, apply func(Cart) (Cart, error)) (Cart, error) {
	s.mu.Lock()
	next, err := apply(s.store.Load(ctx))
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	err = s.store.Save(ctx, next)
	s.mu.Unlock()

	if err != nil {
		s.lg.Error("Cart mutation not saved", zap.String("op", op), zap.Error(err))
		return nil, errors.Wrap(err, op)
	}

	s.lg.Debug("Cart changed", zap.String("op", op), zap.Int("lines", len(next)))
	s.changed.Publish(broadcast.Signal{})
	return next, nil
}
