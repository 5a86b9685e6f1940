// Package receipt records placed orders for the order-confirmation view and
// for cancellation.
package receipt

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-storefront/internal/domain/cart"
)

// ErrNotFound is returned when no receipt exists for an order id.
var ErrNotFound = errors.New("receipt not found")

// Status is the client-side view of an order's state.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusCancelled Status = "cancelled"
)

// Receipt is a snapshot of a successfully submitted order.
type Receipt struct {
	OrderID         string
	Status          Status
	CustomerName    string
	DeliveryAddress string
	DeliveryCity    string
	Lines           cart.Cart
	Totals          cart.Totals
	PlacedAt        time.Time
}

// Repository persists receipts.
type Repository interface {
	Save(ctx context.Context, r *Receipt) error
	Get(ctx context.Context, orderID string) (*Receipt, error)
	SetStatus(ctx context.Context, orderID string, status Status) error
}
