package checkout

import "context"

// OrderItem is one {item_id, quantity} entry of an order request.
type OrderItem struct {
	ItemID   string
	Quantity int
}

// OrderRequest is the body sent to the order API.
type OrderRequest struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	DeliveryAddress string
	DeliveryCity    string
	DeliveryNotes   string
	Items           []OrderItem
}

// PlacedOrder is the order API's answer to a successful submission.
type PlacedOrder struct {
	ID string
}

// OrderAPI is the remote order service. Implementations report a rejected
// credential as ErrUnauthorized, other non-2xx answers as *RejectedError and
// transport failures as *NetworkError.
type OrderAPI interface {
	PlaceOrder(ctx context.Context, token, idempotencyKey string, req OrderRequest) (*PlacedOrder, error)
	CancelOrder(ctx context.Context, token, orderID string) error
}
