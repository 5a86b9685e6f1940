package receipt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/storage"
)

var _ Repository = (*KVRepository)(nil)

// KVRepository stores each receipt as a JSON document under "orders/<id>".
type KVRepository struct {
	kv storage.KV
}

// NewKVRepository returns a KVRepository backed by kv.
func NewKVRepository(kv storage.KV) *KVRepository {
	return &KVRepository{kv: kv}
}

type receiptJSON struct {
	OrderID         string          `json:"order_id"`
	Status          Status          `json:"status"`
	CustomerName    string          `json:"customer_name"`
	DeliveryAddress string          `json:"delivery_address"`
	DeliveryCity    string          `json:"delivery_city"`
	Lines           json.RawMessage `json:"lines"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	PlacedAt        time.Time       `json:"placed_at"`
}

func key(orderID string) string {
	return "orders/" + orderID
}

// Save writes r, overwriting an earlier receipt for the same order.
func (k *KVRepository) Save(ctx context.Context, r *Receipt) error {
	data, err := json.Marshal(receiptJSON{
		OrderID:         r.OrderID,
		Status:          r.Status,
		CustomerName:    r.CustomerName,
		DeliveryAddress: r.DeliveryAddress,
		DeliveryCity:    r.DeliveryCity,
		Lines:           cart.Encode(r.Lines),
		Subtotal:        r.Totals.Subtotal,
		DeliveryFee:     r.Totals.DeliveryFee,
		Tax:             r.Totals.Tax,
		Total:           r.Totals.Total,
		PlacedAt:        r.PlacedAt,
	})
	if err != nil {
		return errors.Wrap(err, "marshal receipt")
	}
	if err := k.kv.Set(ctx, key(r.OrderID), data); err != nil {
		return errors.Wrapf(err, "save receipt %q", r.OrderID)
	}
	return nil
}

// Get loads the receipt for orderID.
func (k *KVRepository) Get(ctx context.Context, orderID string) (*Receipt, error) {
	data, err := k.kv.Get(ctx, key(orderID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "read receipt %q", orderID)
	}

	var rj receiptJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return nil, errors.Wrapf(err, "unmarshal receipt %q", orderID)
	}
	lines, err := cart.Decode(rj.Lines)
	if err != nil {
		return nil, errors.Wrapf(err, "decode receipt %q lines", orderID)
	}

	return &Receipt{
		OrderID:         rj.OrderID,
		Status:          rj.Status,
		CustomerName:    rj.CustomerName,
		DeliveryAddress: rj.DeliveryAddress,
		DeliveryCity:    rj.DeliveryCity,
		Lines:           lines,
		Totals: cart.Totals{
			Subtotal:    rj.Subtotal,
			DeliveryFee: rj.DeliveryFee,
			Tax:         rj.Tax,
			Total:       rj.Total,
		},
		PlacedAt: rj.PlacedAt,
	}, nil
}

// SetStatus updates the status of an existing receipt.
func (k *KVRepository) SetStatus(ctx context.Context, orderID string, status Status) error {
	r, err := k.Get(ctx, orderID)
	if err != nil {
		return err
	}
	r.Status = status
	return k.Save(ctx, r)
}
