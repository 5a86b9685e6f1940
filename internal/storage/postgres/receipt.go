package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/receipt"
)

const (
	saveReceiptSQL = `INSERT INTO receipts (
		order_id, status, customer_name, delivery_address, delivery_city,
		lines, subtotal, delivery_fee, tax, total, placed_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (order_id) DO UPDATE SET
		status = EXCLUDED.status,
		customer_name = EXCLUDED.customer_name,
		delivery_address = EXCLUDED.delivery_address,
		delivery_city = EXCLUDED.delivery_city,
		lines = EXCLUDED.lines,
		subtotal = EXCLUDED.subtotal,
		delivery_fee = EXCLUDED.delivery_fee,
		tax = EXCLUDED.tax,
		total = EXCLUDED.total,
		placed_at = EXCLUDED.placed_at`

	getReceiptSQL = `SELECT order_id, status, customer_name, delivery_address, delivery_city,
		lines, subtotal, delivery_fee, tax, total, placed_at
	FROM receipts WHERE order_id = $1`

	setReceiptStatusSQL = `UPDATE receipts SET status = $2 WHERE order_id = $1`
)

var _ receipt.Repository = (*ReceiptRepository)(nil)

// ReceiptRepository implements receipt.Repository backed by PostgreSQL.
// Money columns are NUMERIC and scanned into decimal.Decimal.
type ReceiptRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptRepository returns a ReceiptRepository that uses the given pool.
func NewReceiptRepository(pool *pgxpool.Pool) *ReceiptRepository {
	return &ReceiptRepository{pool: pool}
}

// Save upserts rec. The lines are stored as the cart wire format in a JSONB
// column.
func (r *ReceiptRepository) Save(ctx context.Context, rec *receipt.Receipt) error {
	_, err := r.pool.Exec(ctx, saveReceiptSQL,
		rec.OrderID, string(rec.Status), rec.CustomerName, rec.DeliveryAddress, rec.DeliveryCity,
		cart.Encode(rec.Lines),
		rec.Totals.Subtotal, rec.Totals.DeliveryFee, rec.Totals.Tax, rec.Totals.Total,
		rec.PlacedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "save receipt %q", rec.OrderID)
	}
	return nil
}

// Get loads the receipt for orderID, or receipt.ErrNotFound.
func (r *ReceiptRepository) Get(ctx context.Context, orderID string) (*receipt.Receipt, error) {
	var (
		rec    receipt.Receipt
		status string
		lines  []byte
	)
	err := r.pool.QueryRow(ctx, getReceiptSQL, orderID).Scan(
		&rec.OrderID, &status, &rec.CustomerName, &rec.DeliveryAddress, &rec.DeliveryCity,
		&lines,
		&rec.Totals.Subtotal, &rec.Totals.DeliveryFee, &rec.Totals.Tax, &rec.Totals.Total,
		&rec.PlacedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, receipt.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get receipt %q", orderID)
	}

	rec.Status = receipt.Status(status)
	rec.Lines, err = cart.Decode(lines)
	if err != nil {
		return nil, errors.Wrapf(err, "decode receipt %q lines", orderID)
	}
	return &rec, nil
}

// SetStatus updates the status of an existing receipt.
func (r *ReceiptRepository) SetStatus(ctx context.Context, orderID string, status receipt.Status) error {
	tag, err := r.pool.Exec(ctx, setReceiptStatusSQL, orderID, string(status))
	if err != nil {
		return errors.Wrapf(err, "set receipt %q status", orderID)
	}
	if tag.RowsAffected() == 0 {
		return receipt.ErrNotFound
	}
	return nil
}
