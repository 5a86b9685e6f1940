package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name         string
		cart         Cart
		rates        Rates
		wantSubtotal decimal.Decimal
		wantTax      decimal.Decimal
		wantTotal    decimal.Decimal
	}{
		{
			name: "two lines with default rates",
			cart: Cart{
				{ProductID: "p1", UnitPrice: d("25000"), Quantity: 2},
				{ProductID: "p2", UnitPrice: d("45000"), Quantity: 1},
			},
			rates:        DefaultRates,
			wantSubtotal: d("95000"),
			wantTax:      d("17100"),
			wantTotal:    d("122100"),
		},
		{
			name:         "empty cart still pays delivery",
			cart:         Cart{},
			rates:        DefaultRates,
			wantSubtotal: d("0"),
			wantTax:      d("0"),
			wantTotal:    d("10000"),
		},
		{
			name: "tax rounds half away from zero",
			cart: Cart{
				{ProductID: "p1", UnitPrice: d("25"), Quantity: 1},
			},
			rates:        Rates{DeliveryFee: d("0"), TaxRate: d("0.1")},
			wantSubtotal: d("25"),
			wantTax:      d("3"),
			wantTotal:    d("28"),
		},
		{
			name: "fractional prices collapse to whole units",
			cart: Cart{
				{ProductID: "p1", UnitPrice: d("10.4"), Quantity: 3},
			},
			rates:        Rates{DeliveryFee: d("5"), TaxRate: d("0")},
			wantSubtotal: d("31"),
			wantTax:      d("0"),
			wantTotal:    d("36"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(tt.cart, tt.rates)

			assert.True(t, tt.wantSubtotal.Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			assert.True(t, tt.wantTax.Equal(got.Tax), "tax %s", got.Tax)
			assert.True(t, tt.wantTotal.Equal(got.Total), "total %s", got.Total)
			assert.True(t, got.Total.Equal(got.Subtotal.Add(got.DeliveryFee).Add(got.Tax)))
		})
	}
}

func TestComputeTotals_Pure(t *testing.T) {
	c := Cart{
		{ProductID: "p1", UnitPrice: d("25000"), Quantity: 2},
		{ProductID: "p2", UnitPrice: d("45000"), Quantity: 1},
	}
	before := c.Clone()

	first := ComputeTotals(c, DefaultRates)
	second := ComputeTotals(c, DefaultRates)

	assert.Equal(t, first, second)
	assert.Equal(t, before, c)
}

func TestFormatter(t *testing.T) {
	f := NewFormatter("en-US")
	assert.Equal(t, "122,100", f.Format(d("122100")))
	assert.Equal(t, "0", f.Format(decimal.Zero))

	fallback := NewFormatter("not a locale!")
	assert.Equal(t, "1,000", fallback.Format(d("1000")))
}
