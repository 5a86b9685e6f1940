package cart

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Rates holds the fixed pricing rules applied on top of the cart subtotal.
type Rates struct {
	DeliveryFee decimal.Decimal
	TaxRate     decimal.Decimal
}

// DefaultRates are the storefront's standard delivery fee and tax rate.
var DefaultRates = Rates{
	DeliveryFee: decimal.NewFromInt(10000),
	TaxRate:     decimal.RequireFromString("0.18"),
}

// Totals is derived from a cart on demand and never stored.
type Totals struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
}

// ComputeTotals applies r to c. Amounts are whole currency units: subtotal
// and tax are rounded half away from zero, and Total is the exact sum of the
// rounded parts. The delivery fee is charged even for an empty cart.
func ComputeTotals(c Cart, r Rates) Totals {
	subtotal := decimal.Zero
	for _, l := range c {
		subtotal = subtotal.Add(l.Subtotal())
	}
	subtotal = subtotal.Round(0)
	fee := r.DeliveryFee.Round(0)
	tax := subtotal.Mul(r.TaxRate).Round(0)

	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Tax:         tax,
		Total:       subtotal.Add(fee).Add(tax),
	}
}

// Formatter renders whole-unit amounts with locale-aware digit grouping.
type Formatter struct {
	p *message.Printer
}

// NewFormatter returns a Formatter for the given BCP 47 locale. Unknown or
// malformed locales fall back to English.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Formatter{p: message.NewPrinter(tag)}
}

// Format renders d rounded to a whole unit, e.g. 122100 -> "122,100".
func (f *Formatter) Format(d decimal.Decimal) string {
	return f.p.Sprintf("%d", d.Round(0).IntPart())
}
