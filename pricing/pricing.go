// Package pricing computes order totals. The engine is pure: totals are a
// deterministic function of the line items and the configuration supplied
// at construction.
package pricing

import "github.com/shopspring/decimal"

// Config holds the pricing knobs. They are injected here rather than read
// from the environment so the engine stays deterministic.
type Config struct {
	TaxRate               decimal.Decimal // e.g. 0.08 for 8%
	FreeShippingThreshold decimal.Decimal // subtotal above this ships free
	ShippingFee           decimal.Decimal // flat fee otherwise
}

// Line is one priced line item.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals is the priced breakdown of an order. Total always equals
// Subtotal + Tax + Shipping exactly.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// Engine computes totals from line items.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Quote prices the given lines. Tax is rounded to cents; shipping is waived
// when the subtotal exceeds the free-shipping threshold.
func (e *Engine) Quote(lines []Line) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	tax := subtotal.Mul(e.cfg.TaxRate).Round(2)

	shipping := e.cfg.ShippingFee
	if subtotal.GreaterThan(e.cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

// FormatAmount renders a monetary value as a two-decimal currency string.
// Display only; never stored.
func FormatAmount(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
