package sale

import (
	"github.com/shopspring/decimal"

	"distripos/internal/core/types"
)

// PriceInput is what pricing needs to know about one line.
type PriceInput struct {
	BasePrice decimal.Decimal
	TaxRate   decimal.Decimal
	Quantity  int64
}

// PricedLine is the result for one line.
type PricedLine struct {
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// UnitPrice returns base × (1 + tax/100), then × (1 − discount/100) when the
// discount is positive. No rounding is applied.
func UnitPrice(base, taxRate, discount decimal.Decimal) decimal.Decimal {
	price := types.AddPercent(base, taxRate)
	if discount.IsPositive() {
		price = types.SubtractPercent(price, discount)
	}
	return price
}

// PriceLines prices every line and returns the total. It is a pure function.
func PriceLines(lines []PriceInput, discount decimal.Decimal) ([]PricedLine, decimal.Decimal) {
	out := make([]PricedLine, len(lines))
	total := decimal.Zero
	for i, l := range lines {
		unit := UnitPrice(l.BasePrice, l.TaxRate, discount)
		subtotal := unit.Mul(decimal.NewFromInt(l.Quantity))
		out[i] = PricedLine{UnitPrice: unit, Subtotal: subtotal}
		total = total.Add(subtotal)
	}
	return out, total
}
