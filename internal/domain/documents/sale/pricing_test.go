package sale

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestUnitPrice(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		tax      string
		discount string
		want     string
	}{
		{"tax only", "100", "21", "0", "121"},
		{"tax and discount", "100", "21", "10", "108.9"},
		{"no tax", "50", "0", "0", "50"},
		{"reduced rate", "200", "10.5", "0", "221"},
		{"negative discount ignored", "100", "21", "-5", "121"},
		{"cents stay exact", "0.1", "21", "0", "0.121"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnitPrice(d(tt.base), d(tt.tax), d(tt.discount))
			assert.True(t, d(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestPriceLines_Total(t *testing.T) {
	lines := []PriceInput{
		{BasePrice: d("100"), TaxRate: d("21"), Quantity: 2},
		{BasePrice: d("10"), TaxRate: d("0"), Quantity: 3},
	}
	priced, total := PriceLines(lines, d("0"))

	assert.True(t, d("242").Equal(priced[0].Subtotal))
	assert.True(t, d("30").Equal(priced[1].Subtotal))
	assert.True(t, d("272").Equal(total))
}

func TestPriceLines_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for range 200 {
		n := rng.Intn(5) + 1
		lines := make([]PriceInput, n)
		for i := range lines {
			lines[i] = PriceInput{
				BasePrice: decimal.New(rng.Int63n(1_000_000), -2),
				TaxRate:   decimal.New(rng.Int63n(2700), -2),
				Quantity:  rng.Int63n(50) + 1,
			}
		}
		discount := decimal.New(rng.Int63n(3000), -2)

		p1, t1 := PriceLines(lines, discount)
		p2, t2 := PriceLines(lines, discount)
		assert.True(t, t1.Equal(t2))

		sum := decimal.Zero
		for i := range p1 {
			assert.True(t, p1[i].Subtotal.Equal(p2[i].Subtotal))
			sum = sum.Add(p1[i].Subtotal)
		}
		assert.True(t, sum.Equal(t1), "total must equal the sum of subtotals")
	}
}
