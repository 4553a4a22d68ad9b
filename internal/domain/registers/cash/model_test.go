package cash

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClassifyDeviation(t *testing.T) {
	tests := []struct {
		expected   string
		difference string
		want       Deviation
	}{
		{"1000", "0", DeviationNormal},
		{"1000", "10", DeviationNormal},
		{"1000", "-10", DeviationNormal},
		{"1000", "10.01", DeviationWarning},
		{"1300", "-50", DeviationWarning},
		{"1000", "50", DeviationWarning},
		{"1000", "50.5", DeviationCritical},
		{"0", "0", DeviationNormal},
		{"0", "1", DeviationCritical},
	}
	for _, tt := range tests {
		got := ClassifyDeviation(decimal.RequireFromString(tt.expected), decimal.RequireFromString(tt.difference))
		assert.Equal(t, tt.want, got, "expected %s difference %s", tt.expected, tt.difference)
	}
}

func TestExpected(t *testing.T) {
	got := Expected(decimal.NewFromInt(1000), Totals{
		Ingresos: decimal.NewFromInt(500),
		Egresos:  decimal.NewFromInt(200),
	})
	assert.True(t, decimal.NewFromInt(1300).Equal(got))
}
