package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddPercent(t *testing.T) {
	got := AddPercent(MustMoney("100"), MustMoney("21"))
	assert.True(t, got.Equal(MustMoney("121")), got.String())
}

func TestSubtractPercent(t *testing.T) {
	got := SubtractPercent(MustMoney("121"), MustMoney("10"))
	assert.True(t, got.Equal(MustMoney("108.9")), got.String())
}

func TestPercentOf(t *testing.T) {
	assert.True(t, PercentOf(MustMoney("50"), MustMoney("1300")).Round(4).Equal(MustMoney("3.8462")))
	assert.True(t, PercentOf(MustMoney("5"), Zero()).IsZero())
}
