package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListFilter_Normalize(t *testing.T) {
	f := ListFilter{Limit: 0, Offset: -3}.Normalize()
	assert.Equal(t, DefaultLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)

	f = ListFilter{Limit: 10000}.Normalize()
	assert.Equal(t, MaxLimit, f.Limit)
}

func TestNewListResult_NilItemsBecomeEmpty(t *testing.T) {
	r := NewListResult[int](nil, 0, DefaultListFilter())
	assert.NotNil(t, r.Items)
	assert.Empty(t, r.Items)
}
