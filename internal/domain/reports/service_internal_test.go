package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPeriodIsStableWithinCacheWindow(t *testing.T) {
	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	s := &Service{}

	var keys []string
	for _, offset := range []time.Duration{time.Second, 90 * time.Second, 4*time.Minute + 59*time.Second} {
		now := base.Add(offset)
		s.now = func() time.Time { return now }

		p, err := s.period(time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.False(t, p.To.Before(now), "period must include now")
		assert.Equal(t, base.Add(dashboardTTL), p.To)
		keys = append(keys, cacheKey(p))
	}
	assert.Equal(t, keys[0], keys[1])
	assert.Equal(t, keys[0], keys[2])

	next := base.Add(dashboardTTL + time.Second)
	s.now = func() time.Time { return next }
	p, err := s.period(time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.NotEqual(t, keys[0], cacheKey(p))
}

func TestExplicitPeriodIsKeptAsGiven(t *testing.T) {
	s := &Service{now: time.Now}
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 5, 2, 13, 7, 21, 0, time.UTC)

	p, err := s.period(from, to)
	require.NoError(t, err)
	assert.Equal(t, from, p.From)
	assert.Equal(t, to, p.To)
}
