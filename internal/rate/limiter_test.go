package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "1.2.3.4|/api/auth/login", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i)
		assert.Equal(t, int64(3-i), res.Remaining)
	}

	res, err := l.Allow(ctx, "1.2.3.4|/api/auth/login", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(4), res.CurrentHits)
	assert.GreaterOrEqual(t, res.RetryAfter, time.Second)

	// Otra key no comparte contador
	res, err = l.Allow(ctx, "5.6.7.8|/api/auth/login", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiter_NewWindowResets(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	_, _ = l.Allow(ctx, "k", 1, time.Minute)
	res, _ := l.Allow(ctx, "k", 1, time.Minute)
	assert.False(t, res.Allowed)

	l.now = func() time.Time { return base.Add(time.Minute) }
	res, err := l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNewResult(t *testing.T) {
	res := newResult(5, 4, 0, 30*time.Second)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	assert.Equal(t, 30*time.Second, res.RetryAfter)
}
