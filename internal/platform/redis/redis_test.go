package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedSummary struct {
	Total int     `json:"total"`
	Rate  float64 `json:"rate"`
}

// TestCacheRoundTrip runs when EXERCISE_TEST_REDIS_ADDR points at a Redis server.
func TestCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("EXERCISE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("EXERCISE_TEST_REDIS_ADDR not set - skipping")
	}

	ctx := context.Background()
	c, err := NewCache(ctx, Config{Addr: addr}, "test:"+uuid.NewString()+":")
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	var got cachedSummary
	hit, err := c.Get(ctx, "summary", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "summary", cachedSummary{Total: 4, Rate: 75}, time.Minute))
	hit, err = c.Get(ctx, "summary", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, cachedSummary{Total: 4, Rate: 75}, got)

	require.NoError(t, c.Delete(ctx, "summary"))
	hit, err = c.Get(ctx, "summary", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestNewCacheUnreachable(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := NewCache(ctx, Config{Addr: "127.0.0.1:1"}, "")
	assert.Error(t, err)
}
