package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/trust"
)

// Needs a live redis; set TEST_REDIS_ADDR to run.
func newTestCache(t *testing.T) *MetricsCache {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	c := NewMetricsCache(client, time.Minute)
	c.prefix = "test:" + uuid.NewString() + ":"
	return c
}

func TestMetricsCache_RoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	got, err := c.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Nil(t, got, "miss is not an error")

	m := trust.VendorMetrics{VendorID: "v1", FeedbackCount: 3, TrustScore: 27.5, LastCalculated: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, c.Put(ctx, m))

	got, err = c.Get(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m.TrustScore, got.TrustScore)
	assert.True(t, m.LastCalculated.Equal(got.LastCalculated))

	ttl, err := c.client.TTL(ctx, c.key("v1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Delete(ctx, "v1"))
	got, err = c.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, c.Delete(ctx, "v1"), "deleting a missing key is fine")
}

func TestMetricsCache_CorruptEntryIsDropped(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.client.Set(ctx, c.key("bad"), "{not json", time.Minute).Err())
	_, err := c.Get(ctx, "bad")
	assert.Error(t, err)

	n, err := c.client.Exists(ctx, c.key("bad")).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
