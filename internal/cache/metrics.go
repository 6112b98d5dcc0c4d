package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"marketplace/internal/trust"
)

const defaultPrefix = "marketplace:vendor_metrics:"

// MetricsCache stores VendorMetrics snapshots in redis as JSON.
type MetricsCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewMetricsCache builds a cache whose entries expire after ttl.
func NewMetricsCache(client *redis.Client, ttl time.Duration) *MetricsCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MetricsCache{client: client, prefix: defaultPrefix, ttl: ttl}
}

func (c *MetricsCache) key(vendorID string) string {
	return c.prefix + vendorID
}

// Get returns the cached snapshot, or nil on a miss.
func (c *MetricsCache) Get(ctx context.Context, vendorID string) (*trust.VendorMetrics, error) {
	raw, err := c.client.Get(ctx, c.key(vendorID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var m trust.VendorMetrics
	if err := json.Unmarshal(raw, &m); err != nil {
		_ = c.client.Del(ctx, c.key(vendorID)).Err()
		return nil, err
	}
	return &m, nil
}

// Put overwrites the snapshot for m.VendorID.
func (c *MetricsCache) Put(ctx context.Context, m trust.VendorMetrics) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(m.VendorID), raw, c.ttl).Err()
}

// Delete drops the snapshot for vendorID. A missing key is not an error.
func (c *MetricsCache) Delete(ctx context.Context, vendorID string) error {
	return c.client.Del(ctx, c.key(vendorID)).Err()
}
