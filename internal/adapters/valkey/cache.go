package valkey

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/halfway/internal/pkg/metrics"
)

// Cache is the Valkey-backed implementation of ports.CacheService. All
// values are opaque byte blobs; callers own serialization. Hit and miss
// counters are labelled by key family so dashboards can tell venue
// lookups from match-run reads.
type Cache struct {
	client valkey.Client
}

// IsMiss reports whether err is a cache miss rather than a transport or
// server failure. Callers must not depend on the miss error's text.
func IsMiss(err error) bool {
	return valkey.IsValkeyNil(err)
}

// New dials a single Valkey node.
func New(addr string) (*Cache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Cache{client: client}, nil
}

// Get returns the value at key, or a valkey nil error on a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	switch {
	case err == nil:
		metrics.CacheHits.WithLabelValues(keyFamily(key)).Inc()
		return b, nil
	case valkey.IsValkeyNil(err):
		metrics.CacheMisses.WithLabelValues(keyFamily(key)).Inc()
	}
	return nil, err
}

// Set stores value under key with a TTL in seconds.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	ttl := time.Duration(ttlSeconds) * time.Second
	return c.client.Do(ctx,
		c.client.B().Set().Key(key).Value(valkey.BinaryString(value)).Ex(ttl).Build(),
	).Error()
}

// Delete removes a key. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error()
}

// Close releases the client.
func (c *Cache) Close() {
	c.client.Close()
}

// keyFamily maps a cache key to a low-cardinality metric label using its
// first two segments, e.g. "venues:nearby:-34.9:-57.9" -> "venues:nearby".
func keyFamily(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 2 {
		return parts[0]
	}
	return parts[0] + ":" + parts[1]
}
