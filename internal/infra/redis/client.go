package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis connection used by the audit backend.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks if redis is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Key helpers
const (
	errorsIndexKey      = "audit:errors"
	correctionsIndexKey = "audit:corrections"
	sequenceKey         = "audit:seq"
)

// tiebreakSlots is how many same-millisecond inserts keep their order.
const tiebreakSlots = 1000

func errorKey(id string) string {
	return fmt.Sprintf("audit:error:%s", id)
}

func correctionKey(id string) string {
	return fmt.Sprintf("audit:correction:%s", id)
}

func correctionByErrorKey(errorID string) string {
	return fmt.Sprintf("audit:correction_by_error:%s", errorID)
}

// score orders index members by creation time, then by insertion sequence
// within the same millisecond. Millisecond timestamps scaled by
// tiebreakSlots stay exact in a float64.
func score(t time.Time, seq int64) float64 {
	return float64(t.UnixMilli()*tiebreakSlots + seq%tiebreakSlots)
}
