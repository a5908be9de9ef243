package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is a non-authoritative read accelerator. Every failure path
// degrades to a cache miss so a cache fault never fails the caller's
// request; the ledger and inventory stay the source of truth.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

type Config struct {
	Addr     string
	Password string
	TTL      time.Duration
}

func New(cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb, ttl: cfg.TTL}, nil
}

// Get loads and decodes the value under key into dest. Returns false on
// miss, on transport error and on codec failure alike.
func (c *Client) Get(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		slog.Warn("Cache read failed", "key", key, "error", err)
		return false
	}

	if err := decode(data, dest); err != nil {
		slog.Warn("Cache decode failed, treating as miss", "key", key, "error", err)
		return false
	}
	return true
}

// Set encodes and stores value under key with the configured TTL. The
// TTL is a performance knob only; write paths overwrite affected keys
// proactively instead of relying on expiry.
func (c *Client) Set(ctx context.Context, key string, value interface{}) {
	data, err := encode(value)
	if err != nil {
		slog.Warn("Cache encode failed, skipping write", "key", key, "error", err)
		return
	}

	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("Cache write failed", "key", key, "error", err)
	}
}

// Delete removes the key. No-op on error.
func (c *Client) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		slog.Warn("Cache delete failed", "key", key, "error", err)
	}
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key scheme for the accelerated read paths.

func AllReservationsKey() string {
	return "reservations:all"
}

func UserReservationsKey(userID int64) string {
	return fmt.Sprintf("reservations:user:%d", userID)
}

func EventKey(eventID int64) string {
	return fmt.Sprintf("events:%d", eventID)
}
