package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"chrisshop/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

const cartCountTTL = time.Hour

// GetCartCount returns the cached badge count; found=false on a miss
func (c *Client) GetCartCount(ctx context.Context, userID int64) (count int, found bool, err error) {
	val, err := c.rdb.Get(ctx, cartCountKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// SetCartCount caches the badge count for a user
func (c *Client) SetCartCount(ctx context.Context, userID int64, count int) error {
	return c.rdb.Set(ctx, cartCountKey(userID), count, cartCountTTL).Err()
}

// InvalidateCartCount drops the cached badge count after a cart mutation
func (c *Client) InvalidateCartCount(ctx context.Context, userID int64) error {
	return c.rdb.Del(ctx, cartCountKey(userID)).Err()
}

func cartCountKey(userID int64) string {
	return fmt.Sprintf("cart:count:%d", userID)
}

// SetSession stores the principal for a session token with TTL
func (c *Client) SetSession(ctx context.Context, token string, p models.Principal, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, sessionKey(token), data, ttl).Err()
}

// GetSession loads the principal for a session token; nil when absent or expired
func (c *Client) GetSession(ctx context.Context, token string) (*models.Principal, error) {
	data, err := c.rdb.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p models.Principal
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteSession removes a session token (logout)
func (c *Client) DeleteSession(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, sessionKey(token)).Err()
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}
