package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"restaurant_portal/internal/models"
	"restaurant_portal/pkg/logger"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrCacheMiss       = errors.New("cache miss")
)

// Client keeps the state a browser portal would hold in local storage:
// the portal session, restaurant metadata and the order-history cache.
type Client struct {
	rdb     *redis.Client
	log     *logger.Logger
	nowFunc func() time.Time
}

type OrderHistoryEntry struct {
	RestaurantID string         `json:"restaurant_id"`
	CachedAt     time.Time      `json:"cached_at"`
	Orders       []models.Order `json:"orders"`
}

func Initialize(redisURL string, log *logger.Logger) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Test connection
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewClient(rdb, log), nil
}

func NewClient(rdb *redis.Client, log *logger.Logger) *Client {
	return &Client{rdb: rdb, log: log, nowFunc: time.Now}
}

// SetClock replaces the wall clock used for freshness checks.
func (c *Client) SetClock(now func() time.Time) {
	c.nowFunc = now
}

// Session management
func (c *Client) SetSession(ctx context.Context, session *models.PortalSession, ttl time.Duration) error {
	jsonData, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	return c.rdb.Set(ctx, sessionKey(session.ID), jsonData, ttl).Err()
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*models.PortalSession, error) {
	var session models.PortalSession
	if err := c.getJSON(ctx, sessionKey(sessionID), &session); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, sessionKey(sessionID)).Err()
}

// Restaurant metadata cache
func (c *Client) SetRestaurant(ctx context.Context, restaurant *models.Restaurant, ttl time.Duration) error {
	jsonData, err := json.Marshal(restaurant)
	if err != nil {
		return fmt.Errorf("failed to marshal restaurant: %w", err)
	}
	return c.rdb.Set(ctx, restaurantKey(restaurant.ID), jsonData, ttl).Err()
}

func (c *Client) GetRestaurant(ctx context.Context, restaurantID string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := c.getJSON(ctx, restaurantKey(restaurantID), &restaurant); err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (c *Client) DeleteRestaurant(ctx context.Context, restaurantID string) error {
	return c.rdb.Del(ctx, restaurantKey(restaurantID)).Err()
}

// Order history cache
func (c *Client) SetOrderHistory(ctx context.Context, restaurantID string, orders []models.Order, ttl time.Duration) error {
	entry := OrderHistoryEntry{
		RestaurantID: restaurantID,
		CachedAt:     c.nowFunc(),
		Orders:       orders,
	}
	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal order history: %w", err)
	}
	return c.rdb.Set(ctx, orderHistoryKey(restaurantID), jsonData, ttl).Err()
}

// GetOrderHistory returns the cached orders only while the entry is no
// older than maxAge. Stale entries are reported as ErrCacheMiss.
func (c *Client) GetOrderHistory(ctx context.Context, restaurantID string, maxAge time.Duration) ([]models.Order, error) {
	var entry OrderHistoryEntry
	if err := c.getJSON(ctx, orderHistoryKey(restaurantID), &entry); err != nil {
		return nil, err
	}
	if c.nowFunc().Sub(entry.CachedAt) > maxAge {
		return nil, ErrCacheMiss
	}
	return entry.Orders, nil
}

func (c *Client) InvalidateOrderHistory(ctx context.Context, restaurantID string) error {
	return c.rdb.Del(ctx, orderHistoryKey(restaurantID)).Err()
}

// getJSON reads key into dest. A missing key and an unreadable value are
// both a miss; the unreadable value is logged and removed.
func (c *Client) getJSON(ctx context.Context, key string, dest interface{}) error {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get %s: %w", key, err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		c.log.Error("", "cache_decode", "discarding malformed entry "+key, err)
		if delErr := c.rdb.Del(ctx, key).Err(); delErr != nil {
			c.log.Error("", "cache_decode", "failed to delete malformed entry "+key, delErr)
		}
		return ErrCacheMiss
	}
	return nil
}

// Close Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func sessionKey(id string) string { return "session:" + id }
func restaurantKey(id string) string { return "restaurant:" + id }
func orderHistoryKey(id string) string { return "order_history:" + id }
