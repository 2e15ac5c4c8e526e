package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/config"
	"github.com/tripnest/booking-core/internal/models"
)

const pendingRefundKeyPrefix = "refunds:pending:"

func pendingRefundKey(billID uuid.UUID) string {
	return fmt.Sprintf("%s%s", pendingRefundKeyPrefix, billID)
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisRefundIndex keeps pending refunds keyed by bill for the read path.
// Postgres stays authoritative; entries are written after commit and dropped on resolution.
type RedisRefundIndex struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRedisRefundIndex creates a Redis-backed pending refund index
func NewRedisRefundIndex(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisRefundIndex {
	return &RedisRefundIndex{client: client, ttl: ttl, logger: logger}
}

// Get returns the indexed pending refund of a bill; ok is false on a miss
func (c *RedisRefundIndex) Get(ctx context.Context, billID uuid.UUID) (*models.Refund, bool, error) {
	val, err := c.client.Get(ctx, pendingRefundKey(billID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read refund index: %w", err)
	}

	var refund models.Refund
	if err := json.Unmarshal([]byte(val), &refund); err != nil {
		// corrupt entry: drop it and treat as a miss
		c.logger.WithError(err).WithField("bill_id", billID).Warn("Dropping unreadable refund index entry")
		c.client.Del(ctx, pendingRefundKey(billID))
		return nil, false, nil
	}
	return &refund, true, nil
}

// Put indexes a pending refund
func (c *RedisRefundIndex) Put(ctx context.Context, refund *models.Refund) error {
	data, err := json.Marshal(refund)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, pendingRefundKey(refund.BillID), data, c.ttl).Err()
}

// Remove drops the entry of a bill
func (c *RedisRefundIndex) Remove(ctx context.Context, billID uuid.UUID) error {
	return c.client.Del(ctx, pendingRefundKey(billID)).Err()
}

// NoopRefundIndex is used when Redis is not configured; every lookup misses
type NoopRefundIndex struct{}

func (NoopRefundIndex) Get(context.Context, uuid.UUID) (*models.Refund, bool, error) {
	return nil, false, nil
}

func (NoopRefundIndex) Put(context.Context, *models.Refund) error { return nil }

func (NoopRefundIndex) Remove(context.Context, uuid.UUID) error { return nil }
