package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/models"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/logging"
)

var ErrCacheMiss = errors.New("cache miss")

// ImpactStore is the accumulator store being cached.
type ImpactStore interface {
	GetStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	AtomicIncrement(ctx context.Context, userID uuid.UUID, d models.StatsDelta) (*models.UserStats, error)
	Provision(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
}

// ImpactCache is a read-through Redis cache in front of an ImpactStore.
// Writes go to the store and drop the cached entry. Redis failures are
// logged and the store is used directly.
type ImpactCache struct {
	inner  ImpactStore
	client *redis.Client
	ttl    time.Duration
}

func NewImpactCache(inner ImpactStore, client *redis.Client, ttl time.Duration) *ImpactCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ImpactCache{inner: inner, client: client, ttl: ttl}
}

func (c *ImpactCache) GetStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	l := logging.FromContext(ctx)

	st, err := c.get(ctx, userID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		l.Warn("impact_cache_read_failed", "user_id", userID, "error", err)
	}

	st, err = c.inner.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.set(ctx, st); err != nil {
		l.Warn("impact_cache_write_failed", "user_id", userID, "error", err)
	}
	return st, nil
}

func (c *ImpactCache) AtomicIncrement(ctx context.Context, userID uuid.UUID, d models.StatsDelta) (*models.UserStats, error) {
	st, err := c.inner.AtomicIncrement(ctx, userID, d)
	c.invalidate(ctx, userID)
	return st, err
}

func (c *ImpactCache) Provision(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	st, err := c.inner.Provision(ctx, userID)
	c.invalidate(ctx, userID)
	return st, err
}

func (c *ImpactCache) get(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var st models.UserStats
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal stats failed: %w", err)
	}
	return &st, nil
}

func (c *ImpactCache) set(ctx context.Context, st *models.UserStats) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal stats failed: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(st.UserID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *ImpactCache) invalidate(ctx context.Context, userID uuid.UUID) {
	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		logging.FromContext(ctx).Warn("impact_cache_invalidate_failed", "user_id", userID, "error", err)
	}
}

func cacheKey(userID uuid.UUID) string {
	return "impact:" + userID.String()
}
