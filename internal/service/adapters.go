package service

import (
	"context"
	"log"
	"time"

	"consumesystem/internal/infrastructure/cache"
	"consumesystem/internal/infrastructure/lock"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 基础设施适配
// 把 Redis 锁和计数器适配到服务层声明的窄接口上
// ============================================================================

// RedisSwipeLocker 基于 Redis 分布式锁的刷卡锁
type RedisSwipeLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSwipeLocker(client *redis.Client, ttl time.Duration) *RedisSwipeLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisSwipeLocker{client: client, ttl: ttl}
}

func (l *RedisSwipeLocker) TryLock(ctx context.Context, deviceID string, userID int64, requestID string) (func(), bool, error) {
	swipeLock := lock.NewSwipeLock(l.client, deviceID, userID, requestID, l.ttl)
	ok, err := swipeLock.TryLock(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	unlock := func() {
		if err := swipeLock.Unlock(context.Background()); err != nil {
			log.Printf("[SwipeLock] 释放刷卡锁失败: device=%s, userID=%d, err=%v", deviceID, userID, err)
		}
	}
	return unlock, true, nil
}

// RedisUsageCounter 把 cache.DailyCounter 适配到 UsageCounter 接口
type RedisUsageCounter struct {
	counter *cache.DailyCounter
}

func NewRedisUsageCounter(counter *cache.DailyCounter) *RedisUsageCounter {
	return &RedisUsageCounter{counter: counter}
}

func (c *RedisUsageCounter) GetUsage(ctx context.Context, userID int64, t time.Time) (*UsageSnapshot, error) {
	usage, err := c.counter.GetUsage(ctx, userID, t)
	if err != nil {
		return nil, err
	}
	return &UsageSnapshot{Amount: usage.Amount, Count: usage.Count}, nil
}

func (c *RedisUsageCounter) GetMealCount(ctx context.Context, userID int64, t time.Time, meal string) (int, error) {
	return c.counter.GetMealCount(ctx, userID, t, meal)
}

func (c *RedisUsageCounter) AddUsage(ctx context.Context, userID int64, t time.Time, amount int64, meal string) error {
	return c.counter.AddUsage(ctx, userID, t, amount, meal)
}
