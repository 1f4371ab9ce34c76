package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 每日限额计数器
// ============================================================================
//
// 区域策略的"当日累计金额/次数/餐段次数"限制需要跨终端共享的计数，
// 放在 Redis 里按 用户+日期 维度累加，零点后自动换 key，过期自动清理。
//
// 计数只在扣款成功后累加：失败的交易不占额度。
// 扣款成功与计数累加之间不是原子的，崩溃会少计——限额是管控策略不是账，
// 少计可接受，多计不可接受。
// ============================================================================

// DailyCounter 用户每日消费计数器
type DailyCounter struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDailyCounter(rdb *redis.Client, ttl time.Duration) *DailyCounter {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &DailyCounter{rdb: rdb, ttl: ttl}
}

func dailyAmountKey(userID int64, day string) string {
	return fmt.Sprintf("consume:daily:amount:%d:%s", userID, day)
}

func dailyCountKey(userID int64, day string) string {
	return fmt.Sprintf("consume:daily:count:%d:%s", userID, day)
}

func mealCountKey(userID int64, day, meal string) string {
	return fmt.Sprintf("consume:daily:meal:%d:%s:%s", userID, day, meal)
}

func dayOf(t time.Time) string {
	return t.Format("20060102")
}

// Usage 当日已用额度
type Usage struct {
	Amount int64 // 已消费金额（分）
	Count  int   // 已消费次数
}

// GetUsage 查询用户当日已用额度，key 不存在按 0 计
func (c *DailyCounter) GetUsage(ctx context.Context, userID int64, t time.Time) (*Usage, error) {
	day := dayOf(t)

	amount, err := c.rdb.Get(ctx, dailyAmountKey(userID, day)).Int64()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	count, err := c.rdb.Get(ctx, dailyCountKey(userID, day)).Int()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	return &Usage{Amount: amount, Count: count}, nil
}

// GetMealCount 查询用户当日某餐段已消费次数
func (c *DailyCounter) GetMealCount(ctx context.Context, userID int64, t time.Time, meal string) (int, error) {
	count, err := c.rdb.Get(ctx, mealCountKey(userID, dayOf(t), meal)).Int()
	if err != nil && err != redis.Nil {
		return 0, err
	}
	return count, nil
}

// AddUsage 扣款成功后累加当日额度，meal 为空表示本笔不占餐段次数
func (c *DailyCounter) AddUsage(ctx context.Context, userID int64, t time.Time, amount int64, meal string) error {
	day := dayOf(t)

	pipe := c.rdb.TxPipeline()
	pipe.IncrBy(ctx, dailyAmountKey(userID, day), amount)
	pipe.Expire(ctx, dailyAmountKey(userID, day), c.ttl)
	pipe.Incr(ctx, dailyCountKey(userID, day))
	pipe.Expire(ctx, dailyCountKey(userID, day), c.ttl)
	if meal != "" {
		pipe.Incr(ctx, mealCountKey(userID, day, meal))
		pipe.Expire(ctx, mealCountKey(userID, day, meal), c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
