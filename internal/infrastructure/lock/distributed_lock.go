package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 用途：同一持卡人在同一终端上的重复刷卡抑制。读卡器抖动、持卡人连刷
// 都会造成毫秒级的重复请求，比幂等挡板更早地把并发收敛成串行。
//
// 账户余额本身靠乐观锁版本号保护，这把锁不参与余额并发控制。
//
// 加锁：SET key value NX EX timeout
// 释放：Lua 脚本先校验 value 再删除，防止误删他人持有的锁
// ============================================================================

var ErrLockFailed = errors.New("获取分布式锁失败")

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string // 持有者标识，释放时校验
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁，value 不匹配时不删除
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewSwipeLock 创建刷卡锁（按 设备+持卡人 维度）
// 粒度取设备+持卡人：同一人在不同窗口刷卡互不影响，
// 同一窗口的连刷被收敛成串行
func NewSwipeLock(client *redis.Client, deviceID string, userID int64, requestID string, expiration time.Duration) *DistributedLock {
	key := fmt.Sprintf("consume:lock:swipe:%s:%d", deviceID, userID)
	// value 使用 requestID，便于追踪是哪个请求持有锁
	return NewDistributedLock(client, key, requestID, expiration)
}
