package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 脱机白名单本地缓存
// ============================================================================
//
// 终端断网时走脱机消费，此时引擎不能依赖任何在线数据来校验持卡人，
// 只能用本地内存里的白名单快照兜底，把脱机期间的风险控制在白名单内。
//
// 快照由后台定时从 Redis 刷新（Redis 中由管理端维护，key 按区域分片）；
// 刷新失败时沿用旧快照，绝不在校验路径上发起网络调用。
// ============================================================================

// AllowList 按区域维护的脱机白名单内存快照
type AllowList struct {
	rdb *redis.Client

	mu    sync.RWMutex
	areas map[int64]map[int64]struct{} // areaID -> userID 集合
}

func NewAllowList(rdb *redis.Client) *AllowList {
	return &AllowList{
		rdb:   rdb,
		areas: make(map[int64]map[int64]struct{}),
	}
}

func allowListKey(areaID int64) string {
	return fmt.Sprintf("consume:offline:allow:%d", areaID)
}

// Allowed 校验持卡人是否在区域白名单内，只读内存，不发网络请求
func (l *AllowList) Allowed(areaID, userID int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	users, ok := l.areas[areaID]
	if !ok {
		return false
	}
	_, ok = users[userID]
	return ok
}

// RefreshArea 从 Redis 拉取指定区域的白名单并替换本地快照
func (l *AllowList) RefreshArea(ctx context.Context, areaID int64) error {
	members, err := l.rdb.SMembers(ctx, allowListKey(areaID)).Result()
	if err != nil {
		return fmt.Errorf("拉取区域 %d 白名单失败: %w", areaID, err)
	}

	users := make(map[int64]struct{}, len(members))
	for _, m := range members {
		userID, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		users[userID] = struct{}{}
	}

	l.mu.Lock()
	l.areas[areaID] = users
	l.mu.Unlock()
	return nil
}

// Put 直接写入本地快照（测试和启动预热使用）
func (l *AllowList) Put(areaID int64, userIDs ...int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	users, ok := l.areas[areaID]
	if !ok {
		users = make(map[int64]struct{})
		l.areas[areaID] = users
	}
	for _, id := range userIDs {
		users[id] = struct{}{}
	}
}

// StartRefresher 后台定时刷新白名单，ctx 取消后退出
// 每轮先 SCAN Redis 发现有哪些区域配了白名单，再逐区域拉取
func (l *AllowList) StartRefresher(ctx context.Context, interval time.Duration) {
	l.refreshAll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[AllowList] 白名单刷新任务退出")
			return
		case <-ticker.C:
			l.refreshAll(ctx)
		}
	}
}

func (l *AllowList) refreshAll(ctx context.Context) {
	areaIDs, err := l.discoverAreas(ctx)
	if err != nil {
		// 发现失败沿用旧快照
		log.Printf("[AllowList] 扫描白名单区域失败: %v", err)
		return
	}

	for _, areaID := range areaIDs {
		if err := l.RefreshArea(ctx, areaID); err != nil {
			log.Printf("[AllowList] %v", err)
		}
	}
}

func (l *AllowList) discoverAreas(ctx context.Context) ([]int64, error) {
	var areaIDs []int64
	var cursor uint64
	prefix := "consume:offline:allow:"

	for {
		keys, next, err := l.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			areaID, err := strconv.ParseInt(key[len(prefix):], 10, 64)
			if err != nil {
				continue
			}
			areaIDs = append(areaIDs, areaID)
		}
		cursor = next
		if cursor == 0 {
			return areaIDs, nil
		}
	}
}
