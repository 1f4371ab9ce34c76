package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"consumesystem/internal/model"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var (
	ErrAreaConfigNotFound = errors.New("区域策略不存在")
	ErrModeConfigNotFound = errors.New("消费模式配置不存在")
)

// 配置缓存过期时间：配置由管理端低频变更，短缓存换掉绝大部分 DB 读
const configCacheTTL = 60 * time.Second

// ConfigRepository 区域策略 / 消费模式配置仓储
// 读多写少，走 Redis 旁路缓存；缓存失效或 Redis 不可用时直接回源 DB
type ConfigRepository struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewConfigRepository(db *gorm.DB, rdb *redis.Client) *ConfigRepository {
	return &ConfigRepository{db: db, rdb: rdb}
}

func areaConfigCacheKey(areaID int64) string {
	return fmt.Sprintf("consume:cfg:area:%d", areaID)
}

func modeConfigCacheKey(accountKindID int64) string {
	return fmt.Sprintf("consume:cfg:mode:%d", accountKindID)
}

// GetAreaConfig 按区域ID取策略快照
func (r *ConfigRepository) GetAreaConfig(ctx context.Context, areaID int64) (*model.AreaConfig, error) {
	if r.rdb != nil {
		cached, err := r.rdb.Get(ctx, areaConfigCacheKey(areaID)).Result()
		if err == nil {
			var cfg model.AreaConfig
			if json.Unmarshal([]byte(cached), &cfg) == nil {
				return &cfg, nil
			}
		}
	}

	var row model.AreaConfigRow
	err := r.db.WithContext(ctx).Where("area_id = ?", areaID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAreaConfigNotFound
		}
		return nil, err
	}

	var cfg model.AreaConfig
	if err := json.Unmarshal([]byte(row.Payload), &cfg); err != nil {
		return nil, fmt.Errorf("区域策略解析失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("区域策略校验失败: %w", err)
	}
	cfg.AreaID = areaID

	if r.rdb != nil {
		// 缓存写失败不影响主流程
		r.rdb.Set(ctx, areaConfigCacheKey(areaID), row.Payload, configCacheTTL)
	}

	return &cfg, nil
}

// GetModeConfig 按账户类别ID取消费模式配置
func (r *ConfigRepository) GetModeConfig(ctx context.Context, accountKindID int64) (*model.ModeConfig, error) {
	if r.rdb != nil {
		cached, err := r.rdb.Get(ctx, modeConfigCacheKey(accountKindID)).Result()
		if err == nil {
			var cfg model.ModeConfig
			if json.Unmarshal([]byte(cached), &cfg) == nil {
				return &cfg, nil
			}
		}
	}

	var row model.ModeConfigRow
	err := r.db.WithContext(ctx).Where("account_kind_id = ?", accountKindID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModeConfigNotFound
		}
		return nil, err
	}

	cfg := &model.ModeConfig{
		AccountKindID: row.AccountKindID,
		Mode:          row.Mode,
		Params:        json.RawMessage(row.Params),
	}

	if r.rdb != nil {
		if payload, err := json.Marshal(cfg); err == nil {
			r.rdb.Set(ctx, modeConfigCacheKey(accountKindID), payload, configCacheTTL)
		}
	}

	return cfg, nil
}

// ListModeConfigs 全量模式配置，启动时校验模式是否都已注册
func (r *ConfigRepository) ListModeConfigs(ctx context.Context) ([]*model.ModeConfig, error) {
	var rows []*model.ModeConfigRow
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	configs := make([]*model.ModeConfig, 0, len(rows))
	for _, row := range rows {
		configs = append(configs, &model.ModeConfig{
			AccountKindID: row.AccountKindID,
			Mode:          row.Mode,
			Params:        json.RawMessage(row.Params),
		})
	}
	return configs, nil
}
