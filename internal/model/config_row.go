package model

import (
	"time"
)

// AreaConfigRow 区域策略存储行，payload 为 AreaConfig 的 JSON
type AreaConfigRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AreaID    int64     `gorm:"uniqueIndex;not null" json:"area_id"`
	Payload   string    `gorm:"type:text;not null" json:"payload"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AreaConfigRow) TableName() string {
	return "area_config"
}

// ModeConfigRow 消费模式存储行，params 为模式参数 JSON
// 每个账户类别有且只有一条生效配置（唯一索引保证）
type ModeConfigRow struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountKindID int64     `gorm:"uniqueIndex;not null" json:"account_kind_id"`
	Mode          string    `gorm:"type:varchar(32);not null" json:"mode"`
	Params        string    `gorm:"type:text;not null" json:"params"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ModeConfigRow) TableName() string {
	return "mode_config"
}
