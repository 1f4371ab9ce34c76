package model

import (
	"time"
)

const (
	AccountStatusActive = "ACTIVE" // 正常
	AccountStatusFrozen = "FROZEN" // 冻结（挂失、违规等）
	AccountStatusClosed = "CLOSED" // 销户
)

// ValidAccountTransitions 账户状态机
// 销户是终态，不允许恢复
var ValidAccountTransitions = map[string][]string{
	AccountStatusActive: {AccountStatusFrozen, AccountStatusClosed},
	AccountStatusFrozen: {AccountStatusActive, AccountStatusClosed},
}

func CanAccountTransitionTo(currentStatus, targetStatus string) bool {
	allowed, exists := ValidAccountTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// Account 消费账户表
// 记录员工补贴账户的余额，是消费引擎唯一会修改的资金数据
//
// 【重要】余额以"分"为单位存储（int64），避免浮点误差
// 每次成功扣款 version 严格 +1，作为乐观锁依据
type Account struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64     `gorm:"uniqueIndex:idx_user_kind;not null" json:"user_id"`         // 持卡人ID
	AccountKindID int64     `gorm:"uniqueIndex:idx_user_kind;not null" json:"account_kind_id"` // 账户类别（决定消费模式）
	Balance       int64     `gorm:"not null;default:0" json:"balance"`                         // 可用余额（分）
	Version       int       `gorm:"not null;default:0" json:"version"`                         // 乐观锁版本号
	Status        string    `gorm:"type:varchar(20);not null;default:ACTIVE" json:"status"`    // 账户状态
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "consume_account"
}

// IsActive 账户是否可消费
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}
