package model

import (
	"time"
)

// ============================================================================
// 消费流水常量
// ============================================================================

const (
	PayStatusPaid          = "PAID"           // 已扣款
	PayStatusPendingDeduct = "PENDING_DEDUCT" // 待扣款（脱机消费，等待对账补扣）
	PayStatusFailed        = "FAILED"         // 扣款失败
)

const (
	PayMethodBalance = "BALANCE" // 账户余额
	PayMethodSubsidy = "SUBSIDY" // 补贴账户
)

// ValidPayStatusTransitions 流水状态机
// 消费引擎本身只会创建流水；状态流转仅发生在脱机补扣（对账）流程中
var ValidPayStatusTransitions = map[string][]string{
	PayStatusPendingDeduct: {PayStatusPaid, PayStatusFailed},
}

func CanPayStatusTransitionTo(currentStatus, targetStatus string) bool {
	allowed, exists := ValidPayStatusTransitions[currentStatus]
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

// ConsumeRecord 消费流水表
// 每一次刷卡尝试（无论成败）都会落一条流水，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 引擎侧只追加，不修改 —— 保证审计可追溯
// 2. request_id 全局唯一 —— 终端重发时做幂等挡板
// 3. 脱机流水带 offline_sync 标记 —— 由补扣任务统一处理
type ConsumeRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RecordNo    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"record_no"`  // 流水号（全局唯一）
	RequestID   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"` // 终端请求ID（幂等）
	UserID      int64     `gorm:"index;not null" json:"user_id"`                           // 持卡人ID
	AccountID   int64     `gorm:"index;not null" json:"account_id"`                        // 扣款账户ID
	Amount      int64     `gorm:"not null" json:"amount"`                                  // 消费金额（分）
	DeviceID    string    `gorm:"type:varchar(64);not null" json:"device_id"`              // 终端设备ID
	AreaID      int64     `gorm:"index;not null" json:"area_id"`                           // 消费区域ID
	Mode        string    `gorm:"type:varchar(32);not null" json:"mode"`                   // 消费模式
	PayStatus   string    `gorm:"type:varchar(20);index;not null" json:"pay_status"`       // 扣款状态
	PayMethod   string    `gorm:"type:varchar(20);not null" json:"pay_method"`             // 扣款方式
	OfflineSync bool      `gorm:"index;not null;default:false" json:"offline_sync"`        // 脱机流水，待补扣
	Remark      string    `gorm:"type:varchar(256)" json:"remark"`                         // 备注（失败原因等）
	ConsumedAt  time.Time `gorm:"not null" json:"consumed_at"`                             // 刷卡时间（终端时间）
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (ConsumeRecord) TableName() string {
	return "consume_record"
}
