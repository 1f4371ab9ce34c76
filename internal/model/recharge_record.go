package model

import (
	"time"
)

// 充值渠道
const (
	RechargeChannelAlipay = "ALIPAY"
	RechargeChannelWechat = "WECHAT"
	RechargeChannelManual = "MANUAL" // 柜台/管理端手工入账
)

// RechargeRecord 充值流水表
// 入账与流水在同一事务内写入，和消费侧的原则一致：动了钱就有流水
type RechargeRecord struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RechargeNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"recharge_no"` // 充值流水号（全局唯一）
	UserID     int64     `gorm:"index;not null" json:"user_id"`                            // 持卡人ID
	AccountID  int64     `gorm:"index;not null" json:"account_id"`                         // 入账账户ID
	Amount     int64     `gorm:"not null" json:"amount"`                                   // 充值金额（分）
	Channel    string    `gorm:"type:varchar(32);not null" json:"channel"`                 // 充值渠道
	Remark     string    `gorm:"type:varchar(256)" json:"remark"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (RechargeRecord) TableName() string {
	return "recharge_record"
}
