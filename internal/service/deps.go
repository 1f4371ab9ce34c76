package service

import (
	"context"
	"database/sql"
	"time"

	"consumesystem/internal/calculator"
	"consumesystem/internal/model"

	"gorm.io/gorm"
)

// ============================================================================
// 协作方接口
// ============================================================================
//
// 消费引擎对持久化技术不做假设，只依赖这里声明的窄接口；
// gorm 仓储是生产实现，测试用内存假实现
// ============================================================================

// AccountStore 账户仓储
type AccountStore interface {
	SelectByID(ctx context.Context, accountID int64) (*model.Account, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Account, error)
	// DeductBalance 条件扣款：版本号与余额校验、扣减、版本号+1 在一条 UPDATE 内完成
	DeductBalance(ctx context.Context, tx *gorm.DB, accountID int64, amount int64, expectedVersion int) error
	CreditBalance(ctx context.Context, tx *gorm.DB, accountID int64, amount int64) error
	// UpdateStatus 账户状态流转，按状态机校验
	UpdateStatus(ctx context.Context, accountID int64, fromStatus, toStatus string) error
}

// RechargeStore 充值流水仓储
type RechargeStore interface {
	Insert(ctx context.Context, tx *gorm.DB, record *model.RechargeRecord) error
}

// RecordStore 消费流水仓储
type RecordStore interface {
	Insert(ctx context.Context, tx *gorm.DB, record *model.ConsumeRecord) error
	GetByRequestID(ctx context.Context, requestID string) (*model.ConsumeRecord, error)
}

// ConfigStore 策略配置仓储，返回只在本次交易内有效的只读快照
type ConfigStore interface {
	GetAreaConfig(ctx context.Context, areaID int64) (*model.AreaConfig, error)
	GetModeConfig(ctx context.Context, accountKindID int64) (*model.ModeConfig, error)
}

// TxRunner 事务执行器，*gorm.DB 天然满足该接口
type TxRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// Notifier 消费完成通知挂点
// 在扣款事务内调用，实现方可借事务保证通知与扣款同生共死（发件箱模式）
type Notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, account *model.Account, record *model.ConsumeRecord, req *ConsumeRequest) error
}

// NoopNotifier 默认空实现
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, tx *gorm.DB, account *model.Account, record *model.ConsumeRecord, req *ConsumeRequest) error {
	return nil
}

// SwipeLocker 重复刷卡抑制锁，nil 实现表示不启用
type SwipeLocker interface {
	TryLock(ctx context.Context, deviceID string, userID int64, requestID string) (func(), bool, error)
}

// OfflineAllowList 脱机白名单（本地快照，校验路径不发网络请求）
type OfflineAllowList interface {
	Allowed(areaID, userID int64) bool
}

// UsageCounter 每日限额计数器
type UsageCounter interface {
	GetUsage(ctx context.Context, userID int64, t time.Time) (*UsageSnapshot, error)
	GetMealCount(ctx context.Context, userID int64, t time.Time, meal string) (int, error)
	AddUsage(ctx context.Context, userID int64, t time.Time, amount int64, meal string) error
}

// UsageSnapshot 当日已用额度
type UsageSnapshot struct {
	Amount int64
	Count  int
}

// ----------------------------------------------------------------------------
// 请求 / 响应
// ----------------------------------------------------------------------------

// ConsumeRequest 一次刷卡请求
type ConsumeRequest struct {
	RequestID     string `json:"request_id"` // 终端生成，幂等挡板
	UserID        int64  `json:"user_id"`
	DeviceID      string `json:"device_id"`
	AreaID        int64  `json:"area_id"`
	SubAreaID     int64  `json:"sub_area_id"`
	AccountKindID int64  `json:"account_kind_id"` // 脱机请求必填；联机以账户记录为准

	Offline    bool      `json:"offline"`     // 终端脱机期间产生的请求
	ConsumedAt time.Time `json:"consumed_at"` // 刷卡时间，零值取当前

	// 金额计算输入，按模式取用
	DeclaredAmount  int64                 `json:"declared_amount"`
	Units           int64                 `json:"units"`
	DurationMinutes int64                 `json:"duration_minutes"`
	Items           []calculator.LineItem `json:"items"`
	OrderNo         string                `json:"order_no"`
	PickupTime      time.Time             `json:"pickup_time"`
	RecommendAmount int64                 `json:"recommend_amount"`
}

// Time 刷卡时间，零值回退为当前时间
func (r *ConsumeRequest) Time() time.Time {
	if r.ConsumedAt.IsZero() {
		return time.Now()
	}
	return r.ConsumedAt
}

// ConsumeResponse 消费结果
// 业务失败（余额不足、时段不允许等）也走这里，Success=false；
// 只有乐观锁冲突和基础设施错误才以 error 形式返回
type ConsumeResponse struct {
	Success   bool              `json:"success"`
	RecordNo  string            `json:"record_no,omitempty"`
	Amount    int64             `json:"amount"`
	PayStatus string            `json:"pay_status,omitempty"`
	Message   string            `json:"message,omitempty"`
	Kind      string            `json:"kind,omitempty"` // 失败类别，成功时为空
	Detail    map[string]string `json:"detail,omitempty"`
}
