package model

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// 消费模式配置
// ============================================================================
//
// 每个账户类别绑定且仅绑定一种消费模式，模式参数以 JSON 存储，
// 由对应的计算器解析成类型化参数后使用。
// ============================================================================

const (
	ModeFixedAmount  = "FIXED_AMOUNT" // 定值消费
	ModeFreeAmount   = "FREE_AMOUNT"  // 自由金额
	ModeMetered      = "METERED"      // 计量消费（计时/计次）
	ModeProduct      = "PRODUCT"      // 商品消费
	ModeOrder        = "ORDER"        // 订餐消费
	ModeIntelligence = "INTELLIGENCE" // 智能推荐消费
)

// AllModes 系统内置的全部模式，启动时用于校验注册表完整性
var AllModes = []string{
	ModeFixedAmount,
	ModeFreeAmount,
	ModeMetered,
	ModeProduct,
	ModeOrder,
	ModeIntelligence,
}

// ModeConfig 账户类别级消费模式配置（只读值对象）
type ModeConfig struct {
	AccountKindID int64           `json:"account_kind_id"`
	Mode          string          `json:"mode"`
	Params        json.RawMessage `json:"params"`
}

// ----------------------------------------------------------------------------
// 定值消费参数
// ----------------------------------------------------------------------------

const (
	FixedSubTypeSimple   = "SIMPLE"   // 固定一个金额
	FixedSubTypeKeyValue = "KEYVALUE" // 按餐段取金额
	FixedSubTypeSection  = "SECTION"  // 按时间段取金额
)

// AmountSection 时间段-金额映射
type AmountSection struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Amount int64  `json:"amount"`
}

type FixedAmountParams struct {
	SubType     string           `json:"sub_type"`
	Amount      int64            `json:"amount"`       // SIMPLE 使用
	MealAmounts map[string]int64 `json:"meal_amounts"` // KEYVALUE 使用，键为餐段
	Sections    []AmountSection  `json:"sections"`     // SECTION 使用
}

// ----------------------------------------------------------------------------
// 自由金额参数
// ----------------------------------------------------------------------------

type FreeAmountParams struct {
	Min int64 `json:"min"` // 单笔下限（分）
	Max int64 `json:"max"` // 单笔上限（分）
}

// ----------------------------------------------------------------------------
// 计量消费参数
// ----------------------------------------------------------------------------

const (
	MeteredUnitTiming   = "TIMING"   // 计时，单位为分钟
	MeteredUnitCounting = "COUNTING" // 计次
)

type MeteredParams struct {
	UnitPrice int64  `json:"unit_price"` // 单价（分/单位）
	Unit      string `json:"unit"`       // TIMING / COUNTING
}

// ----------------------------------------------------------------------------
// 商品 / 订餐 / 智能模式参数
// 金额真值由外部目录、订单系统提供，这里只约束结构
// ----------------------------------------------------------------------------

type ProductParams struct {
	MaxItems int `json:"max_items"` // 单笔商品行数上限，0 不限
}

type OrderParams struct {
	PickupToleranceMinutes int `json:"pickup_tolerance_minutes"` // 取餐时间容差
}

type IntelligenceParams struct {
	MaxDeviationPct int `json:"max_deviation_pct"` // 确认金额相对推荐金额允许的偏差百分比
}

// UnmarshalParams 将模式参数解析到 out 指向的类型化参数结构
func (c *ModeConfig) UnmarshalParams(out interface{}) error {
	if len(c.Params) == 0 {
		return fmt.Errorf("模式 %s 缺少参数配置", c.Mode)
	}
	if err := json.Unmarshal(c.Params, out); err != nil {
		return fmt.Errorf("模式 %s 参数解析失败: %w", c.Mode, err)
	}
	return nil
}
