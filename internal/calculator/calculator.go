package calculator

import (
	"errors"
	"fmt"
	"time"

	"consumesystem/internal/model"
)

// ============================================================================
// 金额计算器
// ============================================================================
//
// 每种消费模式对应一个计算器实现，统一通过注册表按模式名分发。
// 计算器必须是纯函数：相同输入必须得到相同金额，不允许读取网络或全局状态。
//
// 【约定】
// 1. ValidateParams 在配置加载/启动阶段调用，拦截结构性错误
// 2. Calculate 对"不适用"（不在餐段、金额越界等）返回失败结果，不返回 error
// ============================================================================

var (
	ErrUnknownMode   = errors.New("未注册的消费模式")
	ErrDuplicateMode = errors.New("消费模式重复注册")
	ErrMissingMode   = errors.New("缺少必需的消费模式")
)

// LineItem 商品行（PRODUCT 模式终端上送）
type LineItem struct {
	ProductID string `json:"product_id"`
	Price     int64  `json:"price"` // 单价（分），真值以外部商品目录为准
	Quantity  int    `json:"quantity"`
}

// Context 一次刷卡请求中与金额计算相关的输入
type Context struct {
	RequestID     string
	UserID        int64
	AccountKindID int64
	AreaID        int64
	SubAreaID     int64
	DeviceID      string
	Time          time.Time // 刷卡时间

	DeclaredAmount  int64      // FREE_AMOUNT 申报金额 / ORDER 订单金额 / INTELLIGENCE 确认金额
	Units           int64      // METERED COUNTING 次数
	DurationMinutes int64      // METERED TIMING 时长（分钟）
	Items           []LineItem // PRODUCT 商品行
	OrderNo         string     // ORDER 关联订单号
	PickupTime      time.Time  // ORDER 预约取餐时间
	RecommendAmount int64      // INTELLIGENCE 推荐金额（推荐服务产生）
}

// Calculator 金额计算器契约
type Calculator interface {
	// Mode 返回本计算器处理的模式名
	Mode() string
	// ValidateParams 校验模式参数结构
	ValidateParams(mc *model.ModeConfig) error
	// Calculate 计算本笔消费金额
	Calculate(account *model.Account, area *model.AreaConfig, mc *model.ModeConfig, cctx *Context) *model.ConsumeResult
}

// Registry 计算器注册表
// 显式注册替代任何反射式分发；注册发生在启动阶段，之后只读，无需加锁
type Registry struct {
	calculators map[string]Calculator
	order       []string // 注册顺序，决定枚举时的优先级
}

func NewRegistry() *Registry {
	return &Registry{calculators: make(map[string]Calculator)}
}

// Register 注册一个计算器，模式名冲突返回错误
func (r *Registry) Register(c Calculator) error {
	mode := c.Mode()
	if _, exists := r.calculators[mode]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMode, mode)
	}
	r.calculators[mode] = c
	r.order = append(r.order, mode)
	return nil
}

// Get 按模式名取计算器，未注册返回 ErrUnknownMode
func (r *Registry) Get(mode string) (Calculator, error) {
	c, ok := r.calculators[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	return c, nil
}

// Modes 返回按注册顺序排列的模式名
func (r *Registry) Modes() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ValidateModes 启动校验：要求 modes 全部已注册
// 配置引用了未注册的模式应该在启动时暴露，而不是等到第一笔消费
func (r *Registry) ValidateModes(modes ...string) error {
	for _, m := range modes {
		if _, ok := r.calculators[m]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingMode, m)
		}
	}
	return nil
}

// DefaultRegistry 构造内置六种模式的注册表
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, c := range []Calculator{
		&FixedAmountCalculator{},
		&FreeAmountCalculator{},
		&MeteredCalculator{},
		&ProductCalculator{},
		&OrderCalculator{},
		&IntelligenceCalculator{},
	} {
		// 内置计算器模式名互不相同，此处不会失败
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}
