package calculator

import (
	"fmt"
	"strconv"

	"consumesystem/internal/model"
)

// IntelligenceCalculator 智能推荐消费
// 推荐服务给出推荐金额，由持卡人在终端确认后上送确认金额；
// 扣款前确认金额必须落回推荐金额的允许偏差内，防止终端篡改
type IntelligenceCalculator struct{}

func (c *IntelligenceCalculator) Mode() string {
	return model.ModeIntelligence
}

func (c *IntelligenceCalculator) ValidateParams(mc *model.ModeConfig) error {
	var p model.IntelligenceParams
	if err := mc.UnmarshalParams(&p); err != nil {
		return err
	}
	if p.MaxDeviationPct < 0 || p.MaxDeviationPct > 100 {
		return fmt.Errorf("推荐金额偏差百分比必须在 0-100 之间: %d", p.MaxDeviationPct)
	}
	return nil
}

func (c *IntelligenceCalculator) Calculate(account *model.Account, area *model.AreaConfig, mc *model.ModeConfig, cctx *Context) *model.ConsumeResult {
	var p model.IntelligenceParams
	if err := mc.UnmarshalParams(&p); err != nil {
		return model.FailureResult("智能消费参数配置错误")
	}

	if cctx.RecommendAmount <= 0 {
		return model.FailureResult("缺少推荐金额")
	}
	if cctx.DeclaredAmount <= 0 {
		return model.FailureResult("缺少确认金额")
	}

	// 偏差校验：偏差为 0 时要求确认金额与推荐金额完全一致
	deviation := cctx.DeclaredAmount - cctx.RecommendAmount
	if deviation < 0 {
		deviation = -deviation
	}
	allowed := cctx.RecommendAmount * int64(p.MaxDeviationPct) / 100
	if deviation > allowed {
		return model.FailureResult("确认金额偏离推荐金额过多")
	}

	return model.SuccessResult(cctx.DeclaredAmount).
		WithDetail("recommend_amount", strconv.FormatInt(cctx.RecommendAmount, 10))
}
