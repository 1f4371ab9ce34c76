package calculator

import (
	"fmt"

	"consumesystem/internal/model"
)

// FreeAmountCalculator 自由金额消费
// 金额由终端申报，引擎只负责把它卡在 [min, max] 区间内
type FreeAmountCalculator struct{}

func (c *FreeAmountCalculator) Mode() string {
	return model.ModeFreeAmount
}

func (c *FreeAmountCalculator) ValidateParams(mc *model.ModeConfig) error {
	var p model.FreeAmountParams
	if err := mc.UnmarshalParams(&p); err != nil {
		return err
	}
	if p.Min < 0 || p.Max <= 0 {
		return fmt.Errorf("自由金额区间配置错误: [%d, %d]", p.Min, p.Max)
	}
	if p.Min > p.Max {
		return fmt.Errorf("自由金额下限大于上限: [%d, %d]", p.Min, p.Max)
	}
	return nil
}

func (c *FreeAmountCalculator) Calculate(account *model.Account, area *model.AreaConfig, mc *model.ModeConfig, cctx *Context) *model.ConsumeResult {
	var p model.FreeAmountParams
	if err := mc.UnmarshalParams(&p); err != nil {
		return model.FailureResult("自由金额参数配置错误")
	}

	amount := cctx.DeclaredAmount
	if amount <= 0 {
		return model.FailureResult("消费金额必须为正数")
	}
	if amount < p.Min || amount > p.Max {
		return model.FailureResult(fmt.Sprintf("消费金额超出允许区间 [%d, %d]", p.Min, p.Max))
	}
	return model.SuccessResult(amount)
}
