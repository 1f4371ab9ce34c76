package calculator

import (
	"fmt"

	"consumesystem/internal/model"
)

// FixedAmountCalculator 定值消费
// 三种子类型：SIMPLE 固定金额、KEYVALUE 按餐段取金额、SECTION 按时间段取金额
//
// 【重要】KEYVALUE/SECTION 取不到当前餐段/时段的金额时必须判失败，
// 绝不允许静默按 0 元扣款
type FixedAmountCalculator struct{}

func (c *FixedAmountCalculator) Mode() string {
	return model.ModeFixedAmount
}

func (c *FixedAmountCalculator) ValidateParams(mc *model.ModeConfig) error {
	var p model.FixedAmountParams
	if err := mc.UnmarshalParams(&p); err != nil {
		return err
	}

	switch p.SubType {
	case model.FixedSubTypeSimple:
		if p.Amount <= 0 {
			return fmt.Errorf("定值消费 SIMPLE 金额必须为正数: %d", p.Amount)
		}
	case model.FixedSubTypeKeyValue:
		if len(p.MealAmounts) == 0 {
			return fmt.Errorf("定值消费 KEYVALUE 未配置任何餐段金额")
		}
		for meal, amount := range p.MealAmounts {
			if amount <= 0 {
				return fmt.Errorf("定值消费餐段 %s 金额必须为正数: %d", meal, amount)
			}
		}
	case model.FixedSubTypeSection:
		if len(p.Sections) == 0 {
			return fmt.Errorf("定值消费 SECTION 未配置任何时段金额")
		}
		for _, s := range p.Sections {
			if s.Amount <= 0 {
				return fmt.Errorf("定值消费时段 %s-%s 金额必须为正数: %d", s.Start, s.End, s.Amount)
			}
		}
	default:
		return fmt.Errorf("未知的定值消费子类型: %q", p.SubType)
	}
	return nil
}

func (c *FixedAmountCalculator) Calculate(account *model.Account, area *model.AreaConfig, mc *model.ModeConfig, cctx *Context) *model.ConsumeResult {
	var p model.FixedAmountParams
	if err := mc.UnmarshalParams(&p); err != nil {
		return model.FailureResult("定值消费参数配置错误")
	}

	switch p.SubType {
	case model.FixedSubTypeSimple:
		if p.Amount <= 0 {
			return model.FailureResult("定值消费金额配置错误")
		}
		return model.SuccessResult(p.Amount)

	case model.FixedSubTypeKeyValue:
		window, ok := area.MealAt(cctx.Time)
		if !ok {
			return model.FailureResult("当前时刻不在任何餐段内")
		}
		amount, ok := p.MealAmounts[window.Meal]
		if !ok {
			// 餐段存在但没配金额是配置缺失，判失败而不是按 0 扣
			return model.FailureResult(fmt.Sprintf("餐段 %s 未配置消费金额", window.Meal))
		}
		return model.SuccessResult(amount).WithDetail("meal", window.Meal)

	case model.FixedSubTypeSection:
		for _, s := range p.Sections {
			if (model.TimeRange{Start: s.Start, End: s.End}).Contains(cctx.Time) {
				return model.SuccessResult(s.Amount).WithDetail("section", s.Start+"-"+s.End)
			}
		}
		return model.FailureResult("当前时刻不在任何计费时段内")

	default:
		return model.FailureResult("未知的定值消费子类型")
	}
}
