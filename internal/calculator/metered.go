package calculator

import (
	"fmt"
	"strconv"

	"consumesystem/internal/model"
)

// MeteredCalculator 计量消费
// TIMING 按时长（分钟）计费，COUNTING 按次数计费，金额 = 单价 × 计量值
type MeteredCalculator struct{}

func (c *MeteredCalculator) Mode() string {
	return model.ModeMetered
}

func (c *MeteredCalculator) ValidateParams(mc *model.ModeConfig) error {
	var p model.MeteredParams
	if err := mc.UnmarshalParams(&p); err != nil {
		return err
	}
	if p.UnitPrice <= 0 {
		return fmt.Errorf("计量消费单价必须为正数: %d", p.UnitPrice)
	}
	if p.Unit != model.MeteredUnitTiming && p.Unit != model.MeteredUnitCounting {
		return fmt.Errorf("未知的计量单位: %q", p.Unit)
	}
	return nil
}

func (c *MeteredCalculator) Calculate(account *model.Account, area *model.AreaConfig, mc *model.ModeConfig, cctx *Context) *model.ConsumeResult {
	var p model.MeteredParams
	if err := mc.UnmarshalParams(&p); err != nil {
		return model.FailureResult("计量消费参数配置错误")
	}

	var units int64
	switch p.Unit {
	case model.MeteredUnitTiming:
		units = cctx.DurationMinutes
	case model.MeteredUnitCounting:
		units = cctx.Units
	default:
		return model.FailureResult("未知的计量单位")
	}

	if units <= 0 {
		return model.FailureResult("计量值必须为正数")
	}

	return model.SuccessResult(p.UnitPrice * units).
		WithDetail("unit", p.Unit).
		WithDetail("units", strconv.FormatInt(units, 10))
}
