package calculator

import (
	"fmt"

	"consumesystem/internal/model"
)

// OrderCalculator 订餐消费
// 金额以订餐系统的订单为准，终端上送订单号与订单金额；
// 引擎校验取餐时间是否落在配置的容差窗口内
type OrderCalculator struct{}

func (c *OrderCalculator) Mode() string {
	return model.ModeOrder
}

func (c *OrderCalculator) ValidateParams(mc *model.ModeConfig) error {
	var p model.OrderParams
	if err := mc.UnmarshalParams(&p); err != nil {
		return err
	}
	if p.PickupToleranceMinutes < 0 {
		return fmt.Errorf("取餐容差不能为负数: %d", p.PickupToleranceMinutes)
	}
	return nil
}

func (c *OrderCalculator) Calculate(account *model.Account, area *model.AreaConfig, mc *model.ModeConfig, cctx *Context) *model.ConsumeResult {
	var p model.OrderParams
	if err := mc.UnmarshalParams(&p); err != nil {
		return model.FailureResult("订餐消费参数配置错误")
	}

	if cctx.OrderNo == "" {
		return model.FailureResult("订餐消费缺少订单号")
	}
	if cctx.DeclaredAmount <= 0 {
		return model.FailureResult("订单金额必须为正数")
	}

	// 取餐时间容差校验：刷卡时间偏离预约取餐时间过多则拒绝
	if p.PickupToleranceMinutes > 0 && !cctx.PickupTime.IsZero() {
		diff := cctx.Time.Sub(cctx.PickupTime)
		if diff < 0 {
			diff = -diff
		}
		if int(diff.Minutes()) > p.PickupToleranceMinutes {
			return model.FailureResult("不在订单取餐时间范围内")
		}
	}

	return model.SuccessResult(cctx.DeclaredAmount).
		WithDetail("order_no", cctx.OrderNo)
}
