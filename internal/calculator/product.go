package calculator

import (
	"fmt"
	"strconv"

	"consumesystem/internal/model"
)

// ProductCalculator 商品消费
// 终端上送商品行，金额 = Σ(单价 × 数量)
// 价格真值由外部商品目录保证，引擎只校验商品行结构
type ProductCalculator struct{}

func (c *ProductCalculator) Mode() string {
	return model.ModeProduct
}

func (c *ProductCalculator) ValidateParams(mc *model.ModeConfig) error {
	var p model.ProductParams
	if err := mc.UnmarshalParams(&p); err != nil {
		return err
	}
	if p.MaxItems < 0 {
		return fmt.Errorf("商品行数上限不能为负数: %d", p.MaxItems)
	}
	return nil
}

func (c *ProductCalculator) Calculate(account *model.Account, area *model.AreaConfig, mc *model.ModeConfig, cctx *Context) *model.ConsumeResult {
	var p model.ProductParams
	if err := mc.UnmarshalParams(&p); err != nil {
		return model.FailureResult("商品消费参数配置错误")
	}

	if len(cctx.Items) == 0 {
		return model.FailureResult("商品消费缺少商品行")
	}
	if p.MaxItems > 0 && len(cctx.Items) > p.MaxItems {
		return model.FailureResult(fmt.Sprintf("商品行数超过上限 %d", p.MaxItems))
	}

	var total int64
	for i, item := range cctx.Items {
		if item.ProductID == "" {
			return model.FailureResult(fmt.Sprintf("第 %d 行商品缺少商品ID", i+1))
		}
		if item.Price <= 0 || item.Quantity <= 0 {
			return model.FailureResult(fmt.Sprintf("第 %d 行商品价格或数量不合法", i+1))
		}
		total += item.Price * int64(item.Quantity)
	}

	return model.SuccessResult(total).
		WithDetail("item_count", strconv.Itoa(len(cctx.Items)))
}
