package model

import (
	"fmt"
	"time"
)

// ============================================================================
// 区域消费策略
// ============================================================================
//
// AreaConfig 控制一笔消费"允不允许"发生（时段、餐段、子区域、限额），
// 与 ModeConfig 的"扣多少钱"相互独立。两份配置由不同的管理端维护，
// 可能互相矛盾，因此校验时两边都不信任对方。
//
// 配置以 JSON 形式存储，加载后视为本次交易内的只读快照。
// ============================================================================

const (
	MealBreakfast = "BREAKFAST"
	MealLunch     = "LUNCH"
	MealDinner    = "DINNER"
	MealSupper    = "SUPPER"
)

// MealWindow 餐段窗口，Start/End 为 "HH:MM" 格式（含头不含尾）
type MealWindow struct {
	Meal     string `json:"meal"`
	Start    string `json:"start"`
	End      string `json:"end"`
	DailyMax int    `json:"daily_max"` // 该餐段每日可消费次数，0 不限
}

// TimeRange 时间段，跨天（如 22:00-06:00）按两段理解
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AreaConfig 区域策略（只读值对象）
type AreaConfig struct {
	AreaID         int64        `json:"area_id"`
	SubAreaAllow   []int64      `json:"sub_area_allow"` // 白名单，为空表示不限制
	SubAreaDeny    []int64      `json:"sub_area_deny"`  // 黑名单，优先于白名单
	MealWindows    []MealWindow `json:"meal_windows"`
	AllowRanges    []TimeRange  `json:"allow_ranges"` // 为空表示全天允许
	DenyRanges     []TimeRange  `json:"deny_ranges"`
	SingleMax      int64        `json:"single_max"`       // 单笔金额上限（分），0 不限
	DailyAmountMax int64        `json:"daily_amount_max"` // 当日累计金额上限（分），0 不限
	DailyCountMax  int          `json:"daily_count_max"`  // 当日累计次数上限，0 不限
}

// minuteOfDay 解析 "HH:MM" 为当日分钟数
func minuteOfDay(hhmm string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("时间格式不合法: %q", hhmm)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("时间超出范围: %q", hhmm)
	}
	return h*60 + m, nil
}

func (r TimeRange) Contains(t time.Time) bool {
	start, err1 := minuteOfDay(r.Start)
	end, err2 := minuteOfDay(r.End)
	if err1 != nil || err2 != nil {
		return false
	}
	now := t.Hour()*60 + t.Minute()
	if start <= end {
		return now >= start && now < end
	}
	// 跨天区间，如 22:00-06:00
	return now >= start || now < end
}

// Validate 校验配置结构，加载配置时调用，拦截非法的时间格式
func (c *AreaConfig) Validate() error {
	for _, w := range c.MealWindows {
		if _, err := minuteOfDay(w.Start); err != nil {
			return fmt.Errorf("餐段 %s 起始时间不合法: %w", w.Meal, err)
		}
		if _, err := minuteOfDay(w.End); err != nil {
			return fmt.Errorf("餐段 %s 结束时间不合法: %w", w.Meal, err)
		}
	}
	for _, r := range append(append([]TimeRange{}, c.AllowRanges...), c.DenyRanges...) {
		if _, err := minuteOfDay(r.Start); err != nil {
			return err
		}
		if _, err := minuteOfDay(r.End); err != nil {
			return err
		}
	}
	return nil
}

// MealAt 返回时刻 t 所处的餐段，不在任何餐段内返回 false
func (c *AreaConfig) MealAt(t time.Time) (MealWindow, bool) {
	for _, w := range c.MealWindows {
		if (TimeRange{Start: w.Start, End: w.End}).Contains(t) {
			return w, true
		}
	}
	return MealWindow{}, false
}

// AllowsTime 判断时刻 t 是否允许消费：先查黑名单，再查白名单
func (c *AreaConfig) AllowsTime(t time.Time) bool {
	for _, r := range c.DenyRanges {
		if r.Contains(t) {
			return false
		}
	}
	if len(c.AllowRanges) == 0 {
		return true
	}
	for _, r := range c.AllowRanges {
		if r.Contains(t) {
			return true
		}
	}
	return false
}

// AllowsSubArea 判断子区域是否可消费，黑名单优先
func (c *AreaConfig) AllowsSubArea(subAreaID int64) bool {
	for _, id := range c.SubAreaDeny {
		if id == subAreaID {
			return false
		}
	}
	if len(c.SubAreaAllow) == 0 {
		return true
	}
	for _, id := range c.SubAreaAllow {
		if id == subAreaID {
			return true
		}
	}
	return false
}
