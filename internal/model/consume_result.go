package model

// 失败类别，终端据此决定提示文案和是否重试，与提示消息分离
const (
	FailAccountNotFound    = "ACCOUNT_NOT_FOUND"
	FailAccountStatus      = "ACCOUNT_STATUS"
	FailBalanceNotEnough   = "BALANCE_NOT_ENOUGH"
	FailDuplicateRequest   = "DUPLICATE_REQUEST"
	FailWindowViolation    = "WINDOW_VIOLATION"
	FailLimitExceeded      = "LIMIT_EXCEEDED"
	FailModeNotSupported   = "MODE_NOT_SUPPORTED"
	FailDeviceUnauthorized = "DEVICE_UNAUTHORIZED"
)

// ConsumeResult 金额计算结果（临时对象，不落库）
// 计算器产出，消费流程立即消费掉
//
// 【约定】"不支持/不适用"属于预期内结果，走 Success=false，
// 绝不允许计算器以 panic 或 error 的形式抛给流程层
type ConsumeResult struct {
	Success bool              `json:"success"`
	Amount  int64             `json:"amount"` // 分
	Message string            `json:"message,omitempty"`
	Kind    string            `json:"kind,omitempty"` // 失败类别
	Detail  map[string]string `json:"detail,omitempty"`
}

// SuccessResult 构造成功结果
func SuccessResult(amount int64) *ConsumeResult {
	return &ConsumeResult{Success: true, Amount: amount}
}

// FailureResult 构造失败结果
func FailureResult(message string) *ConsumeResult {
	return &ConsumeResult{Success: false, Message: message}
}

// WithKind 标记失败类别，返回自身便于链式调用
func (r *ConsumeResult) WithKind(kind string) *ConsumeResult {
	r.Kind = kind
	return r
}

// WithDetail 附加明细项，返回自身便于链式调用
func (r *ConsumeResult) WithDetail(key, value string) *ConsumeResult {
	if r.Detail == nil {
		r.Detail = make(map[string]string)
	}
	r.Detail[key] = value
	return r
}
