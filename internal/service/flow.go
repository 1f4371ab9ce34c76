package service

import (
	"context"
	"fmt"
	"log"

	"consumesystem/internal/model"

	"gorm.io/gorm"
)

// ============================================================================
// 消费流程模板
// ============================================================================
//
// 固定骨架：校验账户 → 校验资金 → 执行扣款+落流水+通知（一个事务）
// 骨架不可覆盖，联机/脱机是四个挂点的两组取值，不是两个子类。
//
// 失败语义：
//   - 账户不可用、资金不足、设备未授权 → 结构化失败，落 FAILED 流水
//   - 乐观锁冲突 → error 上抛，不落流水（同一 request_id 可原样重试）
//   - 基础设施错误 → error 上抛，绝不吞掉
// ============================================================================

// flowHooks 消费流程的四个挂点
type flowHooks struct {
	name string

	// validateAccount 账户校验，返回失败结果表示拒绝
	validateAccount func(ctx context.Context, req *ConsumeRequest, account *model.Account) *model.ConsumeResult

	// checkFunds 资金充足性校验
	checkFunds func(ctx context.Context, account *model.Account, amount int64) *model.ConsumeResult

	// executePayment 执行扣款并设置流水状态，在事务内调用
	executePayment func(ctx context.Context, tx *gorm.DB, account *model.Account, record *model.ConsumeRecord) error

	// notify 完成通知，在扣款事务内调用，默认空实现
	notify func(ctx context.Context, tx *gorm.DB, account *model.Account, record *model.ConsumeRecord, req *ConsumeRequest) error
}

// runConsumeFlow 执行固定流程骨架
//
// account 在脱机流程下可能为 nil（账户真值不可达），各挂点自行处理
func (s *ConsumeService) runConsumeFlow(ctx context.Context, req *ConsumeRequest, account *model.Account, mode string, amount int64, hooks flowHooks) (*ConsumeResponse, error) {
	// 1. 账户校验
	if res := hooks.validateAccount(ctx, req, account); !res.Success {
		return s.persistFailure(ctx, req, account, mode, amount, res.Message, res.Kind)
	}

	// 2. 资金校验
	if res := hooks.checkFunds(ctx, account, amount); !res.Success {
		return s.persistFailure(ctx, req, account, mode, amount, res.Message, res.Kind)
	}

	record := s.newRecord(req, account, mode, amount)

	// 3. 扣款、落流水、通知在同一事务内，同生共死
	err := s.tx.Transaction(func(tx *gorm.DB) error {
		if err := hooks.executePayment(ctx, tx, account, record); err != nil {
			return err
		}
		if err := s.records.Insert(ctx, tx, record); err != nil {
			return fmt.Errorf("写入消费流水失败: %w", err)
		}
		return hooks.notify(ctx, tx, account, record, req)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[ConsumeFlow] %s 消费完成: recordNo=%s, userID=%d, amount=%d, status=%s",
		hooks.name, record.RecordNo, req.UserID, amount, record.PayStatus)

	return &ConsumeResponse{
		Success:   true,
		RecordNo:  record.RecordNo,
		Amount:    amount,
		PayStatus: record.PayStatus,
	}, nil
}

// newRecord 构造本次刷卡的流水
func (s *ConsumeService) newRecord(req *ConsumeRequest, account *model.Account, mode string, amount int64) *model.ConsumeRecord {
	var accountID int64
	if account != nil {
		accountID = account.ID
	}
	return &model.ConsumeRecord{
		RecordNo:   s.recordNo(),
		RequestID:  req.RequestID,
		UserID:     req.UserID,
		AccountID:  accountID,
		Amount:     amount,
		DeviceID:   req.DeviceID,
		AreaID:     req.AreaID,
		Mode:       mode,
		PayMethod:  model.PayMethodBalance,
		ConsumedAt: req.Time(),
	}
}

// persistFailure 业务失败也要落流水（审计要求：每次刷卡尝试都有迹可查）
func (s *ConsumeService) persistFailure(ctx context.Context, req *ConsumeRequest, account *model.Account, mode string, amount int64, message, kind string) (*ConsumeResponse, error) {
	record := s.newRecord(req, account, mode, amount)
	record.PayStatus = model.PayStatusFailed
	record.Remark = message

	if err := s.records.Insert(ctx, nil, record); err != nil {
		return nil, fmt.Errorf("写入失败流水失败: %w", err)
	}

	return &ConsumeResponse{
		Success:   false,
		RecordNo:  record.RecordNo,
		Amount:    amount,
		PayStatus: model.PayStatusFailed,
		Message:   message,
		Kind:      kind,
	}, nil
}

// ----------------------------------------------------------------------------
// 联机流程：中心侧为权威，实时扣款
// ----------------------------------------------------------------------------

func (s *ConsumeService) onlineHooks() flowHooks {
	return flowHooks{
		name: "Online",
		validateAccount: func(ctx context.Context, req *ConsumeRequest, account *model.Account) *model.ConsumeResult {
			if account == nil {
				return model.FailureResult("账户不存在").WithKind(model.FailAccountNotFound)
			}
			if !account.IsActive() {
				return model.FailureResult(fmt.Sprintf("账户状态不可消费: %s", account.Status)).
					WithKind(model.FailAccountStatus)
			}
			return model.SuccessResult(0)
		},
		checkFunds: func(ctx context.Context, account *model.Account, amount int64) *model.ConsumeResult {
			if account.Balance < amount {
				return model.FailureResult("余额不足").WithKind(model.FailBalanceNotEnough)
			}
			return model.SuccessResult(0)
		},
		executePayment: func(ctx context.Context, tx *gorm.DB, account *model.Account, record *model.ConsumeRecord) error {
			if err := s.accounts.DeductBalance(ctx, tx, account.ID, record.Amount, account.Version); err != nil {
				return err
			}
			record.PayStatus = model.PayStatusPaid
			return nil
		},
		notify: s.notifier.Notify,
	}
}

// ----------------------------------------------------------------------------
// 脱机流程：终端侧为权威，降级记账
//
// 断网期间账户真值不可达，只做白名单+保守限额兜底；
// 不动余额，落 PENDING_DEDUCT 流水，由补扣任务在网络恢复后统一清算
// ----------------------------------------------------------------------------

func (s *ConsumeService) offlineHooks() flowHooks {
	return flowHooks{
		name: "Offline",
		validateAccount: func(ctx context.Context, req *ConsumeRequest, account *model.Account) *model.ConsumeResult {
			// 只信本地白名单快照，不发任何网络请求
			if s.allowList == nil || !s.allowList.Allowed(req.AreaID, req.UserID) {
				return model.FailureResult("持卡人不在脱机白名单内").WithKind(model.FailDeviceUnauthorized)
			}
			return model.SuccessResult(0)
		},
		checkFunds: func(ctx context.Context, account *model.Account, amount int64) *model.ConsumeResult {
			// 读不到真实余额，用保守的固定上限兜底
			if amount > s.offlineCeiling {
				return model.FailureResult(fmt.Sprintf("超出脱机消费上限 %d", s.offlineCeiling)).
					WithKind(model.FailLimitExceeded)
			}
			return model.SuccessResult(0)
		},
		executePayment: func(ctx context.Context, tx *gorm.DB, account *model.Account, record *model.ConsumeRecord) error {
			// 不做余额变动，真正的扣款推迟到补扣任务
			record.PayStatus = model.PayStatusPendingDeduct
			record.OfflineSync = true
			return nil
		},
		notify: s.notifier.Notify,
	}
}
