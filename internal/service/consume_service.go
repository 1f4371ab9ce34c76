package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"consumesystem/internal/batch"
	"consumesystem/internal/calculator"
	"consumesystem/internal/model"
	"consumesystem/internal/repository"
	"consumesystem/pkg/idgen"
)

// ConsumeService 消费引擎入口
// 单笔流程：幂等挡板 → 刷卡锁 → 区域策略 → 金额计算 → 消费流程模板
// 批量操作把多笔单笔流程包在批量处理器上并行执行
type ConsumeService struct {
	tx       TxRunner
	accounts AccountStore
	records  RecordStore
	configs  ConfigStore
	registry *calculator.Registry
	notifier Notifier

	locker    SwipeLocker      // 可为 nil，表示不启用刷卡锁
	allowList OfflineAllowList // 可为 nil，脱机请求将全部被拒
	counter   UsageCounter     // 可为 nil，表示不启用每日限额

	batchMgr       *batch.Manager
	offlineCeiling int64
}

// ConsumeServiceDeps 构造参数
type ConsumeServiceDeps struct {
	Tx       TxRunner
	Accounts AccountStore
	Records  RecordStore
	Configs  ConfigStore
	Registry *calculator.Registry
	Notifier Notifier

	Locker    SwipeLocker
	AllowList OfflineAllowList
	Counter   UsageCounter

	BatchManager   *batch.Manager
	OfflineCeiling int64
}

func NewConsumeService(d ConsumeServiceDeps) *ConsumeService {
	registry := d.Registry
	if registry == nil {
		registry = calculator.DefaultRegistry()
	}
	notifier := d.Notifier
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &ConsumeService{
		tx:             d.Tx,
		accounts:       d.Accounts,
		records:        d.Records,
		configs:        d.Configs,
		registry:       registry,
		notifier:       notifier,
		locker:         d.Locker,
		allowList:      d.AllowList,
		counter:        d.Counter,
		batchMgr:       d.BatchManager,
		offlineCeiling: d.OfflineCeiling,
	}
}

func (s *ConsumeService) recordNo() string {
	return idgen.GenerateRecordNo()
}

// Consume 处理一笔刷卡请求
//
// 返回值约定（与错误处理分层对应）：
//   - 校验失败 / 业务规则失败 → (*ConsumeResponse{Success:false}, nil)
//   - 乐观锁冲突 → (nil, repository.ErrVersionConflict)，调用方拿新状态重试
//   - 基础设施错误 → (nil, err)，原样上抛
func (s *ConsumeService) Consume(ctx context.Context, req *ConsumeRequest) (*ConsumeResponse, error) {
	if msg := validateRequest(req); msg != "" {
		return &ConsumeResponse{Success: false, Message: msg}, nil
	}

	// 幂等校验：终端重发直接返回已有流水
	existing, err := s.records.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("查询消费流水失败: %w", err)
	}
	if existing != nil {
		return responseFromRecord(existing), nil
	}

	// 刷卡锁：同一设备同一持卡人的毫秒级连刷收敛成串行
	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, req.DeviceID, req.UserID, req.RequestID)
		if err != nil {
			return nil, fmt.Errorf("获取刷卡锁失败: %w", err)
		}
		if !ok {
			return &ConsumeResponse{Success: false, Message: "操作过于频繁，请稍后再试", Kind: model.FailDuplicateRequest}, nil
		}
		defer unlock()

		// 拿锁后再查一次幂等
		existing, err = s.records.GetByRequestID(ctx, req.RequestID)
		if err != nil {
			return nil, fmt.Errorf("查询消费流水失败: %w", err)
		}
		if existing != nil {
			return responseFromRecord(existing), nil
		}
	}

	// 区域策略快照
	area, err := s.configs.GetAreaConfig(ctx, req.AreaID)
	if err != nil {
		if errors.Is(err, repository.ErrAreaConfigNotFound) {
			return s.persistFailure(ctx, req, nil, "", 0, "区域策略不存在", "")
		}
		return nil, err
	}

	// 账户解析：联机以账户记录为准；脱机时账户真值不可达，以终端上送为准
	var account *model.Account
	kindID := req.AccountKindID
	if !req.Offline {
		account, err = s.accounts.GetByUserID(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return s.persistFailure(ctx, req, nil, "", 0, "账户不存在", model.FailAccountNotFound)
			}
			return nil, err
		}
		kindID = account.AccountKindID
	}

	// 消费模式配置与计算器分发
	mc, err := s.configs.GetModeConfig(ctx, kindID)
	if err != nil {
		if errors.Is(err, repository.ErrModeConfigNotFound) {
			return s.persistFailure(ctx, req, account, "", 0, "账户类别未配置消费模式", model.FailModeNotSupported)
		}
		return nil, err
	}
	calc, err := s.registry.Get(mc.Mode)
	if err != nil {
		// 未注册的模式是配置错误，给结构化失败而不是让调用方收到 panic
		return s.persistFailure(ctx, req, account, mc.Mode, 0, err.Error(), model.FailModeNotSupported)
	}

	// 区域策略前置校验（与金额无关的部分）
	if res := s.checkAreaPolicy(ctx, req, area); !res.Success {
		return s.persistFailure(ctx, req, account, mc.Mode, 0, res.Message, res.Kind)
	}

	// 金额计算：计算器内部独立复核 ModeConfig 约束，不信任区域层
	result := calc.Calculate(account, area, mc, calcContext(req, kindID))
	if !result.Success {
		return s.persistFailure(ctx, req, account, mc.Mode, 0, result.Message, result.Kind)
	}
	amount := result.Amount

	// 区域策略金额校验
	if res := s.checkAmountPolicy(ctx, req, area, amount); !res.Success {
		return s.persistFailure(ctx, req, account, mc.Mode, amount, res.Message, res.Kind)
	}

	// 消费流程模板
	hooks := s.onlineHooks()
	if req.Offline {
		hooks = s.offlineHooks()
	}
	resp, err := s.runConsumeFlow(ctx, req, account, mc.Mode, amount, hooks)
	if err != nil {
		// 扣款瞬间才暴露的余额/状态问题属于业务失败，照常落流水
		if errors.Is(err, repository.ErrBalanceNotEnough) {
			return s.persistFailure(ctx, req, account, mc.Mode, amount, "余额不足", model.FailBalanceNotEnough)
		}
		if errors.Is(err, repository.ErrStatusInvalid) {
			return s.persistFailure(ctx, req, account, mc.Mode, amount, "账户状态不可消费", model.FailAccountStatus)
		}
		// 乐观锁冲突与基础设施错误上抛，由调用方决定是否重试
		return nil, err
	}

	if resp.Success {
		s.addUsage(ctx, req, area, amount)
		if result.Detail != nil {
			resp.Detail = result.Detail
		}
	}
	return resp, nil
}

// ConsumeBatch 批量消费（结算、批量导入场景）
// 单条失败互相隔离；整批超时返回 batch.ErrBatchTimeout。
// 单笔流程有幂等挡板，晚到的重复执行是安全的
func (s *ConsumeService) ConsumeBatch(ctx context.Context, reqs []*ConsumeRequest, opts batch.Options) (*batch.Result[*ConsumeResponse], error) {
	return batch.Process(s.batchMgr, reqs, opts, func(req *ConsumeRequest) (*ConsumeResponse, error) {
		return s.Consume(ctx, req)
	})
}

// ConsumeBatchAsync 异步批量消费，完成后回调
func (s *ConsumeService) ConsumeBatchAsync(ctx context.Context, reqs []*ConsumeRequest, opts batch.Options, callback func(*batch.Result[*ConsumeResponse], error)) {
	batch.ProcessAsync(s.batchMgr, reqs, opts, func(req *ConsumeRequest) (*ConsumeResponse, error) {
		return s.Consume(ctx, req)
	}, callback)
}

// ----------------------------------------------------------------------------
// 区域策略校验
// ----------------------------------------------------------------------------

// checkAreaPolicy 金额无关的区域校验：时段、子区域、餐段次数、每日次数
// 每日计数依赖共享计数器，脱机请求跳过（脱机风险由白名单+保守上限兜底）
func (s *ConsumeService) checkAreaPolicy(ctx context.Context, req *ConsumeRequest, area *model.AreaConfig) *model.ConsumeResult {
	t := req.Time()

	if !area.AllowsTime(t) {
		return model.FailureResult("当前时段不允许消费").WithKind(model.FailWindowViolation)
	}
	if req.SubAreaID != 0 && !area.AllowsSubArea(req.SubAreaID) {
		return model.FailureResult("该子区域不允许消费").WithKind(model.FailWindowViolation)
	}

	var window model.MealWindow
	var inMeal bool
	if len(area.MealWindows) > 0 {
		window, inMeal = area.MealAt(t)
		if !inMeal {
			return model.FailureResult("当前时刻不在任何餐段内").WithKind(model.FailWindowViolation)
		}
	}

	if req.Offline || s.counter == nil {
		return model.SuccessResult(0)
	}

	if inMeal && window.DailyMax > 0 {
		count, err := s.counter.GetMealCount(ctx, req.UserID, t, window.Meal)
		if err != nil {
			log.Printf("[ConsumeService] 查询餐段计数失败，放行: %v", err)
		} else if count >= window.DailyMax {
			return model.FailureResult(fmt.Sprintf("餐段 %s 消费次数已用完", window.Meal)).WithKind(model.FailLimitExceeded)
		}
	}

	if area.DailyCountMax > 0 {
		usage, err := s.counter.GetUsage(ctx, req.UserID, t)
		if err != nil {
			log.Printf("[ConsumeService] 查询每日计数失败，放行: %v", err)
		} else if usage.Count >= area.DailyCountMax {
			return model.FailureResult("超出每日消费次数上限").WithKind(model.FailLimitExceeded)
		}
	}

	return model.SuccessResult(0)
}

// checkAmountPolicy 金额相关的区域校验：单笔限额、每日金额限额
func (s *ConsumeService) checkAmountPolicy(ctx context.Context, req *ConsumeRequest, area *model.AreaConfig, amount int64) *model.ConsumeResult {
	if area.SingleMax > 0 && amount > area.SingleMax {
		return model.FailureResult(fmt.Sprintf("超出单笔消费限额 %d", area.SingleMax)).WithKind(model.FailLimitExceeded)
	}

	if req.Offline || s.counter == nil || area.DailyAmountMax <= 0 {
		return model.SuccessResult(0)
	}

	usage, err := s.counter.GetUsage(ctx, req.UserID, req.Time())
	if err != nil {
		log.Printf("[ConsumeService] 查询每日额度失败，放行: %v", err)
		return model.SuccessResult(0)
	}
	if usage.Amount+amount > area.DailyAmountMax {
		return model.FailureResult("超出每日消费金额上限").WithKind(model.FailLimitExceeded)
	}
	return model.SuccessResult(0)
}

// addUsage 扣款成功后累加当日额度，失败只记日志不影响主流程
func (s *ConsumeService) addUsage(ctx context.Context, req *ConsumeRequest, area *model.AreaConfig, amount int64) {
	if s.counter == nil {
		return
	}
	meal := ""
	if w, ok := area.MealAt(req.Time()); ok {
		meal = w.Meal
	}
	if err := s.counter.AddUsage(ctx, req.UserID, req.Time(), amount, meal); err != nil {
		log.Printf("[ConsumeService] 累加每日额度失败: userID=%d, err=%v", req.UserID, err)
	}
}

// ----------------------------------------------------------------------------
// 辅助
// ----------------------------------------------------------------------------

func validateRequest(req *ConsumeRequest) string {
	switch {
	case req.RequestID == "":
		return "request_id 不能为空"
	case req.UserID <= 0:
		return "user_id 不合法"
	case req.DeviceID == "":
		return "device_id 不能为空"
	case req.AreaID <= 0:
		return "area_id 不合法"
	case req.Offline && req.AccountKindID <= 0:
		return "脱机请求必须携带 account_kind_id"
	}
	return ""
}

func calcContext(req *ConsumeRequest, kindID int64) *calculator.Context {
	return &calculator.Context{
		RequestID:       req.RequestID,
		UserID:          req.UserID,
		AccountKindID:   kindID,
		AreaID:          req.AreaID,
		SubAreaID:       req.SubAreaID,
		DeviceID:        req.DeviceID,
		Time:            req.Time(),
		DeclaredAmount:  req.DeclaredAmount,
		Units:           req.Units,
		DurationMinutes: req.DurationMinutes,
		Items:           req.Items,
		OrderNo:         req.OrderNo,
		PickupTime:      req.PickupTime,
		RecommendAmount: req.RecommendAmount,
	}
}

func responseFromRecord(record *model.ConsumeRecord) *ConsumeResponse {
	success := record.PayStatus == model.PayStatusPaid || record.PayStatus == model.PayStatusPendingDeduct
	resp := &ConsumeResponse{
		Success:   success,
		RecordNo:  record.RecordNo,
		Amount:    record.Amount,
		PayStatus: record.PayStatus,
		Message:   "重复请求，返回已有流水",
	}
	if !success {
		resp.Kind = model.FailDuplicateRequest
	}
	return resp
}
