package handler

import (
	"errors"
	"strconv"

	"consumesystem/internal/batch"
	"consumesystem/internal/model"
	"consumesystem/internal/repository"
	"consumesystem/internal/service"
	"consumesystem/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	consumeService *service.ConsumeService
	accountService *service.AccountService
	recordRepo     *repository.RecordRepository
	rechargeRepo   *repository.RechargeRepository
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, consumeService *service.ConsumeService) *Handler {
	return &Handler{
		consumeService: consumeService,
		accountService: service.NewAccountService(db),
		recordRepo:     repository.NewRecordRepository(db),
		rechargeRepo:   repository.NewRechargeRepository(db),
	}
}

// failureCodes 失败类别到业务错误码的映射
var failureCodes = map[string]int{
	model.FailAccountNotFound:    response.CodeAccountNotFound,
	model.FailAccountStatus:      response.CodeAccountStatus,
	model.FailBalanceNotEnough:   response.CodeBalanceNotEnough,
	model.FailDuplicateRequest:   response.CodeDuplicateRequest,
	model.FailWindowViolation:    response.CodeWindowViolation,
	model.FailLimitExceeded:      response.CodeLimitExceeded,
	model.FailModeNotSupported:   response.CodeModeNotSupported,
	model.FailDeviceUnauthorized: response.CodeDeviceUnauthorized,
}

func failureCode(kind string) int {
	if code, ok := failureCodes[kind]; ok {
		return code
	}
	return response.CodeBusinessError
}

// ============================================================
// 消费相关接口
// ============================================================

// Consume 刷卡消费
// POST /api/v1/consume/execute
//
// 【关键点】业务失败（余额不足、时段不允许等）返回 Success=false 的结构化结果；
// 乐观锁冲突返回专门的错误码，终端应刷新状态后重试
func (h *Handler) Consume(c *gin.Context) {
	var req service.ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.consumeService.Consume(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			response.BusinessError(c, response.CodeVersionConflict, "系统繁忙，请重试")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	if !result.Success {
		// 业务失败带上对应的错误码，终端据此决定提示与重试策略
		response.BusinessErrorData(c, failureCode(result.Kind), result.Message, result)
		return
	}
	response.Success(c, result)
}

// ConsumeBatchRequest 批量消费请求（脱机流水上传、结算导入）
type ConsumeBatchRequest struct {
	Requests []*service.ConsumeRequest `json:"requests" binding:"required"`
}

// ConsumeBatch 批量消费
// POST /api/v1/consume/batch
func (h *Handler) ConsumeBatch(c *gin.Context) {
	var req ConsumeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.consumeService.ConsumeBatch(c.Request.Context(), req.Requests, batch.Options{})
	if err != nil {
		if errors.Is(err, batch.ErrBatchTimeout) {
			response.BusinessError(c, response.CodeBusinessError, "批量处理等待超时，在途条目仍在执行")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	failures := make([]gin.H, 0, len(result.Failures))
	for _, f := range result.Failures {
		failures = append(failures, gin.H{"index": f.Index, "error": f.Err.Error()})
	}

	response.Success(c, gin.H{
		"total":    len(req.Requests),
		"results":  result.Successes,
		"failures": failures,
	})
}

// ============================================================
// 账户相关接口
// ============================================================

// GetBalance 查询余额
// GET /api/v1/account/balance?user_id=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	userIDStr := c.Query("user_id")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	account, err := h.accountService.GetAccount(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			response.BusinessError(c, response.CodeAccountNotFound, "账户不存在")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"user_id": account.UserID,
		"balance": account.Balance,
		"status":  account.Status,
	})
}

// RechargeRequest 充值请求
type RechargeRequest struct {
	UserID  int64  `json:"user_id" binding:"required"`
	Amount  int64  `json:"amount" binding:"required,gt=0"`
	Channel string `json:"channel"` // 充值渠道，缺省为手工入账
}

// Recharge 充值接口（渠道回调确认后的入账）
// POST /api/v1/account/recharge
func (h *Handler) Recharge(c *gin.Context) {
	var req RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	rechargeNo, err := h.accountService.Recharge(c.Request.Context(), req.UserID, req.Amount, req.Channel)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"recharge_no": rechargeNo,
	})
}

// ListRecharges 查询用户充值流水
// GET /api/v1/account/recharges?user_id=xxx&page=1&page_size=10
func (h *Handler) ListRecharges(c *gin.Context) {
	userIDStr := c.Query("user_id")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	records, total, err := h.rechargeRepo.ListByUserID(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 流水相关接口
// ============================================================

// ListRecords 查询用户消费流水
// GET /api/v1/record/list?user_id=xxx&page=1&page_size=10
func (h *Handler) ListRecords(c *gin.Context) {
	userIDStr := c.Query("user_id")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	records, total, err := h.recordRepo.ListByUserID(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
