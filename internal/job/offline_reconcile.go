package job

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"consumesystem/internal/batch"
	"consumesystem/internal/config"
	"consumesystem/internal/model"
	"consumesystem/internal/repository"

	"gorm.io/gorm"
)

// 补扣只用到仓储的一小部分能力，收窄成接口，内存实现即可测试
type accountStore interface {
	GetByUserID(ctx context.Context, userID int64) (*model.Account, error)
	DeductBalance(ctx context.Context, tx *gorm.DB, accountID int64, amount int64, expectedVersion int) error
}

type pendingRecordStore interface {
	GetPendingOfflineRecords(ctx context.Context, limit int) ([]*model.ConsumeRecord, error)
	UpdatePayStatus(ctx context.Context, tx *gorm.DB, recordNo string, fromStatus, toStatus string, remark string) error
}

type txRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// OfflineReconcileJob 脱机流水补扣任务
//
// 终端脱机期间产生的流水只记了账没扣钱（PENDING_DEDUCT），
// 网络恢复后由本任务统一补扣：按乐观锁扣减真实余额，
// 扣成标 PAID，余额不足标 FAILED 交人工处理。
//
// 补扣走批量处理器并行执行；单条流水的状态流转有状态机兜底，
// 重复执行是幂等的，晚到的批量完成不会造成重复扣款
type OfflineReconcileJob struct {
	tx        txRunner
	accounts  accountStore
	records   pendingRecordStore
	batchMgr  *batch.Manager
	cfg       *config.Config
	stopCh    chan struct{}
	interval  time.Duration
	batchSize int
}

func NewOfflineReconcileJob(db *gorm.DB, batchMgr *batch.Manager, cfg *config.Config) *OfflineReconcileJob {
	return &OfflineReconcileJob{
		tx:        db,
		accounts:  repository.NewAccountRepository(db),
		records:   repository.NewRecordRepository(db),
		batchMgr:  batchMgr,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		interval:  30 * time.Second,
		batchSize: 500,
	}
}

func (j *OfflineReconcileJob) Start(ctx context.Context) {
	log.Println("[OfflineReconcileJob] 脱机补扣任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OfflineReconcileJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[OfflineReconcileJob] 任务停止")
			return
		case <-ticker.C:
			j.reconcilePendingRecords(ctx)
		}
	}
}

func (j *OfflineReconcileJob) Stop() {
	close(j.stopCh)
}

func (j *OfflineReconcileJob) reconcilePendingRecords(ctx context.Context) {
	records, err := j.records.GetPendingOfflineRecords(ctx, j.batchSize)
	if err != nil {
		log.Printf("[OfflineReconcileJob] 查询待补扣流水失败: %v", err)
		return
	}

	if len(records) == 0 {
		return
	}

	log.Printf("[OfflineReconcileJob] 发现 %d 条待补扣流水", len(records))

	result, err := batch.Process(j.batchMgr, records, batch.Options{},
		func(record *model.ConsumeRecord) (string, error) {
			if err := j.reconcileRecord(ctx, record); err != nil {
				return "", err
			}
			return record.RecordNo, nil
		})
	if err != nil {
		// 超时只是不再等待，在途的补扣仍会完成，下一轮不会重复扣
		log.Printf("[OfflineReconcileJob] 批量补扣未完成: %v", err)
		return
	}

	log.Printf("[OfflineReconcileJob] 本轮补扣完成: 成功 %d 条，失败 %d 条",
		len(result.Successes), len(result.Failures))
}

// reconcileRecord 补扣单条流水
// 乐观锁冲突时拿新版本号重试有限次，其余错误留给下一轮
func (j *OfflineReconcileJob) reconcileRecord(ctx context.Context, record *model.ConsumeRecord) error {
	account, err := j.accounts.GetByUserID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return j.markFailed(ctx, record, "账户不存在")
		}
		return err
	}

	retries := j.cfg.Business.ReconcileRetries
	if retries <= 0 {
		retries = 3
	}

	for i := 0; i < retries; i++ {
		err = j.tx.Transaction(func(tx *gorm.DB) error {
			if err := j.accounts.DeductBalance(ctx, tx, account.ID, record.Amount, account.Version); err != nil {
				return err
			}
			return j.records.UpdatePayStatus(ctx, tx, record.RecordNo,
				model.PayStatusPendingDeduct, model.PayStatusPaid, "")
		})

		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrBalanceNotEnough):
			return j.markFailed(ctx, record, "补扣时余额不足")
		case errors.Is(err, repository.ErrStatusInvalid):
			return j.markFailed(ctx, record, "补扣时账户状态不可扣款")
		case errors.Is(err, repository.ErrVersionConflict):
			// 与在线消费撞了版本号，取最新账户状态重试
			account, err = j.accounts.GetByUserID(ctx, record.UserID)
			if err != nil {
				return err
			}
		default:
			return err
		}
	}

	return repository.ErrVersionConflict
}

func (j *OfflineReconcileJob) markFailed(ctx context.Context, record *model.ConsumeRecord, reason string) error {
	log.Printf("[OfflineReconcileJob] 流水补扣失败: recordNo=%s, reason=%s", record.RecordNo, reason)
	return j.records.UpdatePayStatus(ctx, nil, record.RecordNo,
		model.PayStatusPendingDeduct, model.PayStatusFailed, reason)
}
