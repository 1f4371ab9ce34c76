package repository

import (
	"context"
	"errors"

	"consumesystem/internal/model"

	"gorm.io/gorm"
)

var (
	ErrRecordNotFound      = errors.New("消费流水不存在")
	ErrRecordStatusInvalid = errors.New("流水状态不合法")
)

type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Insert(ctx context.Context, tx *gorm.DB, record *model.ConsumeRecord) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(record).Error
}

// GetByRequestID 幂等查询：终端重发同一 request_id 时返回已有流水
func (r *RecordRepository) GetByRequestID(ctx context.Context, requestID string) (*model.ConsumeRecord, error) {
	var record model.ConsumeRecord
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *RecordRepository) GetByRecordNo(ctx context.Context, recordNo string) (*model.ConsumeRecord, error) {
	var record model.ConsumeRecord
	err := r.db.WithContext(ctx).Where("record_no = ?", recordNo).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// GetPendingOfflineRecords 拉取待补扣的脱机流水
func (r *RecordRepository) GetPendingOfflineRecords(ctx context.Context, limit int) ([]*model.ConsumeRecord, error) {
	var records []*model.ConsumeRecord
	err := r.db.WithContext(ctx).
		Where("offline_sync = ? AND pay_status = ?", true, model.PayStatusPendingDeduct).
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// UpdatePayStatus 流水状态流转（仅补扣流程使用），按状态机校验
func (r *RecordRepository) UpdatePayStatus(ctx context.Context, tx *gorm.DB, recordNo string, fromStatus, toStatus string, remark string) error {
	if !model.CanPayStatusTransitionTo(fromStatus, toStatus) {
		return ErrRecordStatusInvalid
	}

	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{
		"pay_status": toStatus,
	}
	if remark != "" {
		updates["remark"] = remark
	}

	result := tx.WithContext(ctx).
		Model(&model.ConsumeRecord{}).
		Where("record_no = ? AND pay_status = ?", recordNo, fromStatus).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordStatusInvalid
	}
	return nil
}

func (r *RecordRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.ConsumeRecord, int64, error) {
	var records []*model.ConsumeRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&model.ConsumeRecord{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error

	return records, total, err
}
