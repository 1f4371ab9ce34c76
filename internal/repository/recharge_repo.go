package repository

import (
	"context"

	"consumesystem/internal/model"

	"gorm.io/gorm"
)

type RechargeRepository struct {
	db *gorm.DB
}

func NewRechargeRepository(db *gorm.DB) *RechargeRepository {
	return &RechargeRepository{db: db}
}

// Insert 写入充值流水，必须与入账在同一事务内调用
func (r *RechargeRepository) Insert(ctx context.Context, tx *gorm.DB, record *model.RechargeRecord) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(record).Error
}

func (r *RechargeRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.RechargeRecord, int64, error) {
	var records []*model.RechargeRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&model.RechargeRecord{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error

	return records, total, err
}
