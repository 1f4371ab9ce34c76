package repository

import (
	"context"
	"errors"

	"consumesystem/internal/model"

	"gorm.io/gorm"
)

var (
	ErrAccountNotFound  = errors.New("账户不存在")
	ErrBalanceNotEnough = errors.New("余额不足")
	ErrVersionConflict  = errors.New("乐观锁冲突，请重试")
	ErrStatusInvalid    = errors.New("账户状态不合法")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) SelectByID(ctx context.Context, accountID int64) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("id = ?", accountID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// DeductBalance 乐观锁扣款
//
// 【关键点】扣减余额、校验版本号、校验余额充足在同一条条件 UPDATE 里完成，
// 不允许拆成"先读后写"——两个终端同时扣同一账户时，只有先提交的能成功，
// 后提交的拿到 RowsAffected=0
//
// RowsAffected=0 时回读账户区分两种情况：
//   - 余额确实不足      -> ErrBalanceNotEnough（正常业务失败）
//   - 版本号已被人改了  -> ErrVersionConflict（需要调用方拿新状态重试）
func (r *AccountRepository) DeductBalance(ctx context.Context, tx *gorm.DB, accountID int64, amount int64, expectedVersion int) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND balance >= ? AND version = ? AND status = ?",
			accountID, amount, expectedVersion, model.AccountStatusActive).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance - ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		account, err := r.SelectByID(ctx, accountID)
		if err != nil {
			return err
		}
		if !account.IsActive() {
			return ErrStatusInvalid
		}
		if account.Balance < amount {
			return ErrBalanceNotEnough
		}
		return ErrVersionConflict
	}

	return nil
}

// CreditBalance 入账（充值/补贴发放），版本号同样 +1
func (r *AccountRepository) CreditBalance(ctx context.Context, tx *gorm.DB, accountID int64, amount int64) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND status <> ?", accountID, model.AccountStatusClosed).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// UpdateStatus 账户状态流转，按状态机校验
func (r *AccountRepository) UpdateStatus(ctx context.Context, accountID int64, fromStatus, toStatus string) error {
	if !model.CanAccountTransitionTo(fromStatus, toStatus) {
		return ErrStatusInvalid
	}

	result := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND status = ?", accountID, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusInvalid
	}
	return nil
}
