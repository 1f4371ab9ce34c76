package service

import (
	"context"
	"errors"

	"consumesystem/internal/model"
	"consumesystem/internal/repository"
	"consumesystem/pkg/idgen"

	"gorm.io/gorm"
)

// AccountService 账户查询与充值
// 外部充值渠道（支付宝/微信）的对接在引擎之外，这里只负责
// 渠道回调确认后的入账动作
type AccountService struct {
	tx        TxRunner
	accounts  AccountStore
	recharges RechargeStore
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		tx:        db,
		accounts:  repository.NewAccountRepository(db),
		recharges: repository.NewRechargeRepository(db),
	}
}

func (s *AccountService) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	return s.accounts.GetByUserID(ctx, userID)
}

func (s *AccountService) GetBalance(ctx context.Context, userID int64) (int64, error) {
	account, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return account.Balance, nil
}

// Recharge 入账，返回充值流水号
// 入账与充值流水在同一事务内写入，同生共死
func (s *AccountService) Recharge(ctx context.Context, userID, amount int64, channel string) (string, error) {
	if amount <= 0 {
		return "", errors.New("充值金额必须大于0")
	}

	account, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if account.Status == model.AccountStatusClosed {
		return "", errors.New("账户已销户，无法充值")
	}

	if channel == "" {
		channel = model.RechargeChannelManual
	}
	record := &model.RechargeRecord{
		RechargeNo: idgen.GenerateRechargeNo(),
		UserID:     userID,
		AccountID:  account.ID,
		Amount:     amount,
		Channel:    channel,
	}

	err = s.tx.Transaction(func(tx *gorm.DB) error {
		if err := s.accounts.CreditBalance(ctx, tx, account.ID, amount); err != nil {
			return err
		}
		return s.recharges.Insert(ctx, tx, record)
	})
	if err != nil {
		return "", err
	}
	return record.RechargeNo, nil
}

// Freeze 冻结账户（挂失）
func (s *AccountService) Freeze(ctx context.Context, userID int64) error {
	account, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	return s.accounts.UpdateStatus(ctx, account.ID, model.AccountStatusActive, model.AccountStatusFrozen)
}

// Unfreeze 解冻账户
func (s *AccountService) Unfreeze(ctx context.Context, userID int64) error {
	account, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	return s.accounts.UpdateStatus(ctx, account.ID, model.AccountStatusFrozen, model.AccountStatusActive)
}
