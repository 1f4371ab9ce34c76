package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"consumesystem/internal/model"
	"consumesystem/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRechargeStore struct {
	mu      sync.Mutex
	records []*model.RechargeRecord
}

func (f *fakeRechargeStore) Insert(ctx context.Context, tx *gorm.DB, record *model.RechargeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *record
	f.records = append(f.records, &cp)
	return nil
}

func newAccountServiceEnv(status string) (*AccountService, *fakeAccountStore, *fakeRechargeStore) {
	accounts := &fakeAccountStore{
		accounts: map[int64]*model.Account{
			testAccountID: {
				ID:      testAccountID,
				UserID:  testUserID,
				Balance: 5000,
				Version: 1,
				Status:  status,
			},
		},
	}
	recharges := &fakeRechargeStore{}
	svc := &AccountService{tx: fakeTx{}, accounts: accounts, recharges: recharges}
	return svc, accounts, recharges
}

// 充值入账与充值流水同事务写入
func TestRechargeWritesLedgerRecord(t *testing.T) {
	svc, accounts, recharges := newAccountServiceEnv(model.AccountStatusActive)

	rechargeNo, err := svc.Recharge(context.Background(), testUserID, 3000, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rechargeNo, "RCG"))

	account, err := accounts.GetByUserID(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), account.Balance)
	assert.Equal(t, 2, account.Version)

	require.Len(t, recharges.records, 1)
	record := recharges.records[0]
	assert.Equal(t, rechargeNo, record.RechargeNo)
	assert.Equal(t, testUserID, record.UserID)
	assert.Equal(t, int64(testAccountID), record.AccountID)
	assert.Equal(t, int64(3000), record.Amount)
	assert.Equal(t, model.RechargeChannelManual, record.Channel)
}

func TestRechargeKeepsChannel(t *testing.T) {
	svc, _, recharges := newAccountServiceEnv(model.AccountStatusActive)

	_, err := svc.Recharge(context.Background(), testUserID, 1000, model.RechargeChannelAlipay)
	require.NoError(t, err)
	require.Len(t, recharges.records, 1)
	assert.Equal(t, model.RechargeChannelAlipay, recharges.records[0].Channel)
}

func TestRechargeClosedAccountRejected(t *testing.T) {
	svc, accounts, recharges := newAccountServiceEnv(model.AccountStatusClosed)

	_, err := svc.Recharge(context.Background(), testUserID, 1000, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "销户")

	account, err := accounts.GetByUserID(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), account.Balance)
	assert.Empty(t, recharges.records)
}

func TestRechargeNonPositiveAmountRejected(t *testing.T) {
	svc, _, recharges := newAccountServiceEnv(model.AccountStatusActive)

	for _, amount := range []int64{0, -100} {
		_, err := svc.Recharge(context.Background(), testUserID, amount, "")
		require.Error(t, err)
	}
	assert.Empty(t, recharges.records)
}

func TestFreezeUnfreezeStateMachine(t *testing.T) {
	svc, accounts, _ := newAccountServiceEnv(model.AccountStatusActive)
	ctx := context.Background()

	require.NoError(t, svc.Freeze(ctx, testUserID))
	account, err := accounts.GetByUserID(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, model.AccountStatusFrozen, account.Status)

	// 重复冻结非法
	err = svc.Freeze(ctx, testUserID)
	assert.ErrorIs(t, err, repository.ErrStatusInvalid)

	require.NoError(t, svc.Unfreeze(ctx, testUserID))
	account, err = accounts.GetByUserID(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, model.AccountStatusActive, account.Status)
}
