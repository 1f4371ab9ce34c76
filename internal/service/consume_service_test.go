package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"consumesystem/internal/batch"
	"consumesystem/internal/model"
	"consumesystem/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ============================================================================
// 内存假实现
// ============================================================================

type fakeTx struct{}

func (fakeTx) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	return fc(nil)
}

type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[int64]*model.Account // key: accountID
	// conflictNext 为 true 时下一次扣款强制返回版本冲突
	conflictNext bool
}

func (f *fakeAccountStore) clone(a *model.Account) *model.Account {
	cp := *a
	return &cp
}

func (f *fakeAccountStore) SelectByID(ctx context.Context, accountID int64) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return f.clone(a), nil
}

func (f *fakeAccountStore) GetByUserID(ctx context.Context, userID int64) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.UserID == userID {
			return f.clone(a), nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

// DeductBalance 复刻条件 UPDATE 的语义：版本、余额、状态一次校验，
// 失败时按 状态 → 余额 → 版本 的顺序归因
func (f *fakeAccountStore) DeductBalance(ctx context.Context, tx *gorm.DB, accountID int64, amount int64, expectedVersion int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conflictNext {
		f.conflictNext = false
		return repository.ErrVersionConflict
	}

	a, ok := f.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	if !a.IsActive() {
		return repository.ErrStatusInvalid
	}
	if a.Balance < amount {
		return repository.ErrBalanceNotEnough
	}
	if a.Version != expectedVersion {
		return repository.ErrVersionConflict
	}

	a.Balance -= amount
	a.Version++
	return nil
}

func (f *fakeAccountStore) CreditBalance(ctx context.Context, tx *gorm.DB, accountID int64, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.Balance += amount
	a.Version++
	return nil
}

func (f *fakeAccountStore) UpdateStatus(ctx context.Context, accountID int64, fromStatus, toStatus string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	if a.Status != fromStatus || !model.CanAccountTransitionTo(fromStatus, toStatus) {
		return repository.ErrStatusInvalid
	}
	a.Status = toStatus
	return nil
}

type fakeRecordStore struct {
	mu      sync.Mutex
	records []*model.ConsumeRecord
}

func (f *fakeRecordStore) Insert(ctx context.Context, tx *gorm.DB, record *model.ConsumeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.RequestID == record.RequestID {
			return fmt.Errorf("重复的 request_id: %s", record.RequestID)
		}
	}
	cp := *record
	f.records = append(f.records, &cp)
	return nil
}

func (f *fakeRecordStore) GetByRequestID(ctx context.Context, requestID string) (*model.ConsumeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.RequestID == requestID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRecordStore) all() []*model.ConsumeRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.ConsumeRecord, len(f.records))
	copy(out, f.records)
	return out
}

type fakeConfigStore struct {
	areas map[int64]*model.AreaConfig
	modes map[int64]*model.ModeConfig
}

func (f *fakeConfigStore) GetAreaConfig(ctx context.Context, areaID int64) (*model.AreaConfig, error) {
	cfg, ok := f.areas[areaID]
	if !ok {
		return nil, repository.ErrAreaConfigNotFound
	}
	return cfg, nil
}

func (f *fakeConfigStore) GetModeConfig(ctx context.Context, accountKindID int64) (*model.ModeConfig, error) {
	cfg, ok := f.modes[accountKindID]
	if !ok {
		return nil, repository.ErrModeConfigNotFound
	}
	return cfg, nil
}

type stubAllowList struct {
	users map[int64]bool
}

func (s *stubAllowList) Allowed(areaID, userID int64) bool {
	return s.users[userID]
}

type fakeCounter struct {
	mu     sync.Mutex
	amount map[int64]int64
	count  map[int64]int
	meals  map[string]int
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{
		amount: make(map[int64]int64),
		count:  make(map[int64]int),
		meals:  make(map[string]int),
	}
}

func (f *fakeCounter) GetUsage(ctx context.Context, userID int64, t time.Time) (*UsageSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &UsageSnapshot{Amount: f.amount[userID], Count: f.count[userID]}, nil
}

func (f *fakeCounter) GetMealCount(ctx context.Context, userID int64, t time.Time, meal string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meals[fmt.Sprintf("%d:%s", userID, meal)], nil
}

func (f *fakeCounter) AddUsage(ctx context.Context, userID int64, t time.Time, amount int64, meal string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.amount[userID] += amount
	f.count[userID]++
	if meal != "" {
		f.meals[fmt.Sprintf("%d:%s", userID, meal)]++
	}
	return nil
}

// ============================================================================
// 测试夹具
// ============================================================================

const (
	testUserID    = int64(100)
	testAccountID = int64(1)
)

var lunchTime = time.Date(2026, 1, 15, 12, 0, 0, 0, time.Local)

type testEnv struct {
	svc      *ConsumeService
	accounts *fakeAccountStore
	records  *fakeRecordStore
	configs  *fakeConfigStore
	counter  *fakeCounter
	batchMgr *batch.Manager
}

func mustParams(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

// newTestEnv 默认夹具：
// 账户1/用户100/类别1，余额 50.00，定值 KEYVALUE 午餐 25.00；
// 类别2 为脱机测试用的自由金额模式；脱机上限 10.00
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	accounts := &fakeAccountStore{accounts: map[int64]*model.Account{
		testAccountID: {
			ID: testAccountID, UserID: testUserID, AccountKindID: 1,
			Balance: 5000, Version: 0, Status: model.AccountStatusActive,
		},
	}}
	records := &fakeRecordStore{}
	configs := &fakeConfigStore{
		areas: map[int64]*model.AreaConfig{
			1: {
				AreaID: 1,
				MealWindows: []model.MealWindow{
					{Meal: model.MealLunch, Start: "11:00", End: "13:00"},
				},
			},
		},
		modes: map[int64]*model.ModeConfig{
			1: {AccountKindID: 1, Mode: model.ModeFixedAmount, Params: mustParams(t, model.FixedAmountParams{
				SubType:     model.FixedSubTypeKeyValue,
				MealAmounts: map[string]int64{model.MealLunch: 2500},
			})},
			2: {AccountKindID: 2, Mode: model.ModeFreeAmount, Params: mustParams(t, model.FreeAmountParams{
				Min: 100, Max: 5000,
			})},
		},
	}
	counter := newFakeCounter()
	batchMgr := batch.NewManager(batch.Config{Workers: 4, QueueSize: 8})
	t.Cleanup(batchMgr.Shutdown)

	svc := NewConsumeService(ConsumeServiceDeps{
		Tx:             fakeTx{},
		Accounts:       accounts,
		Records:        records,
		Configs:        configs,
		AllowList:      &stubAllowList{users: map[int64]bool{testUserID: true}},
		Counter:        counter,
		BatchManager:   batchMgr,
		OfflineCeiling: 1000,
	})

	return &testEnv{svc: svc, accounts: accounts, records: records, configs: configs, counter: counter, batchMgr: batchMgr}
}

func lunchRequest(requestID string) *ConsumeRequest {
	return &ConsumeRequest{
		RequestID:  requestID,
		UserID:     testUserID,
		DeviceID:   "dev-1",
		AreaID:     1,
		ConsumedAt: lunchTime,
	}
}

func (e *testEnv) account(t *testing.T) *model.Account {
	t.Helper()
	a, err := e.accounts.SelectByID(context.Background(), testAccountID)
	require.NoError(t, err)
	return a
}

// ============================================================================
// 联机流程
// ============================================================================

// 余额 50.00，午餐定值 25.00：两笔成功扣空，第三笔余额不足
func TestOnlineConsumeLunchScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 第一笔：扣 25.00，版本 +1，流水 PAID
	resp, err := env.svc.Consume(ctx, lunchRequest("req-1"))
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, int64(2500), resp.Amount)
	assert.Equal(t, model.PayStatusPaid, resp.PayStatus)

	acc := env.account(t)
	assert.Equal(t, int64(2500), acc.Balance)
	assert.Equal(t, 1, acc.Version)

	// 第二笔：扣空
	resp, err = env.svc.Consume(ctx, lunchRequest("req-2"))
	require.NoError(t, err)
	require.True(t, resp.Success)

	acc = env.account(t)
	assert.Equal(t, int64(0), acc.Balance)
	assert.Equal(t, 2, acc.Version)

	// 第三笔：余额不足，结构化失败，不是 error
	resp, err = env.svc.Consume(ctx, lunchRequest("req-3"))
	require.NoError(t, err)
	require.False(t, resp.Success)
	assert.Contains(t, resp.Message, "余额不足")
	assert.Equal(t, model.FailBalanceNotEnough, resp.Kind)
	assert.Equal(t, model.PayStatusFailed, resp.PayStatus)

	// 余额和版本都不动
	acc = env.account(t)
	assert.Equal(t, int64(0), acc.Balance)
	assert.Equal(t, 2, acc.Version)

	// 三次刷卡三条流水，只有前两条是 PAID
	records := env.records.all()
	require.Len(t, records, 3)
	paid := 0
	for _, r := range records {
		if r.PayStatus == model.PayStatusPaid {
			paid++
		}
	}
	assert.Equal(t, 2, paid)
}

func TestConsumeIdempotentReplay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.Consume(ctx, lunchRequest("req-dup"))
	require.NoError(t, err)
	require.True(t, first.Success)

	// 同一 request_id 重发：返回已有流水，余额只扣一次
	second, err := env.svc.Consume(ctx, lunchRequest("req-dup"))
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, first.RecordNo, second.RecordNo)

	assert.Equal(t, int64(2500), env.account(t).Balance)
	assert.Len(t, env.records.all(), 1)
}

func TestConsumeFrozenAccount(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.accounts[testAccountID].Status = model.AccountStatusFrozen

	resp, err := env.svc.Consume(context.Background(), lunchRequest("req-1"))
	require.NoError(t, err)
	require.False(t, resp.Success)
	assert.Contains(t, resp.Message, "账户状态")
	assert.Equal(t, model.FailAccountStatus, resp.Kind)

	records := env.records.all()
	require.Len(t, records, 1)
	assert.Equal(t, model.PayStatusFailed, records[0].PayStatus)
}

func TestConsumeUnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	req := lunchRequest("req-1")
	req.UserID = 999

	resp, err := env.svc.Consume(context.Background(), req)
	require.NoError(t, err)
	require.False(t, resp.Success)
	assert.Contains(t, resp.Message, "账户不存在")
	assert.Equal(t, model.FailAccountNotFound, resp.Kind)
}

// 未注册的模式是结构化失败，不是 panic 也不是 error
func TestConsumeUnknownModeStructuredFailure(t *testing.T) {
	env := newTestEnv(t)
	env.configs.modes[1] = &model.ModeConfig{AccountKindID: 1, Mode: "MYSTERY"}

	resp, err := env.svc.Consume(context.Background(), lunchRequest("req-1"))
	require.NoError(t, err)
	require.False(t, resp.Success)
	assert.Contains(t, resp.Message, "未注册")
	assert.Equal(t, model.FailModeNotSupported, resp.Kind)

	records := env.records.all()
	require.Len(t, records, 1)
	assert.Equal(t, model.PayStatusFailed, records[0].PayStatus)
}

// 乐观锁冲突上抛给调用方，不落流水，同一 request_id 可原样重试
func TestConsumeVersionConflictRaised(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.conflictNext = true

	_, err := env.svc.Consume(context.Background(), lunchRequest("req-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
	assert.Empty(t, env.records.all())

	// 原样重试成功
	resp, err := env.svc.Consume(context.Background(), lunchRequest("req-1"))
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestConsumeOutsideMealWindow(t *testing.T) {
	env := newTestEnv(t)

	req := lunchRequest("req-1")
	req.ConsumedAt = time.Date(2026, 1, 15, 15, 0, 0, 0, time.Local)

	resp, err := env.svc.Consume(context.Background(), req)
	require.NoError(t, err)
	require.False(t, resp.Success)
	assert.Contains(t, resp.Message, "餐段")
	assert.Equal(t, model.FailWindowViolation, resp.Kind)
	assert.Equal(t, int64(5000), env.account(t).Balance)
}

func TestConsumeAreaLimits(t *testing.T) {
	t.Run("单笔限额", func(t *testing.T) {
		env := newTestEnv(t)
		env.configs.areas[1].SingleMax = 2000

		resp, err := env.svc.Consume(context.Background(), lunchRequest("req-1"))
		require.NoError(t, err)
		require.False(t, resp.Success)
		assert.Contains(t, resp.Message, "单笔")
		assert.Equal(t, model.FailLimitExceeded, resp.Kind)
	})

	t.Run("每日次数限额", func(t *testing.T) {
		env := newTestEnv(t)
		env.configs.areas[1].DailyCountMax = 2
		env.counter.count[testUserID] = 2

		resp, err := env.svc.Consume(context.Background(), lunchRequest("req-1"))
		require.NoError(t, err)
		require.False(t, resp.Success)
		assert.Contains(t, resp.Message, "次数")
	})

	t.Run("每日金额限额", func(t *testing.T) {
		env := newTestEnv(t)
		env.configs.areas[1].DailyAmountMax = 6000
		env.counter.amount[testUserID] = 4000

		resp, err := env.svc.Consume(context.Background(), lunchRequest("req-1"))
		require.NoError(t, err)
		require.False(t, resp.Success)
		assert.Contains(t, resp.Message, "金额上限")
	})

	t.Run("餐段次数限额", func(t *testing.T) {
		env := newTestEnv(t)
		env.configs.areas[1].MealWindows[0].DailyMax = 1
		env.counter.meals[fmt.Sprintf("%d:%s", testUserID, model.MealLunch)] = 1

		resp, err := env.svc.Consume(context.Background(), lunchRequest("req-1"))
		require.NoError(t, err)
		require.False(t, resp.Success)
		assert.Contains(t, resp.Message, model.MealLunch)
	})
}

// 扣款成功才累加当日额度，失败不占额度
func TestConsumeUsageAccumulation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Consume(ctx, lunchRequest("req-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(2500), env.counter.amount[testUserID])
	assert.Equal(t, 1, env.counter.count[testUserID])

	// 失败的刷卡不占额度
	req := lunchRequest("req-2")
	req.ConsumedAt = time.Date(2026, 1, 15, 15, 0, 0, 0, time.Local)
	_, err = env.svc.Consume(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, env.counter.count[testUserID])
}

// ============================================================================
// 脱机流程
// ============================================================================

func offlineRequest(requestID string, amount int64) *ConsumeRequest {
	req := lunchRequest(requestID)
	req.Offline = true
	req.AccountKindID = 2
	req.DeclaredAmount = amount
	return req
}

// 脱机上限 10.00，申报 8.00：落待扣款流水，余额纹丝不动
func TestOfflineConsumePendingDeduct(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Consume(context.Background(), offlineRequest("req-off-1", 800))
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, model.PayStatusPendingDeduct, resp.PayStatus)
	assert.Equal(t, int64(800), resp.Amount)

	records := env.records.all()
	require.Len(t, records, 1)
	assert.True(t, records[0].OfflineSync)
	assert.Equal(t, model.PayStatusPendingDeduct, records[0].PayStatus)

	// 真正的扣款推迟到补扣任务，余额和版本都不动
	acc := env.account(t)
	assert.Equal(t, int64(5000), acc.Balance)
	assert.Equal(t, 0, acc.Version)
}

func TestOfflineConsumeCeiling(t *testing.T) {
	env := newTestEnv(t)

	// 12.00 在自由金额区间内，但超出脱机保守上限 10.00
	resp, err := env.svc.Consume(context.Background(), offlineRequest("req-off-1", 1200))
	require.NoError(t, err)
	require.False(t, resp.Success)
	assert.Contains(t, resp.Message, "脱机")
	assert.Equal(t, model.FailLimitExceeded, resp.Kind)
}

func TestOfflineConsumeRequiresAllowList(t *testing.T) {
	env := newTestEnv(t)

	req := offlineRequest("req-off-1", 500)
	req.UserID = 555 // 不在白名单

	resp, err := env.svc.Consume(context.Background(), req)
	require.NoError(t, err)
	require.False(t, resp.Success)
	assert.Contains(t, resp.Message, "白名单")
	assert.Equal(t, model.FailDeviceUnauthorized, resp.Kind)
}

// ============================================================================
// 并发安全
// ============================================================================

// 余额 50.00、单笔 25.00，20 个终端同时刷：
// 最多 2 笔成功，余额不为负，账目恒等式成立
func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := env.svc.Consume(ctx, lunchRequest(fmt.Sprintf("req-c-%d", i)))
			if err != nil {
				// 乐观锁冲突是预期内的并发结果
				assert.ErrorIs(t, err, repository.ErrVersionConflict)
				return
			}
			if resp.Success {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	acc := env.account(t)
	assert.LessOrEqual(t, successes, 2)
	assert.GreaterOrEqual(t, acc.Balance, int64(0))
	// 每笔成功版本号严格 +1
	assert.Equal(t, successes, acc.Version)
	// 账目恒等式：扣掉的钱 = 成功笔数 × 25.00
	assert.Equal(t, int64(5000), acc.Balance+int64(successes)*2500)
}

// ============================================================================
// 批量
// ============================================================================

func TestConsumeBatchPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 5 笔脱机请求，第 2、4 笔超脱机上限
	reqs := []*ConsumeRequest{
		offlineRequest("req-b-0", 500),
		offlineRequest("req-b-1", 9900),
		offlineRequest("req-b-2", 600),
		offlineRequest("req-b-3", 9900),
		offlineRequest("req-b-4", 700),
	}

	result, err := env.svc.ConsumeBatch(ctx, reqs, batch.Options{ChunkSize: 2})
	require.NoError(t, err)

	// 业务失败不算批量层面的失败，五笔都有结构化结果
	require.Len(t, result.Successes, 5)
	assert.Empty(t, result.Failures)

	ok, fail := 0, 0
	for _, r := range result.Successes {
		if r.Success {
			ok++
		} else {
			fail++
		}
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, 2, fail)
}

func TestConsumeBatchAsync(t *testing.T) {
	env := newTestEnv(t)

	var wg sync.WaitGroup
	wg.Add(1)

	var got *batch.Result[*ConsumeResponse]
	env.svc.ConsumeBatchAsync(context.Background(),
		[]*ConsumeRequest{offlineRequest("req-a-0", 500)}, batch.Options{},
		func(r *batch.Result[*ConsumeResponse], err error) {
			require.NoError(t, err)
			got = r
			wg.Done()
		})

	wg.Wait()
	require.Len(t, got.Successes, 1)
	assert.True(t, got.Successes[0].Success)
}

// ============================================================================
// 通知挂点
// ============================================================================

type recordingNotifier struct {
	mu       sync.Mutex
	notified []*model.ConsumeRecord
	err      error
}

func (n *recordingNotifier) Notify(ctx context.Context, tx *gorm.DB, account *model.Account, record *model.ConsumeRecord, req *ConsumeRequest) error {
	if n.err != nil {
		return n.err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	cp := *record
	n.notified = append(n.notified, &cp)
	return nil
}

// 通知在扣款事务内触发，只有成功的刷卡才通知
func TestConsumeNotifierInvokedOnSuccess(t *testing.T) {
	env := newTestEnv(t)
	notifier := &recordingNotifier{}
	env.svc.notifier = notifier
	ctx := context.Background()

	_, err := env.svc.Consume(ctx, lunchRequest("req-1"))
	require.NoError(t, err)
	require.Len(t, notifier.notified, 1)
	assert.Equal(t, model.PayStatusPaid, notifier.notified[0].PayStatus)
	assert.Equal(t, int64(2500), notifier.notified[0].Amount)

	// 业务失败不通知
	req := lunchRequest("req-2")
	req.ConsumedAt = time.Date(2026, 1, 15, 15, 0, 0, 0, time.Local)
	_, err = env.svc.Consume(ctx, req)
	require.NoError(t, err)
	assert.Len(t, notifier.notified, 1)
}

// 通知失败让整个扣款事务失败，上抛给调用方
func TestConsumeNotifierFailureAbortsFlow(t *testing.T) {
	env := newTestEnv(t)
	env.svc.notifier = &recordingNotifier{err: fmt.Errorf("发件箱不可写")}

	resp, err := env.svc.Consume(context.Background(), lunchRequest("req-1"))
	require.Error(t, err)
	assert.Nil(t, resp)
}

// ============================================================================
// 刷卡锁
// ============================================================================

type stubLocker struct {
	allow bool
}

func (s *stubLocker) TryLock(ctx context.Context, deviceID string, userID int64, requestID string) (func(), bool, error) {
	if !s.allow {
		return nil, false, nil
	}
	return func() {}, true, nil
}

func TestConsumeSwipeLockBusy(t *testing.T) {
	env := newTestEnv(t)
	env.svc.locker = &stubLocker{allow: false}

	resp, err := env.svc.Consume(context.Background(), lunchRequest("req-1"))
	require.NoError(t, err)
	require.False(t, resp.Success)
	assert.Contains(t, resp.Message, "频繁")
	assert.Equal(t, model.FailDuplicateRequest, resp.Kind)
	// 锁拒绝不落流水，终端稍后可重试
	assert.Empty(t, env.records.all())
}
