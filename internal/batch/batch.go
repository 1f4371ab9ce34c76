package batch

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"
)

// ============================================================================
// 批量处理器
// ============================================================================
//
// 结算、批量导入等场景一次要跑成千上万笔单笔流程，要求：
// 1. 分块并行 —— 列表切成固定大小的块，每块作为一个任务跑在有界工作池上
// 2. 有界背压 —— 队列满时由提交方自己执行任务（Caller-Runs），
//    用放慢提交速度换不丢任务、不无界堆积
// 3. 失败隔离 —— 单条失败只记录，不中断同块其他条目，更不中断其他块
// 4. 整批超时 —— 超时只是不再等待，不取消在途任务；晚到的完成是可能的
//    （至少一次语义），因此单条处理函数必须幂等
// ============================================================================

var (
	// ErrBatchTimeout 整批等待超时。与"所有条目都失败"是两回事：
	// 超时后在途的块仍会继续执行完
	ErrBatchTimeout = errors.New("批量处理等待超时")

	// ErrManagerClosed 工作池已关闭
	ErrManagerClosed = errors.New("批量处理器已关闭")
)

const (
	DefaultChunkSize = 100
	DefaultTimeout   = 30 * time.Second
)

// Options 单次批量调用的参数，零值字段取默认值
type Options struct {
	ChunkSize int           // 每块条数，默认 100
	Timeout   time.Duration // 整批等待超时，默认 30s
}

func (o Options) chunkSize() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	return DefaultChunkSize
}

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout
}

// Config 工作池参数
type Config struct {
	Workers   int // 工作协程数，默认 2*CPU
	QueueSize int // 任务队列容量，默认 2*Workers
}

// Manager 有界工作池，进程内唯一的全局可变状态
// 显式 NewManager / Shutdown 生命周期，避免协程泄漏
type Manager struct {
	workers int
	queue   chan func()
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewManager(cfg Config) *Manager {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0) * 2
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = workers * 2
	}

	m := &Manager{
		workers: workers,
		queue:   make(chan func(), queueSize),
	}

	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for task := range m.queue {
				runTask(task)
			}
		}()
	}

	return m
}

// Shutdown 关闭工作池并等待在途任务执行完毕，可重复调用
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
}

// submit 提交任务
//
// 【关键点】队列满时不丢弃、不报错，而是由提交协程自己执行任务。
// 提交方被拖慢，恰好形成对上游的背压
func (m *Manager) submit(task func()) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}

	select {
	case m.queue <- task:
		m.mu.Unlock()
		return nil
	default:
		m.mu.Unlock()
		runTask(task)
		return nil
	}
}

func runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[BatchManager] 任务 panic 已恢复: %v", r)
		}
	}()
	task()
}

// ItemError 单条处理失败
type ItemError struct {
	Index int   // 条目在原列表中的下标
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("第 %d 条处理失败: %v", e.Index, e.Err)
}

// Result 整批处理结果：成功与失败并列返回，调用方自行决定如何处置失败项
type Result[R any] struct {
	Successes []R
	Failures  []ItemError
}

// Process 把 items 按块提交到工作池并等待全部完成
//
// 返回 ErrBatchTimeout 表示等待超时，此时不返回部分结果——
// 在途的块还在往结果里写，返回部分结果会造成数据竞争
func Process[T, R any](m *Manager, items []T, opts Options, fn func(T) (R, error)) (*Result[R], error) {
	n := len(items)
	if n == 0 {
		return &Result[R]{}, nil
	}

	outs := make([]R, n)
	errs := make([]error, n)

	chunkSize := opts.chunkSize()
	var wg sync.WaitGroup

	for lo := 0; lo < n; lo += chunkSize {
		hi := lo + chunkSize
		if hi > n {
			hi = n
		}

		lo, hi := lo, hi
		wg.Add(1)
		task := func() {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				outs[i], errs[i] = runItem(items[i], fn)
			}
		}

		if err := m.submit(task); err != nil {
			wg.Done()
			return nil, err
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(opts.timeout()):
		return nil, ErrBatchTimeout
	}

	result := &Result[R]{}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			log.Printf("[BatchManager] 第 %d 条处理失败: %v", i, errs[i])
			result.Failures = append(result.Failures, ItemError{Index: i, Err: errs[i]})
			continue
		}
		result.Successes = append(result.Successes, outs[i])
	}
	return result, nil
}

// runItem 单条执行，panic 转为该条的错误，不波及同块其他条目
func runItem[T, R any](item T, fn func(T) (R, error)) (out R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("处理 panic: %v", r)
		}
	}()
	return fn(item)
}

// ProcessAsync 异步批量：不阻塞调用方，完成后回调
func ProcessAsync[T, R any](m *Manager, items []T, opts Options, fn func(T) (R, error), callback func(*Result[R], error)) {
	go func() {
		callback(Process(m, items, opts, fn))
	}()
}
