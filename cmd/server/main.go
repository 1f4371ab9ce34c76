package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consumesystem/internal/batch"
	"consumesystem/internal/calculator"
	"consumesystem/internal/config"
	"consumesystem/internal/handler"
	"consumesystem/internal/infrastructure/cache"
	"consumesystem/internal/infrastructure/database"
	"consumesystem/internal/infrastructure/mq"
	"consumesystem/internal/job"
	"consumesystem/internal/repository"
	"consumesystem/internal/service"
	"consumesystem/pkg/idgen"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig("config/config.yaml")

	// 初始化 ID 生成器
	idgen.Init(1)

	// 初始化 MySQL
	db := database.InitMySQL(&cfg.MySQL)

	// 初始化 Redis
	redisClient := cache.InitRedis(&cfg.Redis)

	// 初始化 Kafka
	mq.InitKafka(&cfg.Kafka)
	defer mq.CloseKafka()

	// 批量处理器：进程级工作池，显式创建和关闭
	batchMgr := batch.NewManager(batch.Config{
		Workers:   cfg.Batch.WorkerCount(),
		QueueSize: cfg.Batch.QueueSize,
	})
	defer batchMgr.Shutdown()

	// 计算器注册表与启动校验：
	// 配置里引用了未注册的模式、参数结构非法，都在这里拦下，不能等到第一笔消费
	registry := calculator.DefaultRegistry()
	configRepo := repository.NewConfigRepository(db, redisClient)
	validateModeConfigs(registry, configRepo)

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 脱机白名单本地快照，后台定时刷新
	allowList := cache.NewAllowList(redisClient)
	go allowList.StartRefresher(ctx, time.Minute)

	// 消费服务
	consumeService := service.NewConsumeService(service.ConsumeServiceDeps{
		Tx:       db,
		Accounts: repository.NewAccountRepository(db),
		Records:  repository.NewRecordRepository(db),
		Configs:  configRepo,
		Registry: registry,
		Notifier: service.NewOutboxNotifier(repository.NewOutboxRepository(db), cfg.Kafka.Topic.ConsumeResult),
		Locker: service.NewRedisSwipeLocker(redisClient,
			time.Duration(cfg.Business.SwipeLockSeconds)*time.Second),
		AllowList: allowList,
		Counter: service.NewRedisUsageCounter(cache.NewDailyCounter(redisClient,
			time.Duration(cfg.Business.DailyCounterTTLHrs)*time.Hour)),
		BatchManager:   batchMgr,
		OfflineCeiling: cfg.Business.OfflineCeiling,
	})

	// 启动后台任务
	outboxSender := job.NewOutboxSender(db, cfg)
	go outboxSender.Start(ctx)

	reconcileJob := job.NewOfflineReconcileJob(db, batchMgr, cfg)
	go reconcileJob.Start(ctx)

	// 设置路由
	router := handler.SetupRouter(db, consumeService)

	// 启动 HTTP 服务
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("服务启动，监听端口: %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 取消上下文，停止后台任务
	cancel()

	// 关闭 HTTP 服务（等待最多5秒）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("服务关闭异常: %v", err)
	}

	log.Println("服务已关闭")
}

// validateModeConfigs 启动期校验全量模式配置
func validateModeConfigs(registry *calculator.Registry, configRepo *repository.ConfigRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	configs, err := configRepo.ListModeConfigs(ctx)
	if err != nil {
		log.Fatalf("加载消费模式配置失败: %v", err)
	}

	for _, mc := range configs {
		if err := registry.ValidateModes(mc.Mode); err != nil {
			log.Fatalf("账户类别 %d 配置校验失败: %v", mc.AccountKindID, err)
		}
		calc, _ := registry.Get(mc.Mode)
		if err := calc.ValidateParams(mc); err != nil {
			log.Fatalf("账户类别 %d 模式参数校验失败: %v", mc.AccountKindID, err)
		}
	}

	log.Printf("消费模式配置校验通过: %d 条", len(configs))
}
