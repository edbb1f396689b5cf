package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"turnero-padel/backend/config"
	"turnero-padel/backend/internal/api/handler"
	"turnero-padel/backend/internal/api/middleware"
	"turnero-padel/backend/internal/api/router"
	"turnero-padel/backend/internal/eventbus"
	"turnero-padel/backend/internal/job"
	"turnero-padel/backend/internal/model"
	"turnero-padel/backend/internal/repository"
	"turnero-padel/backend/internal/service"
	"turnero-padel/backend/pkg/cache"
	"turnero-padel/backend/pkg/database"
	"turnero-padel/backend/pkg/jwt"
	applogger "turnero-padel/backend/pkg/logger"
	"turnero-padel/backend/pkg/mq"
	"turnero-padel/backend/pkg/obs"
	"turnero-padel/backend/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Booking.Timezone),
	)

	// 3. 链路追踪
	shutdownTracer, err := obs.InitTracer(&cfg.Tracing)
	if err != nil {
		logger.Warn("链路追踪初始化失败，继续运行", zap.Error(err))
		shutdownTracer = func(context.Context) error { return nil }
	}

	// 4. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 4.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 5. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，限流与任务锁将不可用", zap.Error(err))
		rdb = nil
	}

	// 6. 租户缓存
	cacheOpts := cache.Options{TTL: cfg.Tenant.CacheTTL, MaxSize: cfg.Tenant.CacheSize}
	var tenantCache cache.Cache[model.Tenant] = cache.NewMemory[model.Tenant](cacheOpts)
	if cfg.Tenant.CacheBackend == "redis" {
		if rdb != nil {
			tenantCache = cache.NewRedis[model.Tenant](rdb.Raw(), "tenant:", cacheOpts, applogger.Component(logger, "tenant-cache"))
		} else {
			logger.Warn("Redis 不可用，租户缓存退回进程内存")
		}
	}

	// 7. 事件总线（可选 RabbitMQ 中继）
	bus := eventbus.New(applogger.Component(logger, "eventbus"))
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	if cfg.MQ.Enabled {
		startRelay(bgCtx, cfg, bus, logger)
	}

	// 8. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, tenantCache, bus, logger)
	h := handler.NewHandler(svc, bus, cfg.Server.SSEHeartbeat, sqlDB)

	// 9. 后台任务
	var locker job.Locker
	var limiter middleware.RateLimiter
	if rdb != nil {
		locker = rdb
		limiter = rdb
	}
	scheduler := job.NewScheduler(&cfg.Jobs, svc.Generator, svc.Sweeper, locker, applogger.Component(logger, "jobs"))
	scheduler.Start(bgCtx)

	// 10. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, svc.Tenant, limiter, logger)

	// 11. 启动 HTTP 服务器（优雅关闭）
	// 事件流是长连接，不设置 WriteTimeout
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 12. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 先断开事件流，否则 Shutdown 会一直等待长连接
	bus.Close()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	stopBackground()
	scheduler.Stop()

	if err := shutdownTracer(ctx); err != nil {
		logger.Warn("链路追踪关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	sqlDB.Close()

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// relayRetryDelay 中继断开后的重连间隔
const relayRetryDelay = 5 * time.Second

// startRelay 在后台维持事件中继；连接失败或断开时只使用本地总线并定期重连
func startRelay(ctx context.Context, cfg *config.Config, bus *eventbus.Bus, logger *zap.Logger) {
	log := applogger.Component(logger, "relay")
	go func() {
		for {
			err := runRelay(ctx, cfg, bus, log)
			if ctx.Err() != nil {
				return
			}
			log.Warn("事件中继中断，事件暂时仅在本实例推送",
				zap.Error(err), zap.Duration("retry_after", relayRetryDelay))
			select {
			case <-ctx.Done():
				return
			case <-time.After(relayRetryDelay):
			}
		}
	}()
}

func runRelay(ctx context.Context, cfg *config.Config, bus *eventbus.Bus, log *zap.Logger) error {
	pub, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
	if err != nil {
		return fmt.Errorf("连接 RabbitMQ 发布端失败: %w", err)
	}
	defer pub.Close()
	sub, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, "", eventbus.RoutingKeys())
	if err != nil {
		return fmt.Errorf("连接 RabbitMQ 订阅端失败: %w", err)
	}
	defer sub.Close()

	log.Info("事件中继已连接")
	return eventbus.NewRelay(bus, pub, sub, log).Run(ctx)
}
