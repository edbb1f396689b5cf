// Package job 进程内后台任务：周期预订物化与过期预订清理。
package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"turnero-padel/backend/config"
	"turnero-padel/backend/internal/service"
	"turnero-padel/backend/pkg/obs"
	"turnero-padel/backend/pkg/redis"
)

// 任务名，同时用作分布式锁名
const (
	TaskGenerateRecurring = "generate-recurring"
	TaskExpireBookings    = "expire-bookings"
)

// Locker 分布式锁；多实例部署时保证同一任务同一时刻只在一个实例执行
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (*redis.Lock, error)
	ReleaseLock(ctx context.Context, lock *redis.Lock) error
}

// Scheduler 固定间隔执行后台任务
type Scheduler struct {
	cfg       *config.JobsConfig
	generator service.RecurringGenerator
	sweeper   service.ExpirationSweeper
	locker    Locker // 为 nil 时不加锁（单实例）
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler 创建调度器
func NewScheduler(cfg *config.JobsConfig, generator service.RecurringGenerator, sweeper service.ExpirationSweeper, locker Locker, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		generator: generator,
		sweeper:   sweeper,
		locker:    locker,
		logger:    logger,
	}
}

// Start 启动后立即执行一轮，之后按 Interval 循环；未启用时直接返回
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("后台任务未启用")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		s.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
	s.logger.Info("后台任务已启动", zap.Duration("interval", s.cfg.Interval))
}

// Stop 停止循环并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// RunOnce 依次执行所有任务，单个任务失败不影响其他任务
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.run(ctx, TaskGenerateRecurring, func(ctx context.Context) error {
		res, err := s.generator.Generate(ctx, nil)
		if err != nil {
			return err
		}
		s.logger.Info("周期预订物化完成", zap.Int("created", res.Created), zap.Int("conflicts", res.Conflicts))
		return nil
	})
	s.run(ctx, TaskExpireBookings, func(ctx context.Context) error {
		n, err := s.sweeper.CancelExpiredBookings(ctx, nil)
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.Info("过期预订清理完成", zap.Int64("cancelled", n))
		}
		return nil
	})
}

func (s *Scheduler) run(parent context.Context, name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.Timeout)
	defer cancel()

	ctx, span := obs.Tracer().Start(ctx, "job."+name)
	span.SetAttributes(attribute.String("job.name", name))
	defer span.End()

	if s.locker != nil {
		lock, err := s.locker.AcquireLock(ctx, "job:"+name, s.cfg.LockTTL)
		if errors.Is(err, redis.ErrLockHeld) {
			s.logger.Debug("任务正在其他实例执行，跳过", zap.String("job", name))
			span.SetAttributes(attribute.Bool("job.skipped", true))
			return
		}
		if err != nil {
			s.logger.Error("获取任务锁失败", zap.String("job", name), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		defer func() {
			// 任务超时后 ctx 已取消，释放锁使用独立的 context
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.locker.ReleaseLock(releaseCtx, lock); err != nil {
				s.logger.Warn("释放任务锁失败", zap.String("job", name), zap.Error(err))
			}
		}()
	}

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.logger.Error("后台任务执行失败", zap.String("job", name), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	s.logger.Debug("后台任务完成", zap.String("job", name), zap.Duration("elapsed", time.Since(start)))
}
