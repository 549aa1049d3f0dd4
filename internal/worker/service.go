package worker

import (
	"context"
	"errors"
	"time"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/cache"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/config"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/queue"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"
)

const (
	balanceSweepLockKey = "lock:worker:balance_audit_sweep"
	defaultLockTTL      = 5 * time.Minute
)

// Service async task worker plus the periodic balance audit
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
	locker   *redislock.Client
	cfg      config.WorkerConfig
}

// NewService creates the worker service
func NewService(cfg *config.QueueConfig, workerCfg config.WorkerConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	var locker *redislock.Client
	if client := cache.Client(); client != nil {
		locker = redislock.New(client)
	}
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
		locker:   locker,
		cfg:      workerCfg,
	}, nil
}

// Name service name
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start runs the task server until stopped
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.BalanceService != nil && s.cfg.BalanceAuditMinutes > 0 {
		go s.runBalanceAuditLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop shuts the task server down
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) runBalanceAuditLoop(ctx context.Context) {
	interval := time.Duration(s.cfg.BalanceAuditMinutes) * time.Minute
	lockTTL := time.Duration(s.cfg.LockTTLSeconds) * time.Second
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	runOnce := func() {
		ran, err := runExclusive(ctx, s.locker, balanceSweepLockKey, lockTTL, func(ctx context.Context) error {
			return s.consumer.triggerBalanceSweep(ctx, s.cfg.BalanceAuditRepair)
		})
		if err != nil {
			logger.Warnw("worker_balance_audit_loop_failed", "error", err)
			return
		}
		if !ran {
			logger.Debugw("worker_balance_audit_loop_skip_locked")
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runExclusive runs fn while holding key so only one worker replica sweeps at a time.
// Without a locker fn always runs; a lock held elsewhere reports false and no error.
func runExclusive(ctx context.Context, locker *redislock.Client, key string, ttl time.Duration, fn func(context.Context) error) (bool, error) {
	if locker == nil {
		return true, fn(ctx)
	}
	lock, err := locker.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() {
		if releaseErr := lock.Release(context.Background()); releaseErr != nil && !errors.Is(releaseErr, redislock.ErrLockNotHeld) {
			logger.Warnw("worker_lock_release_failed", "key", key, "error", releaseErr)
		}
	}()
	return true, fn(ctx)
}
