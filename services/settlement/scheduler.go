package settlement

import (
	"context"
	"time"

	"datamarket-settlement/pkg/config"
	"datamarket-settlement/pkg/task"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scheduler enqueues an auto settlement run at a fixed interval. The run
// itself happens on the worker, so overlapping schedules collapse into
// queued tasks instead of concurrent runs.
type Scheduler struct {
	enqueuer task.Enqueuer
	interval time.Duration
}

func NewScheduler(enqueuer task.Enqueuer, cfg *config.Config) *Scheduler {
	return &Scheduler{
		enqueuer: enqueuer,
		interval: cfg.Payout.RunInterval,
	}
}

// StartScheduler dipanggil otomatis oleh FX saat service start. The loop
// runs on its own context, not the OnStart one: fx cancels the start context
// once startup settles, which would kill the ticker long before the first
// interval elapses.
func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	var cancel context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, stop := context.WithCancel(context.Background())
			cancel = stop
			go s.run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			return nil
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	zap.L().Info("[Scheduler] started auto settlement scheduler",
		zap.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.enqueueRun(ctx)
		case <-ctx.Done():
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) enqueueRun(ctx context.Context) {
	start := time.Now()
	zap.L().Info("[Scheduler] enqueueing auto settlement run")

	t, err := NewAutoSettlementTask()
	if err != nil {
		zap.L().Error("[Scheduler] failed to build settlement task", zap.Error(err))
		return
	}

	info, err := s.enqueuer.Enqueue(ctx, t)
	if err != nil {
		zap.L().Error("[Scheduler] failed to enqueue settlement task", zap.Error(err))
		return
	}

	zap.L().Info("[Scheduler] settlement task enqueued",
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
		zap.Duration("duration", time.Since(start)),
	)
}
