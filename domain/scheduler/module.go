package scheduler

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/sitedex/sitedex/domain/content"
	"github.com/sitedex/sitedex/domain/ingest"
	"github.com/sitedex/sitedex/domain/monitoring"
	"github.com/sitedex/sitedex/domain/unified"
	"github.com/sitedex/sitedex/internal/config"
)

// Module provides scheduled maintenance
var Module = fx.Module("scheduler",
	fx.Provide(
		NewConfig,
		NewScheduler,
	),
	fx.Invoke(
		RegisterTasks,
		RegisterSchedulerLifecycle,
	),
)

// TaskParams contains dependencies for creating scheduled tasks
type TaskParams struct {
	fx.In
	Scheduler   *Scheduler
	Cfg         *Config
	AppCfg      *config.Config
	Queue       *ingest.Repository
	ContentRepo *content.Repository
	ContentSvc  *content.Service
	Refresher   *unified.Refresher
	Metrics     *monitoring.Metrics
	Log         *slog.Logger
}

// RegisterTasks registers all scheduled tasks
func RegisterTasks(p TaskParams) error {
	if !p.Cfg.Enabled {
		p.Log.Info("scheduler disabled, skipping task registration")
		return nil
	}

	// The index sweep runs on a cron schedule so every instance fires at
	// the same moment; the advisory lock picks the one that does the work.
	if err := p.Scheduler.AddCronTask("index_refresh",
		p.AppCfg.Refresh.SweepSchedule, p.Refresher.RefreshStale); err != nil {
		return err
	}

	maintenance := NewQueueMaintenanceTask(p.Queue, p.AppCfg, p.Log)
	if err := addScheduledTask(p.Scheduler, "queue_maintenance",
		p.Cfg.QueueMaintenanceSchedule, p.Cfg.QueueMaintenanceInterval, maintenance.Run); err != nil {
		return err
	}

	sweep := NewContentSweepTask(p.ContentSvc, p.Log)
	if err := addScheduledTask(p.Scheduler, "content_sweep",
		p.Cfg.ContentSweepSchedule, p.Cfg.ContentSweepInterval, sweep.Run); err != nil {
		return err
	}

	depth := NewQueueDepthTask(p.Queue, p.ContentRepo, p.Metrics, p.Log)
	if err := p.Scheduler.AddIntervalTask("queue_depth",
		p.Cfg.QueueDepthSampleInterval, depth.Run); err != nil {
		return err
	}

	p.Log.Info("registered scheduled tasks",
		slog.Any("tasks", p.Scheduler.ListTasks()))
	return nil
}

// addScheduledTask registers on a cron schedule when one is set, otherwise
// falls back to the interval.
func addScheduledTask(s *Scheduler, name, schedule string, interval time.Duration, task TaskFunc) error {
	if schedule != "" {
		return s.AddCronTask(name, schedule, task)
	}
	return s.AddIntervalTask(name, interval, task)
}

// RegisterSchedulerLifecycle registers the scheduler with fx lifecycle
func RegisterSchedulerLifecycle(lc fx.Lifecycle, scheduler *Scheduler, cfg *Config) {
	if !cfg.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return scheduler.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return scheduler.Stop(ctx)
		},
	})
}
