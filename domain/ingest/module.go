package ingest

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/internal/jobs"
)

// Module provides the ingest domain
var Module = fx.Module("ingest",
	fx.Provide(
		NewRepository,
		NewProcessor,
		NewHandler,
	),
	fx.Invoke(
		RegisterRoutes,
		registerWorker,
	),
)

func registerWorker(lc fx.Lifecycle, processor *Processor, cfg *config.Config, log *slog.Logger) {
	worker := jobs.NewWorker(jobs.WorkerConfig{
		Name:         "ingest",
		PollInterval: cfg.Queue.PollInterval,
	}, log, processor.ProcessBatch)

	lc.Append(fx.Hook{
		OnStart: worker.Start,
		OnStop:  worker.Stop,
	})
}
