package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/sitedex/sitedex/domain/content"
	"github.com/sitedex/sitedex/domain/ingest"
	"github.com/sitedex/sitedex/domain/monitoring"
	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/pkg/logger"
)

// QueueMaintenanceTask keeps the ingestion queue healthy: jobs whose worker
// died mid-claim are returned to pending, and completed jobs past the
// retention window are purged.
type QueueMaintenanceTask struct {
	queue *ingest.Repository
	cfg   *config.Config
	log   *slog.Logger
}

// NewQueueMaintenanceTask creates a new queue maintenance task
func NewQueueMaintenanceTask(queue *ingest.Repository, cfg *config.Config, log *slog.Logger) *QueueMaintenanceTask {
	return &QueueMaintenanceTask{
		queue: queue,
		cfg:   cfg,
		log:   log.With(logger.Scope("scheduler.queue_maintenance")),
	}
}

// Run executes one maintenance pass
func (t *QueueMaintenanceTask) Run(ctx context.Context) error {
	start := time.Now()

	reset, err := t.queue.ResetStuck(ctx, t.cfg.Queue.StuckThreshold)
	if err != nil {
		return err
	}
	if reset > 0 {
		t.log.Warn("reset stuck jobs", slog.Int64("count", reset))
	}

	purged, err := t.queue.PurgeCompleted(ctx, t.cfg.Queue.CompletedRetention)
	if err != nil {
		return err
	}
	if purged > 0 {
		t.log.Info("purged completed jobs",
			slog.Int64("count", purged),
			slog.Duration("duration", time.Since(start)))
	}
	return nil
}

// ContentSweepTask collects payloads no file references anymore. This is the
// backstop for hashes that slipped past the per-event release path.
type ContentSweepTask struct {
	content *content.Service
	log     *slog.Logger
}

// NewContentSweepTask creates a new content sweep task
func NewContentSweepTask(contentSvc *content.Service, log *slog.Logger) *ContentSweepTask {
	return &ContentSweepTask{
		content: contentSvc,
		log:     log.With(logger.Scope("scheduler.content_sweep")),
	}
}

// Run executes one sweep
func (t *ContentSweepTask) Run(ctx context.Context) error {
	return t.content.SweepUnreferenced(ctx)
}

// QueueDepthTask samples queue depths into the Prometheus gauges so
// dashboards see backlog without polling the stats endpoints.
type QueueDepthTask struct {
	queue   *ingest.Repository
	content *content.Repository
	metrics *monitoring.Metrics
	log     *slog.Logger
}

// NewQueueDepthTask creates a new queue depth sampling task
func NewQueueDepthTask(queue *ingest.Repository, contentRepo *content.Repository, metrics *monitoring.Metrics, log *slog.Logger) *QueueDepthTask {
	return &QueueDepthTask{
		queue:   queue,
		content: contentRepo,
		metrics: metrics,
		log:     log.With(logger.Scope("scheduler.queue_depth")),
	}
}

// Run samples all queues once
func (t *QueueDepthTask) Run(ctx context.Context) error {
	queueStats, err := t.queue.Stats(ctx)
	if err != nil {
		return err
	}
	contentStats, err := t.content.Stats(ctx)
	if err != nil {
		return err
	}

	// Reset so statuses that drained to zero do not linger at their last
	// sampled value.
	t.metrics.QueueDepth.Reset()

	for _, st := range queueStats {
		t.metrics.QueueDepth.WithLabelValues("sync", string(st.Status)).Add(float64(st.Count))
	}
	for _, st := range contentStats {
		t.metrics.QueueDepth.WithLabelValues("content-upload", string(st.UploadStatus)).Add(float64(st.Count))
		t.metrics.QueueDepth.WithLabelValues("content-processing", string(st.ProcessingStatus)).Add(float64(st.Count))
	}
	return nil
}
