package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/logger"
)

// Repository handles queue and checkpoint persistence. Claims use FOR
// UPDATE SKIP LOCKED so concurrent workers never receive the same row.
type Repository struct {
	db         bun.IDB
	maxRetries int
	log        *slog.Logger
}

// NewRepository creates a new ingest repository
func NewRepository(db bun.IDB, cfg *config.Config, log *slog.Logger) *Repository {
	return &Repository{
		db:         db,
		maxRetries: cfg.Queue.MaxRetries,
		log:        log.With(logger.Scope("ingest.repo")),
	}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx bun.IDB) *Repository {
	return &Repository{db: tx, maxRetries: r.maxRetries, log: r.log}
}

// Enqueue adds a job for a source event. Re-delivery of the same event
// enqueues again; the upsert semantics of the base records keep replays
// harmless.
func (r *Repository) Enqueue(ctx context.Context, source items.Source, eventType EventType, externalID string, payload json.RawMessage) (*QueueItem, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	item := &QueueItem{
		Source:     source,
		EventType:  eventType,
		ExternalID: externalID,
		Payload:    payload,
		MaxRetries: r.maxRetries,
	}
	if _, err := r.db.NewInsert().Model(item).Returning("*").Exec(ctx); err != nil {
		r.log.Error("failed to enqueue job", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return item, nil
}

// Dequeue atomically claims up to limit due jobs for a worker, optionally
// restricted to one source. A job is due when pending and its retry delay,
// if any, has elapsed.
func (r *Repository) Dequeue(ctx context.Context, workerID string, limit int, source *items.Source) ([]QueueItem, error) {
	sourceCond := ""
	args := []any{}
	if source != nil {
		sourceCond = "AND source = ?"
		args = append(args, *source)
	}
	args = append(args, limit, workerID)

	var claimed []QueueItem
	err := r.db.NewRaw(`
		WITH claimed AS (
			SELECT id FROM dex.sync_queue
			WHERE status = 'pending'
			  AND (next_retry_at IS NULL OR next_retry_at <= now())
			  `+sourceCond+`
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT ?
		)
		UPDATE dex.sync_queue q
		SET status = 'processing',
			worker_id = ?,
			processing_started_at = now(),
			updated_at = now()
		FROM claimed
		WHERE q.id = claimed.id
		RETURNING q.*
	`, args...).Scan(ctx, &claimed)
	if err != nil {
		r.log.Error("failed to dequeue jobs", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return claimed, nil
}

// MarkCompleted finishes a job.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*QueueItem)(nil)).
		Set("status = ?", StatusCompleted).
		Set("completed_at = now()").
		Set("updated_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// MarkFailed records a failure. Retryable failures under the retry cap go
// back to pending with the schedule's delay; everything else dead-letters.
func (r *Repository) MarkFailed(ctx context.Context, item *QueueItem, errMsg string, retry bool) error {
	status := StatusDeadLetter
	var nextRetry *time.Time
	if retry && item.RetryCount < item.MaxRetries {
		status = StatusPending
		at := time.Now().Add(NextBackoff(item.RetryCount))
		nextRetry = &at
	}

	_, err := r.db.NewUpdate().
		Model((*QueueItem)(nil)).
		Set("status = ?", status).
		Set("retry_count = retry_count + 1").
		Set("last_error = ?", truncateError(errMsg)).
		Set("next_retry_at = ?", nextRetry).
		Set("worker_id = NULL").
		Set("processing_started_at = NULL").
		Set("updated_at = now()").
		Where("id = ?", item.ID).
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}

	if status == StatusDeadLetter {
		r.log.Warn("job dead-lettered",
			slog.String("job_id", item.ID.String()),
			slog.String("source", string(item.Source)),
			slog.Int("retries", item.RetryCount),
			slog.String("error", truncateError(errMsg)))
	}
	return nil
}

// ResetStuck returns processing jobs older than the threshold to pending.
// Crash recovery: there is no live cancellation of an in-flight worker.
func (r *Repository) ResetStuck(ctx context.Context, threshold time.Duration) (int64, error) {
	res, err := r.db.NewUpdate().
		Model((*QueueItem)(nil)).
		Set("status = ?", StatusPending).
		Set("worker_id = NULL").
		Set("processing_started_at = NULL").
		Set("updated_at = now()").
		Where("status = ?", StatusProcessing).
		Where("processing_started_at < now() - make_interval(secs => ?)", threshold.Seconds()).
		Exec(ctx)
	if err != nil {
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.log.Warn("reset stuck jobs", slog.Int64("count", n))
	}
	return n, nil
}

// PurgeCompleted deletes completed jobs older than the retention window.
func (r *Repository) PurgeCompleted(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*QueueItem)(nil)).
		Where("status = ?", StatusCompleted).
		Where("completed_at < now() - make_interval(secs => ?)", retention.Seconds()).
		Exec(ctx)
	if err != nil {
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// RequeueDeadLetter returns dead-lettered jobs to pending with a fresh
// retry budget. Explicit administrative action only.
func (r *Repository) RequeueDeadLetter(ctx context.Context, ids []uuid.UUID) (int64, error) {
	q := r.db.NewUpdate().
		Model((*QueueItem)(nil)).
		Set("status = ?", StatusPending).
		Set("retry_count = 0").
		Set("next_retry_at = NULL").
		Set("last_error = NULL").
		Set("updated_at = now()").
		Where("status = ?", StatusDeadLetter)
	if len(ids) > 0 {
		q = q.Where("id IN (?)", bun.In(ids))
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// QueueStat is one (source, status) bucket.
type QueueStat struct {
	Source items.Source `bun:"source" json:"source"`
	Status Status       `bun:"status" json:"status"`
	Count  int          `bun:"count" json:"count"`
}

// Stats returns job counts per source and status.
func (r *Repository) Stats(ctx context.Context) ([]QueueStat, error) {
	var stats []QueueStat
	err := r.db.NewSelect().
		Model((*QueueItem)(nil)).
		Column("q.source", "q.status").
		ColumnExpr("count(*) AS count").
		Group("q.source", "q.status").
		Order("q.source ASC", "q.status ASC").
		Scan(ctx, &stats)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return stats, nil
}

// GetCheckpoint returns the checkpoint for a source, or an empty one when
// the source has never checkpointed.
func (r *Repository) GetCheckpoint(ctx context.Context, source items.Source) (*Checkpoint, error) {
	cp := &Checkpoint{}
	err := r.db.NewSelect().Model(cp).Where("cp.source = ?", source).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &Checkpoint{Source: source}, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return cp, nil
}

// UpsertCheckpoint stores a source's resume cursor.
func (r *Repository) UpsertCheckpoint(ctx context.Context, cp *Checkpoint) (*Checkpoint, error) {
	_, err := r.db.NewInsert().
		Model(cp).
		On("CONFLICT (source) DO UPDATE").
		Set("last_event_time = EXCLUDED.last_event_time").
		Set("last_cursor = EXCLUDED.last_cursor").
		Set("updated_at = now()").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return cp, nil
}

func truncateError(s string) string {
	const max = 2000
	if len(s) <= max {
		return s
	}
	return s[:max]
}
