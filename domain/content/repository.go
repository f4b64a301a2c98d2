package content

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/logger"
)

const (
	// maxUploadTries caps upload retries before a record stays in error.
	maxUploadTries = 5
	// stuckUploadAfter is how long an 'uploading' record may sit before it
	// is presumed orphaned by a crashed worker and reclaimed.
	stuckUploadAfter = 30 * time.Minute
)

// Repository handles database operations for content records
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new content repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("content.repo")),
	}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx bun.IDB) *Repository {
	return &Repository{db: tx, log: r.log}
}

// Register ensures a record exists for the hash. The same bytes sighted
// through another file path land on the existing record untouched.
func (r *Repository) Register(ctx context.Context, hash string, size int64, mimeType *string) error {
	record := &Record{
		ContentHash: hash,
		Size:        size,
		MimeType:    mimeType,
	}
	_, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (content_hash) DO NOTHING").
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to register content", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// Get fetches one record by hash.
func (r *Repository) Get(ctx context.Context, hash string) (*Record, error) {
	record := &Record{}
	err := r.db.NewSelect().Model(record).Where("ct.content_hash = ?", hash).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("content", hash)
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return record, nil
}

// DequeueUploadBatch atomically claims content eligible for (re)upload:
// pending, errored under the try cap, or stuck in 'uploading' past the
// timeout. FOR UPDATE SKIP LOCKED keeps concurrent workers on disjoint
// batches.
func (r *Repository) DequeueUploadBatch(ctx context.Context, workerID string, limit int) ([]Record, error) {
	var records []Record
	err := r.db.NewRaw(`
		WITH claimed AS (
			SELECT content_hash FROM dex.contents
			WHERE upload_status = 'pending'
			   OR (upload_status = 'error' AND try_count < ?)
			   OR (upload_status = 'uploading' AND upload_started_at < now() - make_interval(secs => ?))
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT ?
		)
		UPDATE dex.contents ct
		SET upload_status = 'uploading',
			worker_id = ?,
			try_count = ct.try_count + 1,
			upload_started_at = now(),
			last_status_change = now()
		FROM claimed
		WHERE ct.content_hash = claimed.content_hash
		RETURNING ct.*
	`, maxUploadTries, stuckUploadAfter.Seconds(), limit, workerID).Scan(ctx, &records)
	if err != nil {
		r.log.Error("failed to dequeue upload batch", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return records, nil
}

// MarkUploadComplete transitions a record to uploaded, making it eligible
// for downstream processing.
func (r *Repository) MarkUploadComplete(ctx context.Context, hash string) error {
	return r.setUploadStatus(ctx, hash, UploadUploaded, nil)
}

// MarkUploadFailed records the error; the record retries until the try cap.
func (r *Repository) MarkUploadFailed(ctx context.Context, hash, errMsg string) error {
	return r.setUploadStatus(ctx, hash, UploadError, &errMsg)
}

// MarkUploadSkipped transitions a record to skipped, a terminal state for
// content the uploader declines (e.g. unsupported or oversized payloads).
func (r *Repository) MarkUploadSkipped(ctx context.Context, hash, reason string) error {
	return r.setUploadStatus(ctx, hash, UploadSkipped, &reason)
}

func (r *Repository) setUploadStatus(ctx context.Context, hash string, status UploadStatus, errMsg *string) error {
	q := r.db.NewUpdate().
		Model((*Record)(nil)).
		Set("upload_status = ?", status).
		Set("last_status_change = now()").
		Set("worker_id = NULL").
		Where("content_hash = ?", hash)
	if errMsg != nil {
		q = q.Set("last_error = ?", truncate(*errMsg, 2000))
	}
	if _, err := q.Exec(ctx); err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// DequeueProcessingBatch claims uploaded content awaiting extraction,
// transitioning it to 'indexing'.
func (r *Repository) DequeueProcessingBatch(ctx context.Context, workerID string, limit int) ([]Record, error) {
	var records []Record
	err := r.db.NewRaw(`
		WITH claimed AS (
			SELECT content_hash FROM dex.contents
			WHERE upload_status = 'uploaded' AND processing_status = 'pending'
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT ?
		)
		UPDATE dex.contents ct
		SET processing_status = 'indexing',
			worker_id = ?,
			last_status_change = now()
		FROM claimed
		WHERE ct.content_hash = claimed.content_hash
		RETURNING ct.*
	`, limit, workerID).Scan(ctx, &records)
	if err != nil {
		r.log.Error("failed to dequeue processing batch", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return records, nil
}

// MarkProcessingDone finishes extraction for a record.
func (r *Repository) MarkProcessingDone(ctx context.Context, hash string) error {
	return r.setProcessingStatus(ctx, hash, ProcessingDone, nil)
}

// MarkProcessingFailed records an extraction failure.
func (r *Repository) MarkProcessingFailed(ctx context.Context, hash, errMsg string) error {
	return r.setProcessingStatus(ctx, hash, ProcessingError, &errMsg)
}

// MarkProcessingSkipped marks content the extractor declines.
func (r *Repository) MarkProcessingSkipped(ctx context.Context, hash, reason string) error {
	return r.setProcessingStatus(ctx, hash, ProcessingSkipped, &reason)
}

func (r *Repository) setProcessingStatus(ctx context.Context, hash string, status ProcessingStatus, errMsg *string) error {
	q := r.db.NewUpdate().
		Model((*Record)(nil)).
		Set("processing_status = ?", status).
		Set("last_status_change = now()").
		Set("worker_id = NULL").
		Where("content_hash = ?", hash)
	if errMsg != nil {
		q = q.Set("last_error = ?", truncate(*errMsg, 2000))
	}
	if _, err := q.Exec(ctx); err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// DeleteIfUnreferenced removes the record when no file references its hash
// anymore, reporting whether a row was deleted so the caller can fire the
// storage deletion hook.
func (r *Repository) DeleteIfUnreferenced(ctx context.Context, hash string) (bool, error) {
	res, err := r.db.NewDelete().
		Model((*Record)(nil)).
		Where("content_hash = ?", hash).
		Where("NOT EXISTS (SELECT 1 FROM dex.files f WHERE f.content_hash = ?)", hash).
		Exec(ctx)
	if err != nil {
		return false, apperror.ErrDatabase.WithInternal(err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListUnreferenced returns hashes with no remaining file reference, for the
// periodic GC sweep.
func (r *Repository) ListUnreferenced(ctx context.Context, limit int) ([]string, error) {
	var hashes []string
	err := r.db.NewSelect().
		Model((*Record)(nil)).
		Column("ct.content_hash").
		Where("NOT EXISTS (SELECT 1 FROM dex.files f WHERE f.content_hash = ct.content_hash)").
		Limit(limit).
		Scan(ctx, &hashes)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return hashes, nil
}

// StatusCount is one (upload_status, processing_status) bucket.
type StatusCount struct {
	UploadStatus     UploadStatus     `bun:"upload_status" json:"uploadStatus"`
	ProcessingStatus ProcessingStatus `bun:"processing_status" json:"processingStatus"`
	Count            int              `bun:"count" json:"count"`
}

// Stats returns record counts per status pair.
func (r *Repository) Stats(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.NewSelect().
		Model((*Record)(nil)).
		Column("ct.upload_status", "ct.processing_status").
		ColumnExpr("count(*) AS count").
		Group("ct.upload_status", "ct.processing_status").
		Scan(ctx, &counts)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return counts, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
