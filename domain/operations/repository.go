package operations

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/logger"
	"github.com/sitedex/sitedex/pkg/pgutils"
)

// Repository handles database operations for operation runs
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new operations repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("operations.repo")),
	}
}

// Start inserts a running row for the given type. A partial unique index
// allows only one live run per type, so a concurrent start surfaces as a
// conflict rather than a second run.
func (r *Repository) Start(ctx context.Context, runType RunType, total int) (*Run, error) {
	run := &Run{
		RunType: runType,
		Status:  StatusRunning,
		Total:   total,
	}
	_, err := r.db.NewInsert().Model(run).Returning("*").Exec(ctx)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return nil, apperror.ErrConflict.WithMessage("operation already running: " + string(runType))
		}
		r.log.Error("failed to start operation run", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return run, nil
}

// UpdateProgress overwrites the run's counters. Callers flush periodically,
// not per item.
func (r *Repository) UpdateProgress(ctx context.Context, id uuid.UUID, c Counters) error {
	_, err := r.db.NewUpdate().
		Model((*Run)(nil)).
		Set("processed = ?", c.Processed).
		Set("created = ?", c.Created).
		Set("linked = ?", c.Linked).
		Set("skipped = ?", c.Skipped).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// Complete marks the run completed with its final counters.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID, c Counters) error {
	_, err := r.db.NewUpdate().
		Model((*Run)(nil)).
		Set("status = ?", StatusCompleted).
		Set("processed = ?", c.Processed).
		Set("created = ?", c.Created).
		Set("linked = ?", c.Linked).
		Set("skipped = ?", c.Skipped).
		Set("completed_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// Fail marks the run failed and records the error message.
func (r *Repository) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.db.NewUpdate().
		Model((*Run)(nil)).
		Set("status = ?", StatusFailed).
		Set("error = ?", errMsg).
		Set("completed_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// Get fetches a run by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	run := &Run{}
	err := r.db.NewSelect().Model(run).Where("op.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("operation run", id.String())
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return run, nil
}

// Latest returns the most recent run of the given type, or nil when no run
// of that type exists yet.
func (r *Repository) Latest(ctx context.Context, runType RunType) (*Run, error) {
	run := &Run{}
	err := r.db.NewSelect().
		Model(run).
		Where("op.run_type = ?", runType).
		Order("op.started_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return run, nil
}

// List returns recent runs, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	err := r.db.NewSelect().
		Model(&runs).
		Order("op.started_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return runs, nil
}
