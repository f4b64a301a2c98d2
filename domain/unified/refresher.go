package unified

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/domain/monitoring"
	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/pkg/logger"
)

// Refresher rebuilds stale index segments. Refreshes are single-writer: an
// advisory lock serializes them, and each segment rebuild runs in its own
// transaction so readers see either the old or the new projection, never a
// partial one.
type Refresher struct {
	db       *bun.DB
	repo     *Repository
	interval time.Duration
	metrics  *monitoring.Metrics
	log      *slog.Logger
}

// NewRefresher creates a new refresher
func NewRefresher(db *bun.DB, repo *Repository, cfg *config.Config, metrics *monitoring.Metrics, log *slog.Logger) *Refresher {
	return &Refresher{
		db:       db,
		repo:     repo,
		interval: cfg.Refresh.Interval,
		metrics:  metrics,
		log:      log.With(logger.Scope("unified.refresher")),
	}
}

// RefreshStale rebuilds every segment currently due, skipping silently when
// another refresher holds the lock. The scheduler sweep calls this.
func (r *Refresher) RefreshStale(ctx context.Context) error {
	segments, err := r.repo.StaleSegments(ctx, r.interval)
	if err != nil {
		return err
	}
	for _, segment := range segments {
		if _, err := r.refreshSegment(ctx, segment, false); err != nil {
			return err
		}
	}
	return nil
}

// RefreshAll rebuilds every segment regardless of staleness. With blocking
// set it waits for a running refresh instead of skipping, so callers get a
// guaranteed-fresh index on return.
func (r *Refresher) RefreshAll(ctx context.Context, blocking bool) error {
	for _, segment := range items.ItemTypes {
		if _, err := r.refreshSegment(ctx, segment, blocking); err != nil {
			return err
		}
	}
	return nil
}

// Status returns the per-segment refresh state.
func (r *Refresher) Status(ctx context.Context) ([]RefreshStatus, error) {
	return r.repo.ListStatus(ctx)
}

func (r *Refresher) refreshSegment(ctx context.Context, segment items.ItemType, blocking bool) (bool, error) {
	var refreshed bool
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		repo := r.repo.WithTx(tx)

		if blocking {
			if err := repo.AdvisoryLock(ctx); err != nil {
				return err
			}
		} else {
			acquired, err := repo.TryAdvisoryLock(ctx)
			if err != nil {
				return err
			}
			if !acquired {
				r.log.Debug("refresh lock held elsewhere, skipping",
					slog.String("segment", string(segment)))
				return nil
			}
		}

		start := time.Now()
		rows, err := repo.RebuildSegment(ctx, segment)
		if err != nil {
			return err
		}
		refreshed = true

		elapsed := time.Since(start)
		r.metrics.RefreshDuration.WithLabelValues(string(segment)).Observe(elapsed.Seconds())
		r.metrics.RefreshRows.WithLabelValues(string(segment)).Set(float64(rows))
		r.log.Info("refreshed index segment",
			slog.String("segment", string(segment)),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed))
		return nil
	})
	return refreshed, err
}
