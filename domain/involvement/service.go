package involvement

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/domain/operations"
	"github.com/sitedex/sitedex/pkg/logger"
)

// Service exposes per-item and bulk involvement refresh
type Service struct {
	repo *Repository
	ops  *operations.Repository
	log  *slog.Logger
}

// NewService creates a new involvement service
func NewService(repo *Repository, ops *operations.Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		ops:  ops,
		log:  log.With(logger.Scope("involvement.service")),
	}
}

// WithTx returns a service bound to the given transaction.
func (s *Service) WithTx(tx bun.IDB) *Service {
	return &Service{repo: s.repo.WithTx(tx), ops: s.ops, log: s.log}
}

// RefreshItem deletes and recomputes all involvement rows for one item from
// its current base record. Files carry no involvement, so refreshing one
// only clears leftovers.
func (s *Service) RefreshItem(ctx context.Context, itemID uuid.UUID, itemType items.ItemType) error {
	if err := s.repo.DeleteForItem(ctx, itemID, itemType); err != nil {
		return err
	}

	var err error
	switch itemType {
	case items.ItemTypeTask:
		_, err = s.repo.RebuildTasks(ctx, &itemID)
	case items.ItemTypeMessage:
		_, err = s.repo.RebuildMessages(ctx, &itemID)
	case items.ItemTypeDocument:
		_, err = s.repo.RebuildDocuments(ctx, &itemID)
	case items.ItemTypeFile:
	}
	return err
}

// RefreshAll wipes and rebuilds the whole involvement table, tracked as an
// operation run. Used for bulk backfill after person relinking.
func (s *Service) RefreshAll(ctx context.Context) (*operations.Run, error) {
	run, err := s.ops.Start(ctx, operations.RunTypeInvolvementRebuild, 0)
	if err != nil {
		return nil, err
	}

	go s.runRebuild(run)
	return run, nil
}

func (s *Service) runRebuild(run *operations.Run) {
	ctx := context.Background()
	var c operations.Counters

	if err := s.repo.DeleteAll(ctx); err != nil {
		s.failRun(ctx, run, err)
		return
	}

	for _, rebuild := range []func(context.Context, *uuid.UUID) (int64, error){
		s.repo.RebuildTasks,
		s.repo.RebuildMessages,
		s.repo.RebuildDocuments,
	} {
		n, err := rebuild(ctx, nil)
		if err != nil {
			s.failRun(ctx, run, err)
			return
		}
		c.Processed += int(n)
		c.Created += int(n)
	}

	if err := s.ops.Complete(ctx, run.ID, c); err != nil {
		s.log.Error("failed to complete rebuild run", logger.Error(err))
		return
	}
	s.log.Info("involvement rebuild finished", slog.Int("rows", c.Created))
}

func (s *Service) failRun(ctx context.Context, run *operations.Run, err error) {
	s.log.Error("involvement rebuild failed", logger.Error(err))
	if failErr := s.ops.Fail(ctx, run.ID, err.Error()); failErr != nil {
		s.log.Error("failed to mark run failed", logger.Error(failErr))
	}
}
