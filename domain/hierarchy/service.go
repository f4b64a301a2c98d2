package hierarchy

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/pkg/logger"
)

// Service derives hierarchy associations from item tags.
//
// Re-derivation is delete-then-reinsert: whenever an item's tag set changes,
// every auto link for that item is dropped and recomputed from the current
// tags, so no mixed old/new state survives the enclosing transaction.
type Service struct {
	repo *Repository
	cfg  config.ClassifyConfig
	log  *slog.Logger
}

// NewService creates a new hierarchy service
func NewService(repo *Repository, cfg *config.Config, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		cfg:  cfg.Classify,
		log:  log.With(logger.Scope("hierarchy")),
	}
}

// WithTx returns a service whose repository is bound to the transaction.
func (s *Service) WithTx(tx bun.IDB) *Service {
	return &Service{
		repo: s.repo.WithTx(tx),
		cfg:  s.cfg,
		log:  s.log,
	}
}

// Rederive recomputes all auto associations for one item from its current
// tag set. Runs inside the same transaction as the triggering write.
func (s *Service) Rederive(ctx context.Context, target TargetRef, tags []string) error {
	if err := s.repo.DeleteAutoAssociations(ctx, target); err != nil {
		return err
	}

	for _, tag := range tags {
		if loc, ok := ParseLocationTag(tag, s.cfg.LocationTagPrefix); ok {
			node, err := s.repo.GetOrCreateLocation(ctx, loc)
			if err != nil {
				return err
			}
			tagCopy := tag
			if err := s.repo.InsertAssociation(ctx, &Association{
				NodeKind:   NodeLocation,
				NodeID:     node.ID,
				TargetKind: target.Kind,
				TargetID:   target.ID,
				Source:     SourceAuto,
				SourceTag:  &tagCopy,
			}); err != nil {
				return err
			}
			continue
		}

		if cg, ok := ParseCostGroupTag(tag, s.cfg.CostGroupPrefixes); ok {
			node, err := s.repo.GetOrCreateCostGroup(ctx, cg.Code, cg.Name)
			if err != nil {
				return err
			}
			tagCopy := tag
			if err := s.repo.InsertAssociation(ctx, &Association{
				NodeKind:   NodeCostGroup,
				NodeID:     node.ID,
				TargetKind: target.Kind,
				TargetID:   target.ID,
				Source:     SourceAuto,
				SourceTag:  &tagCopy,
			}); err != nil {
				return err
			}
		}
		// Other tags carry no hierarchy information; skip silently.
	}

	return nil
}

// RemoveTarget drops every association, auto and manual, for a deleted
// item.
func (s *Service) RemoveTarget(ctx context.Context, target TargetRef) error {
	return s.repo.DeleteAssociationsForTarget(ctx, target)
}

// CreateManualAssociation links a node to an item independently of tag
// derivation. Manual links survive re-derivation passes.
func (s *Service) CreateManualAssociation(ctx context.Context, nodeKind NodeKind, nodeID uuid.UUID, target TargetRef) (*Association, error) {
	assoc := &Association{
		NodeKind:   nodeKind,
		NodeID:     nodeID,
		TargetKind: target.Kind,
		TargetID:   target.ID,
		Source:     SourceManual,
	}
	if err := s.repo.InsertAssociation(ctx, assoc); err != nil {
		return nil, err
	}
	return assoc, nil
}
