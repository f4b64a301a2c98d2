package hierarchy

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/logger"
	"github.com/sitedex/sitedex/pkg/pgutils"
)

// Repository handles database operations for hierarchy nodes and associations
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new hierarchy repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("hierarchy.repo")),
	}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx bun.IDB) *Repository {
	return &Repository{db: tx, log: r.log}
}

func joinPath(parentPath, segment string) string {
	if parentPath == "" {
		return segment
	}
	return parentPath + "/" + segment
}

func pathToSearchText(path string) string {
	return strings.ReplaceAll(path, "/", " ")
}

// getOrCreateLocationNode returns the node with the given parent and name,
// creating it if absent. The depth invariant (depth = parent.depth + 1) is
// validated before any write; a mismatch is a permanent rejection.
func (r *Repository) getOrCreateLocationNode(ctx context.Context, parent *Location, name string, depth int) (*Location, error) {
	parentPath := ""
	var parentID *uuid.UUID
	if parent != nil {
		if depth != parent.Depth+1 {
			return nil, apperror.ErrDepthMismatch.WithDetails(map[string]any{
				"parent_depth": parent.Depth,
				"depth":        depth,
			})
		}
		parentPath = parent.Path
		parentID = &parent.ID
	} else if depth != 0 {
		return nil, apperror.ErrDepthMismatch.WithDetails(map[string]any{"depth": depth})
	}

	node := &Location{}
	q := r.db.NewSelect().Model(node).Where("lower(l.name) = lower(?)", name)
	if parentID != nil {
		q = q.Where("l.parent_id = ?", *parentID)
	} else {
		q = q.Where("l.parent_id IS NULL")
	}
	err := q.Scan(ctx)
	if err == nil {
		return node, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	node = &Location{
		ParentID:   parentID,
		Name:       name,
		Depth:      depth,
		Path:       joinPath(parentPath, name),
		SearchText: pathToSearchText(joinPath(parentPath, name)),
	}
	_, err = r.db.NewInsert().Model(node).Returning("*").Exec(ctx)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			// Lost a race with a concurrent creator; the row exists now.
			return r.getOrCreateLocationNode(ctx, parent, name, depth)
		}
		r.log.Error("failed to insert location", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return node, nil
}

// GetOrCreateLocation resolves a parsed location tag to its room node,
// creating the building/level/room chain as needed. Idempotent: identical
// arguments always resolve to the same node.
func (r *Repository) GetOrCreateLocation(ctx context.Context, tag *LocationTag) (*Location, error) {
	building, err := r.getOrCreateLocationNode(ctx, nil, tag.Building, DepthBuilding)
	if err != nil {
		return nil, err
	}
	level, err := r.getOrCreateLocationNode(ctx, building, tag.Level, DepthLevel)
	if err != nil {
		return nil, err
	}
	return r.getOrCreateLocationNode(ctx, level, tag.Room, DepthRoom)
}

// GetOrCreateCostGroup resolves a three-digit code to its node, creating
// missing ancestors top-down (456 creates 400, then 450, then 456).
// A non-empty name is applied only to the leaf and only on first creation.
func (r *Repository) GetOrCreateCostGroup(ctx context.Context, code, name string) (*CostGroup, error) {
	chain := CodeChain(code)

	var parent *CostGroup
	var node *CostGroup
	for i, c := range chain {
		nodeName := ""
		if i == len(chain)-1 {
			nodeName = name
		}

		var err error
		node, err = r.getOrCreateCostGroupNode(ctx, parent, c, nodeName, i)
		if err != nil {
			return nil, err
		}
		parent = node
	}
	return node, nil
}

func (r *Repository) getOrCreateCostGroupNode(ctx context.Context, parent *CostGroup, code, name string, depth int) (*CostGroup, error) {
	parentPath := ""
	var parentID *uuid.UUID
	if parent != nil {
		if depth != parent.Depth+1 {
			return nil, apperror.ErrDepthMismatch.WithDetails(map[string]any{
				"parent_depth": parent.Depth,
				"depth":        depth,
			})
		}
		parentPath = parent.Path
		parentID = &parent.ID
	} else if depth != 0 {
		return nil, apperror.ErrDepthMismatch.WithDetails(map[string]any{"depth": depth})
	}

	node := &CostGroup{}
	err := r.db.NewSelect().Model(node).Where("cg.code = ?", code).Scan(ctx)
	if err == nil {
		return node, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	searchBase := code
	if name != "" {
		searchBase = code + " " + name
	}
	node = &CostGroup{
		ParentID:   parentID,
		Code:       code,
		Name:       name,
		Depth:      depth,
		Path:       joinPath(parentPath, code),
		SearchText: pathToSearchText(joinPath(parentPath, searchBase)),
	}
	_, err = r.db.NewInsert().Model(node).Returning("*").Exec(ctx)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return r.getOrCreateCostGroupNode(ctx, parent, code, name, depth)
		}
		r.log.Error("failed to insert cost group", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return node, nil
}

// renamedPath returns the node's new materialized path after a rename. Path
// segments are joined with '/', so the parent prefix split is byte-safe even
// for multibyte segment names.
func renamedPath(oldPath, name string) string {
	parentPath := ""
	if idx := strings.LastIndex(oldPath, "/"); idx >= 0 {
		parentPath = oldPath[:idx]
	}
	return joinPath(parentPath, name)
}

// RenameLocation updates a node's name and rewrites the materialized path
// and search text of the node and its whole subtree in one transaction.
func (r *Repository) RenameLocation(ctx context.Context, id uuid.UUID, name string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		node := &Location{}
		err := tx.NewSelect().Model(node).Where("l.id = ?", id).For("UPDATE").Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NewNotFound("location", id.String())
			}
			return apperror.ErrDatabase.WithInternal(err)
		}

		oldPath := node.Path
		newPath := renamedPath(oldPath, name)

		if _, err := tx.NewUpdate().
			Model((*Location)(nil)).
			Set("name = ?", name).
			Set("updated_at = now()").
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return apperror.ErrDatabase.WithInternal(err)
		}

		// Rewrite every path in the subtree. substr offsets count
		// characters, so the old prefix length is measured in SQL rather
		// than with Go's byte length.
		if _, err := tx.NewUpdate().
			Model((*Location)(nil)).
			Set("path = ? || substr(path, char_length(?::text) + 1)", newPath, oldPath).
			Set("search_text = replace(? || substr(path, char_length(?::text) + 1), '/', ' ')", newPath, oldPath).
			Set("updated_at = now()").
			Where("path = ? OR path LIKE ?", oldPath, oldPath+"/%").
			Exec(ctx); err != nil {
			return apperror.ErrDatabase.WithInternal(err)
		}

		return nil
	})
}

// GetLocation fetches a location by id.
func (r *Repository) GetLocation(ctx context.Context, id uuid.UUID) (*Location, error) {
	node := &Location{}
	err := r.db.NewSelect().Model(node).Where("l.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("location", id.String())
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return node, nil
}

// SearchLocationIDs returns the ids of every location whose search text
// matches the term, plus all their descendants. A search for "Building A"
// therefore covers every level and room under it.
func (r *Repository) SearchLocationIDs(ctx context.Context, term string) ([]uuid.UUID, error) {
	var matched []Location
	err := r.db.NewSelect().
		Model(&matched).
		Column("l.id", "l.path").
		Where("l.search_text ILIKE ?", pgutils.Substring(term)).
		Scan(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	if len(matched) == 0 {
		return nil, nil
	}

	q := r.db.NewSelect().Model((*Location)(nil)).Column("id")
	q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, m := range matched {
			q = q.WhereOr("path = ?", m.Path).WhereOr("path LIKE ?", m.Path+"/%")
		}
		return q
	})

	var all []uuid.UUID
	if err := q.Scan(ctx, &all); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return all, nil
}

// SearchCostGroupIDs returns ids of cost groups matching the term by code
// prefix or name substring, plus all their descendants.
func (r *Repository) SearchCostGroupIDs(ctx context.Context, term string) ([]uuid.UUID, error) {
	var matched []CostGroup
	err := r.db.NewSelect().
		Model(&matched).
		Column("cg.id", "cg.path").
		Where("cg.code LIKE ? OR cg.search_text ILIKE ?", pgutils.EscapeLike(term)+"%", pgutils.Substring(term)).
		Scan(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	if len(matched) == 0 {
		return nil, nil
	}

	q := r.db.NewSelect().Model((*CostGroup)(nil)).Column("id")
	q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, m := range matched {
			q = q.WhereOr("path = ?", m.Path).WhereOr("path LIKE ?", m.Path+"/%")
		}
		return q
	})

	var all []uuid.UUID
	if err := q.Scan(ctx, &all); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return all, nil
}

// CostGroupsByCodeRange returns ids of cost groups with code in [from, to].
func (r *Repository) CostGroupsByCodeRange(ctx context.Context, from, to string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.NewSelect().
		Model((*CostGroup)(nil)).
		Column("id").
		Where("code >= ? AND code <= ?", from, to).
		Scan(ctx, &ids)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return ids, nil
}

// DeleteAutoAssociations removes all auto-derived links for a target.
// Manual links are untouched.
func (r *Repository) DeleteAutoAssociations(ctx context.Context, target TargetRef) error {
	_, err := r.db.NewDelete().
		Model((*Association)(nil)).
		Where("target_kind = ?", target.Kind).
		Where("target_id = ?", target.ID).
		Where("source = ?", SourceAuto).
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// DeleteAssociationsForTarget removes every link, auto and manual, for a
// target. Used when the target item itself is deleted.
func (r *Repository) DeleteAssociationsForTarget(ctx context.Context, target TargetRef) error {
	_, err := r.db.NewDelete().
		Model((*Association)(nil)).
		Where("target_kind = ?", target.Kind).
		Where("target_id = ?", target.ID).
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// InsertAssociation creates a link. Duplicate auto links are ignored
// (unique per node+target), duplicate manual links are allowed.
func (r *Repository) InsertAssociation(ctx context.Context, assoc *Association) error {
	q := r.db.NewInsert().Model(assoc)
	if assoc.Source == SourceAuto {
		q = q.On("CONFLICT (node_kind, node_id, target_kind, target_id) WHERE source = 'auto' DO NOTHING")
	}
	if _, err := q.Exec(ctx); err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// DeleteAssociation removes a single association by id.
func (r *Repository) DeleteAssociation(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Association)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound("association", id.String())
	}
	return nil
}

// ListAssociations returns all links for a target, auto and manual.
func (r *Repository) ListAssociations(ctx context.Context, target TargetRef) ([]Association, error) {
	var assocs []Association
	err := r.db.NewSelect().
		Model(&assocs).
		Where("a.target_kind = ?", target.Kind).
		Where("a.target_id = ?", target.ID).
		Order("a.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return assocs, nil
}

// AutocompleteLocations returns up to limit locations matching a prefix.
func (r *Repository) AutocompleteLocations(ctx context.Context, prefix string, limit int) ([]Location, error) {
	var nodes []Location
	err := r.db.NewSelect().
		Model(&nodes).
		Where("l.name ILIKE ?", pgutils.EscapeLike(prefix)+"%").
		Order("l.path ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return nodes, nil
}

// AutocompleteCostGroups returns up to limit cost groups matching a code or
// name prefix.
func (r *Repository) AutocompleteCostGroups(ctx context.Context, prefix string, limit int) ([]CostGroup, error) {
	var nodes []CostGroup
	err := r.db.NewSelect().
		Model(&nodes).
		Where("cg.code LIKE ? OR cg.name ILIKE ?", pgutils.EscapeLike(prefix)+"%", pgutils.EscapeLike(prefix)+"%").
		Order("cg.code ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return nodes, nil
}
