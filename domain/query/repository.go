package query

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/domain/unified"
	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/logger"
	"github.com/sitedex/sitedex/pkg/pgutils"
)

// Repository runs composed queries against dex.unified_items
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new query repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("query.repo")),
	}
}

// applyFilters adds every present filter to the query. Absent filters are
// no-ops. Callers have already short-circuited empty sub-filter sets.
func applyFilters(q *bun.SelectQuery, f *resolved) *bun.SelectQuery {
	if len(f.Types) > 0 {
		q = q.Where("u.item_type IN (?)", bun.In(f.Types))
	}
	if f.Search != "" {
		q = q.Where("u.search_text ILIKE ?", pgutils.Substring(f.Search))
	}
	if f.Tag != "" {
		q = q.Where("u.tags_text ILIKE ?", pgutils.Substring(f.Tag))
	}
	if f.Project != "" {
		q = q.Where("u.project_name ILIKE ?", pgutils.Substring(f.Project))
	}
	if f.LocationIDs != nil {
		q = q.Where("u.location_ids && ?::uuid[]", pgdialect.Array(uuidStrings(f.LocationIDs)))
	}
	if f.CostGroupIDs != nil {
		q = q.Where("u.cost_group_ids && ?::uuid[]", pgdialect.Array(uuidStrings(f.CostGroupIDs)))
	}
	if f.InvolvedEmails != nil {
		q = q.Where("u.involved_emails && ?::text[]", pgdialect.Array(f.InvolvedEmails))
	}
	if len(f.Status) > 0 {
		q = q.Where("u.status IN (?)", bun.In(f.Status))
	}
	if len(f.Priority) > 0 {
		q = q.Where("u.priority IN (?)", bun.In(f.Priority))
	}
	if f.DateFrom != nil {
		q = q.Where("u.item_date >= ?", f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("u.item_date <= ?", f.DateTo)
	}
	if f.SizeMin != nil {
		q = q.Where("u.size >= ?", f.SizeMin)
	}
	if f.SizeMax != nil {
		q = q.Where("u.size <= ?", f.SizeMax)
	}

	// Message rows are visible only when the caller's email or the public
	// allowlist intersects the row's involved emails.
	if f.AccessEmails != nil {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("u.item_type <> ?", items.ItemTypeMessage).
				WhereOr("u.involved_emails && ?::text[]", pgdialect.Array(f.AccessEmails))
		})
	}
	return q
}

func uuidStrings(ids []uuid.UUID) []string {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return strs
}

// itemKey identifies one index row in phase-1 results.
type itemKey struct {
	ItemID   string         `bun:"item_id"`
	ItemType items.ItemType `bun:"item_type"`
}

// Query runs the two-phase deferred join: phase 1 resolves only the sorted,
// paginated (id, type) keys; phase 2 fetches the wide rows for that page and
// restores phase-1 order.
func (r *Repository) Query(ctx context.Context, f *resolved) ([]unified.Item, error) {
	order := "ASC"
	if f.SortDesc() {
		order = "DESC"
	}

	var keys []itemKey
	err := r.db.NewSelect().
		Model((*unified.Item)(nil)).
		Column("u.item_id", "u.item_type").
		Apply(func(q *bun.SelectQuery) *bun.SelectQuery { return applyFilters(q, f) }).
		OrderExpr("u.? ? NULLS LAST, u.item_id ASC", bun.Ident(f.SortColumn()), bun.Safe(order)).
		Limit(f.Limit).
		Offset(f.Offset).
		Scan(ctx, &keys)
	if err != nil {
		r.log.Error("failed to resolve page keys", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	if len(keys) == 0 {
		return []unified.Item{}, nil
	}

	pairs := make([][]string, len(keys))
	for i, k := range keys {
		pairs[i] = []string{k.ItemID, string(k.ItemType)}
	}

	var rows []unified.Item
	err = r.db.NewSelect().
		Model(&rows).
		Where("(u.item_id::text, u.item_type) IN (?)", bun.In(pairs)).
		Scan(ctx)
	if err != nil {
		r.log.Error("failed to fetch page rows", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	// Phase 2 loses the deferred sort; restore it from the key order.
	return reorderPage(keys, rows), nil
}

// reorderPage restores phase-1 key order over the phase-2 rows. The two
// phases run as separate statements, so a concurrent segment rebuild can
// delete a key's row in between; such keys are dropped from the page
// instead of leaving a hole.
func reorderPage(keys []itemKey, rows []unified.Item) []unified.Item {
	byKey := make(map[itemKey]unified.Item, len(rows))
	for _, row := range rows {
		byKey[itemKey{ItemID: row.ItemID.String(), ItemType: row.ItemType}] = row
	}
	ordered := make([]unified.Item, 0, len(keys))
	for _, k := range keys {
		if row, ok := byKey[k]; ok {
			ordered = append(ordered, row)
		}
	}
	return ordered
}

// CountWithMetadata returns the filtered total, per-type counts, and
// column-presence counts in one pass.
func (r *Repository) CountWithMetadata(ctx context.Context, f *resolved) (*Counts, error) {
	var row struct {
		Total          int `bun:"total"`
		Tasks          int `bun:"tasks"`
		Messages       int `bun:"messages"`
		Documents      int `bun:"documents"`
		Files          int `bun:"files"`
		WithStatus     int `bun:"with_status"`
		WithPriority   int `bun:"with_priority"`
		WithProject    int `bun:"with_project"`
		WithDate       int `bun:"with_date"`
		WithSize       int `bun:"with_size"`
		WithLocations  int `bun:"with_locations"`
		WithCostGroups int `bun:"with_cost_groups"`
	}

	err := r.db.NewSelect().
		Model((*unified.Item)(nil)).
		ColumnExpr("count(*) AS total").
		ColumnExpr("count(*) FILTER (WHERE u.item_type = 'task') AS tasks").
		ColumnExpr("count(*) FILTER (WHERE u.item_type = 'message') AS messages").
		ColumnExpr("count(*) FILTER (WHERE u.item_type = 'document') AS documents").
		ColumnExpr("count(*) FILTER (WHERE u.item_type = 'file') AS files").
		ColumnExpr("count(u.status) AS with_status").
		ColumnExpr("count(u.priority) AS with_priority").
		ColumnExpr("count(u.project_name) AS with_project").
		ColumnExpr("count(u.item_date) AS with_date").
		ColumnExpr("count(u.size) AS with_size").
		ColumnExpr("count(*) FILTER (WHERE u.location_ids <> '{}') AS with_locations").
		ColumnExpr("count(*) FILTER (WHERE u.cost_group_ids <> '{}') AS with_cost_groups").
		Apply(func(q *bun.SelectQuery) *bun.SelectQuery { return applyFilters(q, f) }).
		Scan(ctx, &row)
	if err != nil {
		r.log.Error("failed to count with metadata", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return &Counts{
		Total: row.Total,
		ByType: map[items.ItemType]int{
			items.ItemTypeTask:     row.Tasks,
			items.ItemTypeMessage:  row.Messages,
			items.ItemTypeDocument: row.Documents,
			items.ItemTypeFile:     row.Files,
		},
		WithStatus:     row.WithStatus,
		WithPriority:   row.WithPriority,
		WithProject:    row.WithProject,
		WithDate:       row.WithDate,
		WithSize:       row.WithSize,
		WithLocations:  row.WithLocations,
		WithCostGroups: row.WithCostGroups,
	}, nil
}

// AutocompleteProjects returns distinct project names starting with the
// prefix.
func (r *Repository) AutocompleteProjects(ctx context.Context, prefix string, limit int) ([]string, error) {
	var names []string
	err := r.db.NewSelect().
		Model((*unified.Item)(nil)).
		ColumnExpr("DISTINCT u.project_name").
		Where("u.project_name ILIKE ?", pgutils.Prefix(prefix)).
		OrderExpr("u.project_name ASC").
		Limit(limit).
		Scan(ctx, &names)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return names, nil
}

// AutocompleteTags returns distinct tags and labels starting with the
// prefix, drawn from the source arrays rather than the flattened index
// column.
func (r *Repository) AutocompleteTags(ctx context.Context, prefix string, limit int) ([]string, error) {
	var tags []string
	err := r.db.NewRaw(`
		SELECT DISTINCT tag FROM (
			SELECT unnest(tags) AS tag FROM dex.tasks
			UNION ALL
			SELECT unnest(labels) AS tag FROM dex.messages
		) all_tags
		WHERE tag ILIKE ?
		ORDER BY tag ASC
		LIMIT ?
	`, pgutils.Prefix(prefix), limit).Scan(ctx, &tags)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return tags, nil
}
