package unified

import (
	"context"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/logger"
)

// Repository rebuilds index segments set-based. Each segment rebuild is a
// DELETE plus one INSERT...SELECT projecting the base table joined with
// associations, involvements, and persons.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new unified repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("unified.repo")),
	}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx bun.IDB) *Repository {
	return &Repository{db: tx, log: r.log}
}

// ListStatus returns the refresh status of every segment.
func (r *Repository) ListStatus(ctx context.Context) ([]RefreshStatus, error) {
	var statuses []RefreshStatus
	err := r.db.NewSelect().Model(&statuses).Order("rs.segment ASC").Scan(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return statuses, nil
}

// StaleSegments returns segments due for refresh: explicitly marked dirty,
// never refreshed, or past their max age. A segment with interval 0 follows
// the given process-wide default.
func (r *Repository) StaleSegments(ctx context.Context, defaultInterval time.Duration) ([]items.ItemType, error) {
	var segments []items.ItemType
	err := r.db.NewSelect().
		Model((*RefreshStatus)(nil)).
		Column("rs.segment").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("rs.needs_refresh").
				WhereOr("rs.last_refreshed_at IS NULL").
				WhereOr("rs.last_refreshed_at < now() - make_interval(secs => coalesce(nullif(rs.refresh_interval_sec, 0), ?))",
					int(defaultInterval.Seconds()))
		}).
		Order("rs.segment ASC").
		Scan(ctx, &segments)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return segments, nil
}

// MarkStale flags segments dirty. The staleness triggers cover base-table
// writes; this is for callers that change inputs outside those tables.
func (r *Repository) MarkStale(ctx context.Context, segments ...items.ItemType) error {
	if len(segments) == 0 {
		return nil
	}
	_, err := r.db.NewUpdate().
		Model((*RefreshStatus)(nil)).
		Set("needs_refresh = true").
		Where("segment IN (?)", bun.In(segments)).
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// TryAdvisoryLock attempts the refresher's transaction-scoped advisory lock
// without waiting. Must run inside a transaction; the lock releases on
// commit or rollback.
func (r *Repository) TryAdvisoryLock(ctx context.Context) (bool, error) {
	var acquired bool
	err := r.db.NewRaw("SELECT pg_try_advisory_xact_lock(?)", refreshLockKey).Scan(ctx, &acquired)
	if err != nil {
		return false, apperror.ErrDatabase.WithInternal(err)
	}
	return acquired, nil
}

// AdvisoryLock takes the refresher's advisory lock, waiting for any running
// refresh to finish. Must run inside a transaction.
func (r *Repository) AdvisoryLock(ctx context.Context) error {
	if _, err := r.db.NewRaw("SELECT pg_advisory_xact_lock(?)", refreshLockKey).Exec(ctx); err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// refreshLockKey scopes the advisory lock the refresher serializes on.
const refreshLockKey int64 = 0x5349544544455831

// RebuildSegment deletes and reprojects one segment, then clears its dirty
// flag. Callers wrap it in a transaction so readers only ever see the old or
// the new projection.
func (r *Repository) RebuildSegment(ctx context.Context, segment items.ItemType) (int64, error) {
	projection, ok := segmentProjections[segment]
	if !ok {
		return 0, apperror.NewBadRequest("unknown index segment: " + string(segment))
	}

	_, err := r.db.NewDelete().
		Model((*Item)(nil)).
		Where("item_type = ?", segment).
		Exec(ctx)
	if err != nil {
		return 0, apperror.ErrDatabase.WithInternal(err)
	}

	res, err := r.db.NewRaw(projection).Exec(ctx)
	if err != nil {
		r.log.Error("failed to rebuild index segment",
			slog.String("segment", string(segment)), logger.Error(err))
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	rows, _ := res.RowsAffected()

	_, err = r.db.NewUpdate().
		Model((*RefreshStatus)(nil)).
		Set("needs_refresh = false").
		Set("last_refreshed_at = now()").
		Where("segment = ?", segment).
		Exec(ctx)
	if err != nil {
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}

// segmentProjections maps each segment to its INSERT...SELECT. Conversations
// were folded into messages upstream, so message associations key on the
// 'conversation' target kind with the message row id.
var segmentProjections = map[items.ItemType]string{
	items.ItemTypeTask: `
		INSERT INTO dex.unified_items
			(item_id, item_type, name, status, priority, project_name,
			 search_text, tags_text, assignee_text,
			 location_ids, cost_group_ids, involved_emails, item_date, size)
		SELECT t.id, 'task', t.name, t.status, t.priority, t.project_name,
			concat_ws(' ', t.name, t.description, t.project_name,
				array_to_string(t.tags, ' '), coalesce(ppl.names, '')),
			array_to_string(t.tags, ' '),
			coalesce(asg.names, ''),
			coalesce(loc.ids, '{}'), coalesce(cg.ids, '{}'),
			coalesce(eml.emails, '{}'),
			t.due_date, NULL
		FROM dex.tasks t
		LEFT JOIN LATERAL (
			SELECT string_agg(DISTINCT p.display_name, ' ') AS names
			FROM dex.involvements i
			JOIN dex.unified_persons p ON p.id = i.person_id
			WHERE i.item_id = t.id AND i.item_type = 'task'
		) ppl ON true
		LEFT JOIN LATERAL (
			SELECT string_agg(DISTINCT p.display_name, ' ') AS names
			FROM dex.involvements i
			JOIN dex.unified_persons p ON p.id = i.person_id
			WHERE i.item_id = t.id AND i.item_type = 'task'
				AND i.involvement_type = 'assignee'
		) asg ON true
		LEFT JOIN LATERAL (
			SELECT array_agg(DISTINCT a.node_id) AS ids
			FROM dex.associations a
			WHERE a.target_kind = 'task' AND a.target_id = t.id
				AND a.node_kind = 'location'
		) loc ON true
		LEFT JOIN LATERAL (
			SELECT array_agg(DISTINCT a.node_id) AS ids
			FROM dex.associations a
			WHERE a.target_kind = 'task' AND a.target_id = t.id
				AND a.node_kind = 'cost_group'
		) cg ON true
		LEFT JOIN LATERAL (
			SELECT array_agg(DISTINCT lower(p.primary_email)) AS emails
			FROM dex.involvements i
			JOIN dex.unified_persons p ON p.id = i.person_id
			WHERE i.item_id = t.id AND i.item_type = 'task'
				AND p.primary_email IS NOT NULL
		) eml ON true`,

	items.ItemTypeMessage: `
		INSERT INTO dex.unified_items
			(item_id, item_type, name, status, priority, project_name,
			 search_text, tags_text, assignee_text,
			 location_ids, cost_group_ids, involved_emails, item_date, size)
		SELECT m.id, 'message', coalesce(m.subject, '(no subject)'), NULL, NULL, NULL,
			concat_ws(' ', m.subject, m.body_preview, m.sender_name, m.sender_email,
				array_to_string(m.labels, ' ')),
			array_to_string(m.labels, ' '),
			'',
			coalesce(loc.ids, '{}'), coalesce(cg.ids, '{}'),
			coalesce((SELECT array_agg(DISTINCT lower(e))
				FROM unnest(m.recipient_emails || coalesce(m.sender_email, '')) AS e
				WHERE e <> ''), '{}'),
			m.sent_at, NULL
		FROM dex.messages m
		LEFT JOIN LATERAL (
			SELECT array_agg(DISTINCT a.node_id) AS ids
			FROM dex.associations a
			WHERE a.target_kind = 'conversation' AND a.target_id = m.id
				AND a.node_kind = 'location'
		) loc ON true
		LEFT JOIN LATERAL (
			SELECT array_agg(DISTINCT a.node_id) AS ids
			FROM dex.associations a
			WHERE a.target_kind = 'conversation' AND a.target_id = m.id
				AND a.node_kind = 'cost_group'
		) cg ON true`,

	items.ItemTypeDocument: `
		INSERT INTO dex.unified_items
			(item_id, item_type, name, status, priority, project_name,
			 search_text, tags_text, assignee_text,
			 location_ids, cost_group_ids, involved_emails, item_date, size)
		SELECT d.id, 'document', d.name, d.status, NULL, d.project_name,
			concat_ws(' ', d.name, d.description, d.project_name),
			'', '',
			'{}', '{}',
			coalesce(eml.emails, '{}'),
			d.doc_date, NULL
		FROM dex.documents d
		LEFT JOIN LATERAL (
			SELECT array_agg(DISTINCT lower(p.primary_email)) AS emails
			FROM dex.involvements i
			JOIN dex.unified_persons p ON p.id = i.person_id
			WHERE i.item_id = d.id AND i.item_type = 'document'
				AND p.primary_email IS NOT NULL
		) eml ON true`,

	items.ItemTypeFile: `
		INSERT INTO dex.unified_items
			(item_id, item_type, name, status, priority, project_name,
			 search_text, tags_text, assignee_text,
			 location_ids, cost_group_ids, involved_emails, item_date, size)
		SELECT f.id, 'file', f.name, NULL, NULL, f.project_name,
			concat_ws(' ', f.name, f.path, f.project_name),
			'', '',
			coalesce(loc.ids, '{}'), coalesce(cg.ids, '{}'),
			'{}',
			f.modified_at, f.size
		FROM dex.files f
		LEFT JOIN LATERAL (
			SELECT array_agg(DISTINCT a.node_id) AS ids
			FROM dex.associations a
			WHERE a.target_kind = 'file' AND a.target_id = f.id
				AND a.node_kind = 'location'
		) loc ON true
		LEFT JOIN LATERAL (
			SELECT array_agg(DISTINCT a.node_id) AS ids
			FROM dex.associations a
			WHERE a.target_kind = 'file' AND a.target_id = f.id
				AND a.node_kind = 'cost_group'
		) cg ON true`,
}
