package involvement

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/logger"
)

// Repository rebuilds involvement rows set-based from the base tables, so a
// full rebuild is a handful of statements rather than a row-at-a-time loop.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new involvement repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("involvement.repo")),
	}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx bun.IDB) *Repository {
	return &Repository{db: tx, log: r.log}
}

// DeleteForItem removes all involvement rows for one item.
func (r *Repository) DeleteForItem(ctx context.Context, itemID uuid.UUID, itemType items.ItemType) error {
	_, err := r.db.NewDelete().
		Model((*Record)(nil)).
		Where("item_id = ?", itemID).
		Where("item_type = ?", itemType).
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// DeleteAll wipes the involvement table for a full rebuild.
func (r *Repository) DeleteAll(ctx context.Context) error {
	_, err := r.db.NewDelete().Model((*Record)(nil)).Where("true").Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// RebuildTasks derives assignee/creator/updater rows from tasks and person
// links. A nil itemID rebuilds every task.
func (r *Repository) RebuildTasks(ctx context.Context, itemID *uuid.UUID) (int64, error) {
	res, err := r.db.NewRaw(`
		INSERT INTO dex.involvements (item_id, item_type, person_id, involvement_type)
		SELECT t.id, 'task', pl.person_id, 'assignee'
		FROM dex.tasks t
		CROSS JOIN LATERAL unnest(t.assignee_ids) AS a(external_id)
		JOIN dex.person_links pl ON pl.source = t.source AND pl.external_id = a.external_id
		WHERE ?::uuid IS NULL OR t.id = ?
		UNION
		SELECT t.id, 'task', pl.person_id, 'creator'
		FROM dex.tasks t
		JOIN dex.person_links pl ON pl.source = t.source AND pl.external_id = t.created_by_id
		WHERE ?::uuid IS NULL OR t.id = ?
		UNION
		SELECT t.id, 'task', pl.person_id, 'updater'
		FROM dex.tasks t
		JOIN dex.person_links pl ON pl.source = t.source AND pl.external_id = t.updated_by_id
		WHERE ?::uuid IS NULL OR t.id = ?
		ON CONFLICT DO NOTHING
	`, itemID, itemID, itemID, itemID, itemID, itemID).Exec(ctx)
	if err != nil {
		r.log.Error("failed to rebuild task involvement", logger.Error(err))
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// RebuildMessages derives sender/recipient rows from messages, matching
// persons by email. A nil itemID rebuilds every message.
func (r *Repository) RebuildMessages(ctx context.Context, itemID *uuid.UUID) (int64, error) {
	res, err := r.db.NewRaw(`
		INSERT INTO dex.involvements (item_id, item_type, person_id, involvement_type)
		SELECT m.id, 'message', p.id, 'sender'
		FROM dex.messages m
		JOIN dex.unified_persons p ON lower(p.primary_email) = lower(m.sender_email)
		WHERE ?::uuid IS NULL OR m.id = ?
		UNION
		SELECT m.id, 'message', p.id, 'recipient'
		FROM dex.messages m
		CROSS JOIN LATERAL unnest(m.recipient_emails) AS rcpt(email)
		JOIN dex.unified_persons p ON lower(p.primary_email) = lower(rcpt.email)
		WHERE ?::uuid IS NULL OR m.id = ?
		ON CONFLICT DO NOTHING
	`, itemID, itemID, itemID, itemID).Exec(ctx)
	if err != nil {
		r.log.Error("failed to rebuild message involvement", logger.Error(err))
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// RebuildDocuments derives updater rows from documents. A nil itemID
// rebuilds every document.
func (r *Repository) RebuildDocuments(ctx context.Context, itemID *uuid.UUID) (int64, error) {
	res, err := r.db.NewRaw(`
		INSERT INTO dex.involvements (item_id, item_type, person_id, involvement_type)
		SELECT d.id, 'document', pl.person_id, 'updater'
		FROM dex.documents d
		JOIN dex.person_links pl ON pl.source = d.source AND pl.external_id = d.updated_by_id
		WHERE ?::uuid IS NULL OR d.id = ?
		ON CONFLICT DO NOTHING
	`, itemID, itemID).Exec(ctx)
	if err != nil {
		r.log.Error("failed to rebuild document involvement", logger.Error(err))
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ListForItem returns the involvement rows for one item.
func (r *Repository) ListForItem(ctx context.Context, itemID uuid.UUID, itemType items.ItemType) ([]Record, error) {
	var records []Record
	err := r.db.NewSelect().
		Model(&records).
		Where("inv.item_id = ?", itemID).
		Where("inv.item_type = ?", itemType).
		Scan(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return records, nil
}
