package items

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/logger"
)

// Repository handles database operations for base records.
//
// Upserts key on (source, external_id) so adapters can re-deliver the same
// event without corrupting state.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new items repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("items.repo")),
	}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx bun.IDB) *Repository {
	return &Repository{db: tx, log: r.log}
}

// UpsertTask inserts or updates a task and returns the stored row.
func (r *Repository) UpsertTask(ctx context.Context, task *Task) (*Task, error) {
	_, err := r.db.NewInsert().
		Model(task).
		On("CONFLICT (source, external_id) DO UPDATE").
		Set("project_name = EXCLUDED.project_name").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("status = EXCLUDED.status").
		Set("priority = EXCLUDED.priority").
		Set("tags = EXCLUDED.tags").
		Set("assignee_ids = EXCLUDED.assignee_ids").
		Set("created_by_id = EXCLUDED.created_by_id").
		Set("updated_by_id = EXCLUDED.updated_by_id").
		Set("due_date = EXCLUDED.due_date").
		Set("updated_at = now()").
		Returning("*").
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to upsert task", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return task, nil
}

// UpsertMessage inserts or updates a message and returns the stored row.
func (r *Repository) UpsertMessage(ctx context.Context, msg *Message) (*Message, error) {
	_, err := r.db.NewInsert().
		Model(msg).
		On("CONFLICT (source, external_id) DO UPDATE").
		Set("conversation_id = EXCLUDED.conversation_id").
		Set("subject = EXCLUDED.subject").
		Set("body_preview = EXCLUDED.body_preview").
		Set("sender_email = EXCLUDED.sender_email").
		Set("sender_name = EXCLUDED.sender_name").
		Set("recipient_emails = EXCLUDED.recipient_emails").
		Set("labels = EXCLUDED.labels").
		Set("sent_at = EXCLUDED.sent_at").
		Set("updated_at = now()").
		Returning("*").
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to upsert message", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return msg, nil
}

// UpsertDocument inserts or updates a document and returns the stored row.
func (r *Repository) UpsertDocument(ctx context.Context, doc *Document) (*Document, error) {
	_, err := r.db.NewInsert().
		Model(doc).
		On("CONFLICT (source, external_id) DO UPDATE").
		Set("project_name = EXCLUDED.project_name").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("status = EXCLUDED.status").
		Set("updated_by_id = EXCLUDED.updated_by_id").
		Set("doc_date = EXCLUDED.doc_date").
		Set("updated_at = now()").
		Returning("*").
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to upsert document", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return doc, nil
}

// UpsertFile inserts or updates a file and returns the stored row plus the
// previous content hash (for content garbage collection).
func (r *Repository) UpsertFile(ctx context.Context, file *File) (*File, *string, error) {
	var prevHash *string
	err := r.db.NewSelect().
		Model((*File)(nil)).
		Column("content_hash").
		Where("source = ?", file.Source).
		Where("external_id = ?", file.ExternalID).
		Scan(ctx, &prevHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperror.ErrDatabase.WithInternal(err)
	}

	_, err = r.db.NewInsert().
		Model(file).
		On("CONFLICT (source, external_id) DO UPDATE").
		Set("path = EXCLUDED.path").
		Set("name = EXCLUDED.name").
		Set("project_name = EXCLUDED.project_name").
		Set("mime_type = EXCLUDED.mime_type").
		Set("size = EXCLUDED.size").
		Set("content_hash = EXCLUDED.content_hash").
		Set("modified_at = EXCLUDED.modified_at").
		Set("updated_at = now()").
		Returning("*").
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to upsert file", logger.Error(err))
		return nil, nil, apperror.ErrDatabase.WithInternal(err)
	}
	return file, prevHash, nil
}

// DeleteFile removes a file row and returns it, or nil when no such file
// exists. Callers release the content hash and clean up associations.
func (r *Repository) DeleteFile(ctx context.Context, source Source, externalID string) (*File, error) {
	file := &File{}
	err := r.db.NewDelete().
		Model(file).
		Where("source = ?", source).
		Where("external_id = ?", externalID).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to delete file", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return file, nil
}

// UpsertContact inserts or updates a contact and reports whether the row is
// new. Newness drives identity resolution, which runs only on first sighting.
func (r *Repository) UpsertContact(ctx context.Context, contact *Contact) (*Contact, bool, error) {
	existed, err := r.db.NewSelect().
		Model((*Contact)(nil)).
		Where("source = ?", contact.Source).
		Where("external_id = ?", contact.ExternalID).
		Exists(ctx)
	if err != nil {
		return nil, false, apperror.ErrDatabase.WithInternal(err)
	}

	_, err = r.db.NewInsert().
		Model(contact).
		On("CONFLICT (source, external_id) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("email = EXCLUDED.email").
		Set("is_company = EXCLUDED.is_company").
		Set("is_internal = EXCLUDED.is_internal").
		Set("updated_at = now()").
		Returning("*").
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to upsert contact", logger.Error(err))
		return nil, false, apperror.ErrDatabase.WithInternal(err)
	}
	return contact, !existed, nil
}

// GetTask fetches a task by id.
func (r *Repository) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	task := &Task{}
	err := r.db.NewSelect().Model(task).Where("t.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("task", id.String())
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return task, nil
}

// GetMessage fetches a message by id.
func (r *Repository) GetMessage(ctx context.Context, id uuid.UUID) (*Message, error) {
	msg := &Message{}
	err := r.db.NewSelect().Model(msg).Where("m.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("message", id.String())
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return msg, nil
}

// ListContacts returns all contacts, used by the bulk identity re-run.
func (r *Repository) ListContacts(ctx context.Context) ([]Contact, error) {
	var contacts []Contact
	if err := r.db.NewSelect().Model(&contacts).Order("c.created_at ASC").Scan(ctx); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return contacts, nil
}

// GetContactByRef fetches a contact by its external identity.
func (r *Repository) GetContactByRef(ctx context.Context, source Source, externalID string) (*Contact, error) {
	contact := &Contact{}
	err := r.db.NewSelect().
		Model(contact).
		Where("c.source = ?", source).
		Where("c.external_id = ?", externalID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("contact", externalID)
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return contact, nil
}
