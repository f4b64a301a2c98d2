package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/domain/content"
	"github.com/sitedex/sitedex/domain/hierarchy"
	"github.com/sitedex/sitedex/domain/involvement"
	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/domain/monitoring"
	"github.com/sitedex/sitedex/domain/people"
	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/logger"
)

// Processor applies queue items to base records and runs the synchronous
// enrichment pipeline (classification, identity resolution, involvement) in
// the same transaction, so derivation always reflects the committed state.
type Processor struct {
	db          *bun.DB
	repo        *Repository
	items       *items.Repository
	hierarchy   *hierarchy.Service
	people      *people.Service
	involvement *involvement.Service
	content     *content.Service
	metrics     *monitoring.Metrics
	cfg         *config.Config
	log         *slog.Logger
}

// NewProcessor creates a new ingest processor
func NewProcessor(
	db *bun.DB,
	repo *Repository,
	itemsRepo *items.Repository,
	hierarchySvc *hierarchy.Service,
	peopleSvc *people.Service,
	involvementSvc *involvement.Service,
	contentSvc *content.Service,
	metrics *monitoring.Metrics,
	cfg *config.Config,
	log *slog.Logger,
) *Processor {
	return &Processor{
		db:          db,
		repo:        repo,
		items:       itemsRepo,
		hierarchy:   hierarchySvc,
		people:      peopleSvc,
		involvement: involvementSvc,
		content:     contentSvc,
		metrics:     metrics,
		cfg:         cfg,
		log:         log.With(logger.Scope("ingest.worker")),
	}
}

// ProcessBatch claims and applies one batch of due jobs. Failures surface
// only as state transitions on the job rows, never as batch errors, so a
// poison job cannot wedge the worker.
func (p *Processor) ProcessBatch(ctx context.Context) error {
	jobs, err := p.repo.Dequeue(ctx, p.cfg.Queue.WorkerID, p.cfg.Queue.BatchSize, nil)
	if err != nil {
		return err
	}

	for i := range jobs {
		job := &jobs[i]
		if err := p.processJob(ctx, job); err != nil {
			p.metrics.JobsProcessed.WithLabelValues(string(job.Source), "failed").Inc()
			p.log.Warn("job failed",
				slog.String("job_id", job.ID.String()),
				slog.String("event_type", string(job.EventType)),
				logger.Error(err))
			if markErr := p.repo.MarkFailed(ctx, job, err.Error(), !isPermanent(err)); markErr != nil {
				return markErr
			}
			continue
		}
		p.metrics.JobsProcessed.WithLabelValues(string(job.Source), "completed").Inc()
		if err := p.repo.MarkCompleted(ctx, job.ID); err != nil {
			return err
		}
	}
	return nil
}

// isPermanent reports whether a failure can never succeed on retry.
// Validation-class errors (malformed payloads, depth violations) go straight
// to the dead letter; infrastructure errors retry on the backoff schedule.
func isPermanent(err error) bool {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus < http.StatusInternalServerError
	}
	var jsonErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &jsonErr) || errors.As(err, &typeErr)
}

func (p *Processor) processJob(ctx context.Context, job *QueueItem) error {
	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		switch job.EventType {
		case EventTaskUpserted:
			return p.applyTask(ctx, tx, job)
		case EventMessageUpserted:
			return p.applyMessage(ctx, tx, job)
		case EventDocumentUpserted:
			return p.applyDocument(ctx, tx, job)
		case EventFileUpserted:
			return p.applyFileUpsert(ctx, tx, job)
		case EventFileDeleted:
			return p.applyFileDelete(ctx, tx, job)
		case EventContactUpserted:
			return p.applyContact(ctx, tx, job)
		default:
			return apperror.NewBadRequest("unknown event type: " + string(job.EventType))
		}
	})
}

func (p *Processor) applyTask(ctx context.Context, tx bun.Tx, job *QueueItem) error {
	var payload TaskPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return err
	}

	task, err := p.items.WithTx(tx).UpsertTask(ctx, &items.Task{
		Source:      job.Source,
		ExternalID:  job.ExternalID,
		ProjectName: payload.ProjectName,
		Name:        payload.Name,
		Description: payload.Description,
		Status:      payload.Status,
		Priority:    payload.Priority,
		Tags:        payload.Tags,
		AssigneeIDs: payload.AssigneeIDs,
		CreatedByID: payload.CreatedByID,
		UpdatedByID: payload.UpdatedByID,
		DueDate:     payload.DueDate,
	})
	if err != nil {
		return err
	}

	if err := p.hierarchy.WithTx(tx).Rederive(ctx, hierarchy.TaskTarget(task.ID), payload.Tags); err != nil {
		return err
	}
	return p.involvement.WithTx(tx).RefreshItem(ctx, task.ID, items.ItemTypeTask)
}

func (p *Processor) applyMessage(ctx context.Context, tx bun.Tx, job *QueueItem) error {
	var payload MessagePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return err
	}

	msg, err := p.items.WithTx(tx).UpsertMessage(ctx, &items.Message{
		Source:          job.Source,
		ExternalID:      job.ExternalID,
		ConversationID:  payload.ConversationID,
		Subject:         payload.Subject,
		BodyPreview:     payload.BodyPreview,
		SenderEmail:     payload.SenderEmail,
		SenderName:      payload.SenderName,
		RecipientEmails: payload.RecipientEmails,
		Labels:          payload.Labels,
		SentAt:          payload.SentAt,
	})
	if err != nil {
		return err
	}

	if err := p.hierarchy.WithTx(tx).Rederive(ctx, hierarchy.ConversationTarget(msg.ID), payload.Labels); err != nil {
		return err
	}
	return p.involvement.WithTx(tx).RefreshItem(ctx, msg.ID, items.ItemTypeMessage)
}

func (p *Processor) applyDocument(ctx context.Context, tx bun.Tx, job *QueueItem) error {
	var payload DocumentPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return err
	}

	doc, err := p.items.WithTx(tx).UpsertDocument(ctx, &items.Document{
		Source:      job.Source,
		ExternalID:  job.ExternalID,
		ProjectName: payload.ProjectName,
		Name:        payload.Name,
		Description: payload.Description,
		Status:      payload.Status,
		UpdatedByID: payload.UpdatedByID,
		DocDate:     payload.DocDate,
	})
	if err != nil {
		return err
	}
	return p.involvement.WithTx(tx).RefreshItem(ctx, doc.ID, items.ItemTypeDocument)
}

func (p *Processor) applyFileUpsert(ctx context.Context, tx bun.Tx, job *QueueItem) error {
	var payload FilePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return err
	}

	file, prevHash, err := p.items.WithTx(tx).UpsertFile(ctx, &items.File{
		Source:      job.Source,
		ExternalID:  job.ExternalID,
		Path:        payload.Path,
		Name:        payload.Name,
		ProjectName: payload.ProjectName,
		MimeType:    payload.MimeType,
		Size:        payload.Size,
		ContentHash: payload.ContentHash,
		ModifiedAt:  payload.ModifiedAt,
	})
	if err != nil {
		return err
	}

	contentSvc := p.content.WithTx(tx)
	if err := contentSvc.RegisterFile(ctx, file.ContentHash, file.Size, file.MimeType); err != nil {
		return err
	}
	// The content changed under this path; the old bytes may now be
	// unreferenced.
	if prevHash != nil && (file.ContentHash == nil || *prevHash != *file.ContentHash) {
		if err := contentSvc.ReleaseHash(ctx, prevHash); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) applyFileDelete(ctx context.Context, tx bun.Tx, job *QueueItem) error {
	file, err := p.items.WithTx(tx).DeleteFile(ctx, job.Source, job.ExternalID)
	if err != nil {
		return err
	}
	if file == nil {
		// Replayed delete; nothing left to do.
		return nil
	}

	if err := p.hierarchy.WithTx(tx).RemoveTarget(ctx, hierarchy.FileTarget(file.ID)); err != nil {
		return err
	}
	if err := p.involvement.WithTx(tx).RefreshItem(ctx, file.ID, items.ItemTypeFile); err != nil {
		return err
	}
	return p.content.WithTx(tx).ReleaseHash(ctx, file.ContentHash)
}

func (p *Processor) applyContact(ctx context.Context, tx bun.Tx, job *QueueItem) error {
	var payload ContactPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return err
	}

	contact, isNew, err := p.items.WithTx(tx).UpsertContact(ctx, &items.Contact{
		Source:      job.Source,
		ExternalID:  job.ExternalID,
		DisplayName: payload.DisplayName,
		Email:       payload.Email,
		IsCompany:   payload.IsCompany,
		IsInternal:  payload.IsInternal,
	})
	if err != nil {
		return err
	}

	// Identity resolution runs on first sighting only; later contact
	// updates never re-evaluate the link.
	if isNew {
		if _, err := p.people.WithTx(tx).LinkContact(ctx, contact); err != nil {
			return err
		}
	}
	return nil
}
