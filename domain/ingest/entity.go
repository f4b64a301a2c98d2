// Package ingest owns the durable ingestion queue: adapters enqueue source
// events, workers claim them in disjoint batches, apply them to base
// records, and fire the synchronous enrichment pipeline in one transaction.
package ingest

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/domain/items"
)

// Status of a queue item
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	// StatusDeadLetter is terminal: the item exceeded its retries or failed
	// permanently and is never reprocessed automatically.
	StatusDeadLetter Status = "dead_letter"
)

// EventType identifies what a queue item's payload describes.
type EventType string

const (
	EventTaskUpserted     EventType = "task.upserted"
	EventMessageUpserted  EventType = "message.upserted"
	EventDocumentUpserted EventType = "document.upserted"
	EventFileUpserted     EventType = "file.upserted"
	EventFileDeleted      EventType = "file.deleted"
	EventContactUpserted  EventType = "contact.upserted"
)

// QueueItem is one row of dex.sync_queue.
type QueueItem struct {
	bun.BaseModel `bun:"table:dex.sync_queue,alias:q"`

	ID         uuid.UUID       `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Source     items.Source    `bun:"source,notnull" json:"source"`
	EventType  EventType       `bun:"event_type,notnull" json:"eventType"`
	ExternalID string          `bun:"external_id,notnull" json:"externalId"`
	Payload    json.RawMessage `bun:"payload,type:jsonb,notnull" json:"payload"`

	Status     Status `bun:"status,notnull,default:'pending'" json:"status"`
	RetryCount int    `bun:"retry_count,notnull,default:0" json:"retryCount"`
	MaxRetries int    `bun:"max_retries,notnull,default:5" json:"maxRetries"`

	LastError           *string    `bun:"last_error" json:"lastError,omitempty"`
	NextRetryAt         *time.Time `bun:"next_retry_at" json:"nextRetryAt,omitempty"`
	WorkerID            *string    `bun:"worker_id" json:"workerId,omitempty"`
	ProcessingStartedAt *time.Time `bun:"processing_started_at" json:"processingStartedAt,omitempty"`
	CompletedAt         *time.Time `bun:"completed_at" json:"completedAt,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:now()" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:now()" json:"updatedAt"`
}

// Checkpoint is the per-source resume cursor. Adapters read it to continue
// incremental sync and write it back after a successful batch.
type Checkpoint struct {
	bun.BaseModel `bun:"table:dex.sync_checkpoints,alias:cp"`

	Source        items.Source `bun:"source,pk" json:"source"`
	LastEventTime *time.Time   `bun:"last_event_time" json:"lastEventTime,omitempty"`
	LastCursor    *string      `bun:"last_cursor" json:"lastCursor,omitempty"`
	UpdatedAt     time.Time    `bun:"updated_at,notnull,default:now()" json:"updatedAt"`
}

// TaskPayload is the adapter-delivered shape for task events.
type TaskPayload struct {
	ProjectName *string    `json:"projectName,omitempty"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	AssigneeIDs []string   `json:"assigneeIds,omitempty"`
	CreatedByID *string    `json:"createdById,omitempty"`
	UpdatedByID *string    `json:"updatedById,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// MessagePayload is the adapter-delivered shape for message events.
type MessagePayload struct {
	ConversationID  *string    `json:"conversationId,omitempty"`
	Subject         *string    `json:"subject,omitempty"`
	BodyPreview     *string    `json:"bodyPreview,omitempty"`
	SenderEmail     *string    `json:"senderEmail,omitempty"`
	SenderName      *string    `json:"senderName,omitempty"`
	RecipientEmails []string   `json:"recipientEmails,omitempty"`
	Labels          []string   `json:"labels,omitempty"`
	SentAt          *time.Time `json:"sentAt,omitempty"`
}

// DocumentPayload is the adapter-delivered shape for document events.
type DocumentPayload struct {
	ProjectName *string    `json:"projectName,omitempty"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	UpdatedByID *string    `json:"updatedById,omitempty"`
	DocDate     *time.Time `json:"docDate,omitempty"`
}

// FilePayload is the adapter-delivered shape for file events.
type FilePayload struct {
	Path        string     `json:"path"`
	Name        string     `json:"name"`
	ProjectName *string    `json:"projectName,omitempty"`
	MimeType    *string    `json:"mimeType,omitempty"`
	Size        int64      `json:"size"`
	ContentHash *string    `json:"contentHash,omitempty"`
	ModifiedAt  *time.Time `json:"modifiedAt,omitempty"`
}

// ContactPayload is the adapter-delivered shape for contact events.
type ContactPayload struct {
	DisplayName *string `json:"displayName,omitempty"`
	Email       *string `json:"email,omitempty"`
	IsCompany   bool    `json:"isCompany,omitempty"`
	IsInternal  bool    `json:"isInternal,omitempty"`
}
