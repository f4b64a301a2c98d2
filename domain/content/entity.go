// Package content manages the content-addressed payload store: one record
// per unique byte content, an upload state machine, a downstream processing
// queue, and reference-counted garbage collection.
package content

import (
	"time"

	"github.com/uptrace/bun"
)

// UploadStatus is the upload state of a content record.
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadUploaded  UploadStatus = "uploaded"
	UploadError     UploadStatus = "error"
	UploadSkipped   UploadStatus = "skipped"
)

// ProcessingStatus is the downstream extraction state of a content record.
// Processing only starts once the upload reached 'uploaded'.
type ProcessingStatus string

const (
	ProcessingPending  ProcessingStatus = "pending"
	ProcessingIndexing ProcessingStatus = "indexing"
	ProcessingDone     ProcessingStatus = "done"
	ProcessingSkipped  ProcessingStatus = "skipped"
	ProcessingError    ProcessingStatus = "error"
)

// Record is one row of dex.contents, keyed by content hash. Many file paths
// may reference the same record; it lives until the last reference is gone.
type Record struct {
	bun.BaseModel `bun:"table:dex.contents,alias:ct"`

	ContentHash string  `bun:"content_hash,pk" json:"contentHash"`
	Size        int64   `bun:"size,notnull,default:0" json:"size"`
	MimeType    *string `bun:"mime_type" json:"mimeType,omitempty"`

	UploadStatus     UploadStatus     `bun:"upload_status,notnull,default:'pending'" json:"uploadStatus"`
	ProcessingStatus ProcessingStatus `bun:"processing_status,notnull,default:'pending'" json:"processingStatus"`

	TryCount         int        `bun:"try_count,notnull,default:0" json:"tryCount"`
	LastError        *string    `bun:"last_error" json:"lastError,omitempty"`
	WorkerID         *string    `bun:"worker_id" json:"workerId,omitempty"`
	UploadStartedAt  *time.Time `bun:"upload_started_at" json:"uploadStartedAt,omitempty"`
	LastStatusChange time.Time  `bun:"last_status_change,notnull,default:now()" json:"lastStatusChange"`
	CreatedAt        time.Time  `bun:"created_at,notnull,default:now()" json:"createdAt"`
}
