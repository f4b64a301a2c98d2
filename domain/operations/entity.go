// Package operations tracks long-running bulk operations such as the
// identity-resolution re-run and the full involvement rebuild. Each run is a
// progress record callers can poll; at most one run per type is live at a
// time.
package operations

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RunType identifies the kind of bulk operation
type RunType string

const (
	RunTypePersonRelink       RunType = "person_relink"
	RunTypeInvolvementRebuild RunType = "involvement_rebuild"
	RunTypeIndexRebuild       RunType = "index_rebuild"
)

// Status of an operation run
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is a progress record for one bulk operation.
type Run struct {
	bun.BaseModel `bun:"table:dex.operation_runs,alias:op"`

	ID      uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	RunType RunType   `bun:"run_type,notnull" json:"runType"`
	Status  Status    `bun:"status,notnull,default:'running'" json:"status"`

	Total     int `bun:"total,notnull,default:0" json:"total"`
	Processed int `bun:"processed,notnull,default:0" json:"processed"`
	Created   int `bun:"created,notnull,default:0" json:"created"`
	Linked    int `bun:"linked,notnull,default:0" json:"linked"`
	Skipped   int `bun:"skipped,notnull,default:0" json:"skipped"`

	Error       *string    `bun:"error" json:"error,omitempty"`
	StartedAt   time.Time  `bun:"started_at,notnull,default:now()" json:"startedAt"`
	CompletedAt *time.Time `bun:"completed_at" json:"completedAt,omitempty"`
}

// Counters is the per-item outcome tally a bulk run accumulates.
type Counters struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Linked    int `json:"linked"`
	Skipped   int `json:"skipped"`
}
