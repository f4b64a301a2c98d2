// Package items holds the normalized base records delivered by the source
// adapters: tasks from the project-management system, messages from the mail
// system, documents, crawled files, and external contacts.
package items

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Source identifies the external system a record came from.
type Source string

const (
	SourceProjects Source = "projects"
	SourceMail     Source = "mail"
	SourceDocs     Source = "docs"
	SourceDrive    Source = "drive"
)

// ItemType discriminates the base record kinds that feed the unified index.
type ItemType string

const (
	ItemTypeTask     ItemType = "task"
	ItemTypeMessage  ItemType = "message"
	ItemTypeDocument ItemType = "document"
	ItemTypeFile     ItemType = "file"
)

// ItemTypes lists all item types in refresh order.
var ItemTypes = []ItemType{ItemTypeTask, ItemTypeMessage, ItemTypeDocument, ItemTypeFile}

// Task represents a task in dex.tasks
type Task struct {
	bun.BaseModel `bun:"table:dex.tasks,alias:t"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Source      Source     `bun:"source,notnull" json:"source"`
	ExternalID  string     `bun:"external_id,notnull" json:"externalId"`
	ProjectName *string    `bun:"project_name" json:"projectName,omitempty"`
	Name        string     `bun:"name,notnull" json:"name"`
	Description *string    `bun:"description" json:"description,omitempty"`
	Status      *string    `bun:"status" json:"status,omitempty"`
	Priority    *string    `bun:"priority" json:"priority,omitempty"`
	Tags        []string   `bun:"tags,array" json:"tags"`
	AssigneeIDs []string   `bun:"assignee_ids,array" json:"assigneeIds"`
	CreatedByID *string    `bun:"created_by_id" json:"createdById,omitempty"`
	UpdatedByID *string    `bun:"updated_by_id" json:"updatedById,omitempty"`
	DueDate     *time.Time `bun:"due_date" json:"dueDate,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,default:now()" json:"createdAt"`
	UpdatedAt   time.Time  `bun:"updated_at,default:now()" json:"updatedAt"`
}

// Message represents a message in dex.messages
type Message struct {
	bun.BaseModel `bun:"table:dex.messages,alias:m"`

	ID              uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Source          Source     `bun:"source,notnull" json:"source"`
	ExternalID      string     `bun:"external_id,notnull" json:"externalId"`
	ConversationID  *string    `bun:"conversation_id" json:"conversationId,omitempty"`
	Subject         *string    `bun:"subject" json:"subject,omitempty"`
	BodyPreview     *string    `bun:"body_preview" json:"bodyPreview,omitempty"`
	SenderEmail     *string    `bun:"sender_email" json:"senderEmail,omitempty"`
	SenderName      *string    `bun:"sender_name" json:"senderName,omitempty"`
	RecipientEmails []string   `bun:"recipient_emails,array" json:"recipientEmails"`
	Labels          []string   `bun:"labels,array" json:"labels"`
	SentAt          *time.Time `bun:"sent_at" json:"sentAt,omitempty"`
	CreatedAt       time.Time  `bun:"created_at,default:now()" json:"createdAt"`
	UpdatedAt       time.Time  `bun:"updated_at,default:now()" json:"updatedAt"`
}

// Document represents a document in dex.documents
type Document struct {
	bun.BaseModel `bun:"table:dex.documents,alias:d"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Source      Source     `bun:"source,notnull" json:"source"`
	ExternalID  string     `bun:"external_id,notnull" json:"externalId"`
	ProjectName *string    `bun:"project_name" json:"projectName,omitempty"`
	Name        string     `bun:"name,notnull" json:"name"`
	Description *string    `bun:"description" json:"description,omitempty"`
	Status      *string    `bun:"status" json:"status,omitempty"`
	UpdatedByID *string    `bun:"updated_by_id" json:"updatedById,omitempty"`
	DocDate     *time.Time `bun:"doc_date" json:"docDate,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,default:now()" json:"createdAt"`
	UpdatedAt   time.Time  `bun:"updated_at,default:now()" json:"updatedAt"`
}

// File represents a crawled file in dex.files
type File struct {
	bun.BaseModel `bun:"table:dex.files,alias:f"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Source      Source     `bun:"source,notnull" json:"source"`
	ExternalID  string     `bun:"external_id,notnull" json:"externalId"`
	Path        string     `bun:"path,notnull" json:"path"`
	Name        string     `bun:"name,notnull" json:"name"`
	ProjectName *string    `bun:"project_name" json:"projectName,omitempty"`
	MimeType    *string    `bun:"mime_type" json:"mimeType,omitempty"`
	Size        int64      `bun:"size,notnull,default:0" json:"size"`
	ContentHash *string    `bun:"content_hash" json:"contentHash,omitempty"`
	ModifiedAt  *time.Time `bun:"modified_at" json:"modifiedAt,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,default:now()" json:"createdAt"`
	UpdatedAt   time.Time  `bun:"updated_at,default:now()" json:"updatedAt"`
}

// Contact represents an external identity in dex.contacts.
// Identity resolution links each contact to a UnifiedPerson exactly once.
type Contact struct {
	bun.BaseModel `bun:"table:dex.contacts,alias:c"`

	ID          uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Source      Source    `bun:"source,notnull" json:"source"`
	ExternalID  string    `bun:"external_id,notnull" json:"externalId"`
	DisplayName *string   `bun:"display_name" json:"displayName,omitempty"`
	Email       *string   `bun:"email" json:"email,omitempty"`
	IsCompany   bool      `bun:"is_company,notnull,default:false" json:"isCompany"`
	IsInternal  bool      `bun:"is_internal,notnull,default:false" json:"isInternal"`
	CreatedAt   time.Time `bun:"created_at,default:now()" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,default:now()" json:"updatedAt"`
}
