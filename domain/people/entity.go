// Package people resolves external contacts into canonical persons by email.
package people

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/domain/items"
)

// UnifiedPerson is the canonical identity one or more external contacts
// resolve to.
type UnifiedPerson struct {
	bun.BaseModel `bun:"table:dex.unified_persons,alias:p"`

	ID           uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	DisplayName  string    `bun:"display_name,notnull" json:"displayName"`
	PrimaryEmail *string   `bun:"primary_email" json:"primaryEmail,omitempty"`
	IsInternal   bool      `bun:"is_internal,notnull,default:false" json:"isInternal"`
	IsCompany    bool      `bun:"is_company,notnull,default:false" json:"isCompany"`
	CreatedAt    time.Time `bun:"created_at,default:now()" json:"createdAt"`
	UpdatedAt    time.Time `bun:"updated_at,default:now()" json:"updatedAt"`
}

// PersonLink ties a unified person to exactly one external identity. At most
// one link exists per (source, external_id); links are created on first
// sighting and never re-evaluated.
type PersonLink struct {
	bun.BaseModel `bun:"table:dex.person_links,alias:pl"`

	ID         uuid.UUID    `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	PersonID   uuid.UUID    `bun:"person_id,notnull,type:uuid" json:"personId"`
	Source     items.Source `bun:"source,notnull" json:"source"`
	ExternalID string       `bun:"external_id,notnull" json:"externalId"`
	CreatedAt  time.Time    `bun:"created_at,default:now()" json:"createdAt"`
}

// LinkOutcome is the result of resolving one external identity.
type LinkOutcome string

const (
	// OutcomeSkipped means a link for the identity already existed.
	OutcomeSkipped LinkOutcome = "skipped"
	// OutcomeLinked means the identity's email matched an existing person.
	OutcomeLinked LinkOutcome = "linked"
	// OutcomeCreated means a new person was created for the identity.
	OutcomeCreated LinkOutcome = "created"
)
