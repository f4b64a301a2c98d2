// Package hierarchy derives location and cost-group classifications from
// flat source tags and maintains the association links between hierarchy
// nodes and items.
package hierarchy

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Location is a node in the physical hierarchy (building -> level -> room),
// stored in dex.locations with a materialized path.
type Location struct {
	bun.BaseModel `bun:"table:dex.locations,alias:l"`

	ID         uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	ParentID   *uuid.UUID `bun:"parent_id,type:uuid" json:"parentId,omitempty"`
	Name       string     `bun:"name,notnull" json:"name"`
	Depth      int        `bun:"depth,notnull" json:"depth"`
	Path       string     `bun:"path,notnull" json:"path"`
	SearchText string     `bun:"search_text,notnull" json:"searchText"`
	CreatedAt  time.Time  `bun:"created_at,default:now()" json:"createdAt"`
	UpdatedAt  time.Time  `bun:"updated_at,default:now()" json:"updatedAt"`
}

// Fixed depths per location node type.
const (
	DepthBuilding = 0
	DepthLevel    = 1
	DepthRoom     = 2
)

// CostGroup is a node in the coded cost hierarchy (e.g. 400 -> 450 -> 456),
// stored in dex.cost_groups.
type CostGroup struct {
	bun.BaseModel `bun:"table:dex.cost_groups,alias:cg"`

	ID         uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	ParentID   *uuid.UUID `bun:"parent_id,type:uuid" json:"parentId,omitempty"`
	Code       string     `bun:"code,notnull" json:"code"`
	Name       string     `bun:"name,notnull,default:''" json:"name"`
	Depth      int        `bun:"depth,notnull" json:"depth"`
	Path       string     `bun:"path,notnull" json:"path"`
	SearchText string     `bun:"search_text,notnull" json:"searchText"`
	CreatedAt  time.Time  `bun:"created_at,default:now()" json:"createdAt"`
	UpdatedAt  time.Time  `bun:"updated_at,default:now()" json:"updatedAt"`
}

// NodeKind identifies which hierarchy a node belongs to.
type NodeKind string

const (
	NodeLocation  NodeKind = "location"
	NodeCostGroup NodeKind = "cost_group"
)

// TargetKind identifies what kind of item an association points at.
type TargetKind string

const (
	TargetTask         TargetKind = "task"
	TargetConversation TargetKind = "conversation"
	TargetFile         TargetKind = "file"
)

// TargetRef is the tagged union identifying exactly one association target.
type TargetRef struct {
	Kind TargetKind
	ID   uuid.UUID
}

// TaskTarget returns a TargetRef for a task.
func TaskTarget(id uuid.UUID) TargetRef {
	return TargetRef{Kind: TargetTask, ID: id}
}

// ConversationTarget returns a TargetRef for a mail conversation.
func ConversationTarget(id uuid.UUID) TargetRef {
	return TargetRef{Kind: TargetConversation, ID: id}
}

// FileTarget returns a TargetRef for a file.
func FileTarget(id uuid.UUID) TargetRef {
	return TargetRef{Kind: TargetFile, ID: id}
}

// AssocSource distinguishes derived links from user-created ones.
type AssocSource string

const (
	SourceAuto   AssocSource = "auto"
	SourceManual AssocSource = "manual"
)

// Association links a hierarchy node to exactly one item, stored in
// dex.associations. Auto links are unique per (node, target); manual links
// live independently and survive re-derivation.
type Association struct {
	bun.BaseModel `bun:"table:dex.associations,alias:a"`

	ID         uuid.UUID   `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	NodeKind   NodeKind    `bun:"node_kind,notnull" json:"nodeKind"`
	NodeID     uuid.UUID   `bun:"node_id,notnull,type:uuid" json:"nodeId"`
	TargetKind TargetKind  `bun:"target_kind,notnull" json:"targetKind"`
	TargetID   uuid.UUID   `bun:"target_id,notnull,type:uuid" json:"targetId"`
	Source     AssocSource `bun:"source,notnull,default:'auto'" json:"source"`
	SourceTag  *string     `bun:"source_tag" json:"sourceTag,omitempty"`
	CreatedAt  time.Time   `bun:"created_at,default:now()" json:"createdAt"`
}

// Target returns the association's target as a TargetRef.
func (a *Association) Target() TargetRef {
	return TargetRef{Kind: a.TargetKind, ID: a.TargetID}
}
