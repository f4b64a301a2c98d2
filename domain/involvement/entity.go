// Package involvement maintains the fan-out table answering "who is involved
// in which item, and how". Rows are fully derived: rebuildable from base
// records and person links at any time, per item or wholesale.
package involvement

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/domain/items"
)

// Type classifies how a person relates to an item.
type Type string

const (
	TypeAssignee  Type = "assignee"
	TypeCreator   Type = "creator"
	TypeUpdater   Type = "updater"
	TypeSender    Type = "sender"
	TypeRecipient Type = "recipient"
)

// Record is one (item, person, role) edge in dex.involvements.
type Record struct {
	bun.BaseModel `bun:"table:dex.involvements,alias:inv"`

	ItemID   uuid.UUID      `bun:"item_id,pk,type:uuid" json:"itemId"`
	ItemType items.ItemType `bun:"item_type,pk" json:"itemType"`
	PersonID uuid.UUID      `bun:"person_id,pk,type:uuid" json:"personId"`
	Type     Type           `bun:"involvement_type,pk" json:"type"`
}
