// Package unified maintains the denormalized aggregation index: one row per
// (item, type) carrying precomputed search, filter, and access fields. The
// query engine reads only this table; base tables feed it through the
// staleness-tracked refresher.
package unified

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/domain/items"
)

// Item is one row of dex.unified_items.
//
// Rows are never mutated directly; the refresher rebuilds whole segments.
type Item struct {
	bun.BaseModel `bun:"table:dex.unified_items,alias:u"`

	ItemID   uuid.UUID      `bun:"item_id,pk,type:uuid" json:"itemId"`
	ItemType items.ItemType `bun:"item_type,pk" json:"itemType"`

	Name        string  `bun:"name,notnull" json:"name"`
	Status      *string `bun:"status" json:"status,omitempty"`
	Priority    *string `bun:"priority" json:"priority,omitempty"`
	ProjectName *string `bun:"project_name" json:"projectName,omitempty"`

	SearchText   string `bun:"search_text,notnull" json:"-"`
	TagsText     string `bun:"tags_text,notnull" json:"tagsText,omitempty"`
	AssigneeText string `bun:"assignee_text,notnull" json:"assigneeText,omitempty"`

	LocationIDs    []uuid.UUID `bun:"location_ids,array" json:"locationIds"`
	CostGroupIDs   []uuid.UUID `bun:"cost_group_ids,array" json:"costGroupIds"`
	InvolvedEmails []string    `bun:"involved_emails,array" json:"-"`

	ItemDate    *time.Time `bun:"item_date" json:"itemDate,omitempty"`
	Size        *int64     `bun:"size" json:"size,omitempty"`
	RefreshedAt time.Time  `bun:"refreshed_at,notnull,default:now()" json:"refreshedAt"`
}

// RefreshStatus tracks staleness per index segment (one segment per item
// type). Statement-level triggers on the feeder tables set needs_refresh;
// the refresher clears it.
type RefreshStatus struct {
	bun.BaseModel `bun:"table:dex.refresh_status,alias:rs"`

	Segment         items.ItemType `bun:"segment,pk" json:"segment"`
	NeedsRefresh    bool           `bun:"needs_refresh,notnull" json:"needsRefresh"`
	LastRefreshedAt *time.Time     `bun:"last_refreshed_at" json:"lastRefreshedAt,omitempty"`

	// RefreshIntervalSec overrides the process-wide refresh interval for
	// this segment; 0 follows the configured default.
	RefreshIntervalSec int `bun:"refresh_interval_sec,notnull" json:"refreshIntervalSec"`
}
