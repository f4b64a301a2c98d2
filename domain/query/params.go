// Package query serves the read side of the unified index: dynamic filter
// composition, deterministic sort, two-phase pagination, count metadata, and
// autocomplete. It reads dex.unified_items only, never the base tables.
package query

import (
	"time"

	"github.com/google/uuid"

	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/domain/unified"
	"github.com/sitedex/sitedex/pkg/mathutil"
)

// Params is the full set of optional, independently-composable filters.
// Zero values mean "absent", never "match nothing".
type Params struct {
	Types    []items.ItemType `query:"type" json:"types,omitempty"`
	Search   string           `query:"q" json:"search,omitempty"`
	Tag      string           `query:"tag" json:"tag,omitempty"`
	Project  string           `query:"project" json:"project,omitempty"`
	Person   string           `query:"person" json:"person,omitempty"`
	Location string           `query:"location" json:"location,omitempty"`

	CostCodeFrom string `query:"costCodeFrom" json:"costCodeFrom,omitempty"`
	CostCodeTo   string `query:"costCodeTo" json:"costCodeTo,omitempty"`

	Status   []string `query:"status" json:"status,omitempty"`
	Priority []string `query:"priority" json:"priority,omitempty"`

	DateFrom *time.Time `query:"dateFrom" json:"dateFrom,omitempty"`
	DateTo   *time.Time `query:"dateTo" json:"dateTo,omitempty"`
	SizeMin  *int64     `query:"sizeMin" json:"sizeMin,omitempty"`
	SizeMax  *int64     `query:"sizeMax" json:"sizeMax,omitempty"`

	SortField string `query:"sortField" json:"sortField,omitempty"`
	SortOrder string `query:"sortOrder" json:"sortOrder,omitempty"`
	Limit     int    `query:"limit" json:"limit,omitempty"`
	Offset    int    `query:"offset" json:"offset,omitempty"`
}

const (
	defaultLimit = 25
	maxLimit     = 200

	defaultSortField = "item_date"
)

// sortFields is the allow-list of sortable columns. Unknown sort fields fall
// back to the default silently rather than erroring.
var sortFields = map[string]string{
	"name":        "name",
	"item_date":   "item_date",
	"project":     "project_name",
	"status":      "status",
	"priority":    "priority",
	"size":        "size",
	"refreshedAt": "refreshed_at",
}

// SortColumn resolves the requested sort field against the allow-list.
func (p Params) SortColumn() string {
	if col, ok := sortFields[p.SortField]; ok {
		return col
	}
	return sortFields[defaultSortField]
}

// SortDesc reports whether the sort is descending. Descending is the
// default: newest items first.
func (p Params) SortDesc() bool {
	return p.SortOrder != "asc"
}

// Normalize clamps pagination to sane bounds.
func (p *Params) Normalize() {
	p.Limit = mathutil.ClampLimit(p.Limit, defaultLimit, maxLimit)
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// resolved is Params after sub-filters (person, location, cost-code range)
// have been turned into id/email sets. A non-nil empty set means the
// sub-filter matched nothing and the whole query short-circuits.
type resolved struct {
	Params

	LocationIDs    []uuid.UUID
	CostGroupIDs   []uuid.UUID
	InvolvedEmails []string

	// AccessEmails restricts message rows for non-admin callers. Nil means
	// unrestricted (admin).
	AccessEmails []string
}

// Page is one page of query results.
type Page struct {
	Items  []unified.Item `json:"items"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// Counts is the result of count_with_metadata: total, per-type breakdown,
// and how many rows carry each optional column. Drives adaptive UI.
type Counts struct {
	Total  int                    `json:"total"`
	ByType map[items.ItemType]int `json:"byType"`

	WithStatus     int `json:"withStatus"`
	WithPriority   int `json:"withPriority"`
	WithProject    int `json:"withProject"`
	WithDate       int `json:"withDate"`
	WithSize       int `json:"withSize"`
	WithLocations  int `json:"withLocations"`
	WithCostGroups int `json:"withCostGroups"`
}
