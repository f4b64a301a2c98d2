package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortColumnAllowList(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"name", "name"},
		{"item_date", "item_date"},
		{"project", "project_name"},
		{"size", "size"},
		{"refreshedAt", "refreshed_at"},
		{"", "item_date"},
		{"search_text", "item_date"},
		{"item_id; DROP TABLE", "item_date"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			p := Params{SortField: tt.field}
			assert.Equal(t, tt.want, p.SortColumn())
		})
	}
}

func TestSortDesc(t *testing.T) {
	assert.True(t, Params{}.SortDesc())
	assert.True(t, Params{SortOrder: "desc"}.SortDesc())
	assert.True(t, Params{SortOrder: "bogus"}.SortDesc())
	assert.False(t, Params{SortOrder: "asc"}.SortDesc())
}

func TestNormalize(t *testing.T) {
	p := Params{}
	p.Normalize()
	assert.Equal(t, defaultLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = Params{Limit: 10000, Offset: -5}
	p.Normalize()
	assert.Equal(t, maxLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = Params{Limit: 50, Offset: 100}
	p.Normalize()
	assert.Equal(t, 50, p.Limit)
	assert.Equal(t, 100, p.Offset)
}
