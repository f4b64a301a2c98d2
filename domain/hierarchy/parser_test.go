package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocationTag(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		want *LocationTag
	}{
		{
			name: "three segments",
			tag:  "loc:A-2-214",
			want: &LocationTag{Building: "A", Level: "2", Room: "214"},
		},
		{
			name: "two segments defaults level",
			tag:  "loc:B-Workshop",
			want: &LocationTag{Building: "B", Level: DefaultLevel, Room: "Workshop"},
		},
		{
			name: "one segment defaults building and level",
			tag:  "loc:214",
			want: &LocationTag{Building: DefaultBuilding, Level: DefaultLevel, Room: "214"},
		},
		{
			name: "case-insensitive prefix",
			tag:  "LOC:A-2-214",
			want: &LocationTag{Building: "A", Level: "2", Room: "214"},
		},
		{
			name: "segments trimmed",
			tag:  "loc: A - 2 - 214 ",
			want: &LocationTag{Building: "A", Level: "2", Room: "214"},
		},
		{name: "wrong prefix", tag: "location:A-2-214"},
		{name: "empty remainder", tag: "loc:"},
		{name: "empty segment", tag: "loc:A--214"},
		{name: "too many segments", tag: "loc:A-2-214-extra"},
		{name: "empty tag", tag: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLocationTag(tt.tag, "loc:")
			if tt.want == nil {
				assert.False(t, ok)
				assert.Nil(t, got)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLocationTagEmptyPrefix(t *testing.T) {
	_, ok := ParseLocationTag("loc:214", "")
	assert.False(t, ok)
}

func TestParseCostGroupTag(t *testing.T) {
	prefixes := []string{"KGR", "KG"}

	tests := []struct {
		name string
		tag  string
		want *CostGroupTag
	}{
		{
			name: "code with name",
			tag:  "KGR456 Flooring",
			want: &CostGroupTag{Code: "456", Name: "Flooring", Prefix: "KGR"},
		},
		{
			name: "code only",
			tag:  "KGR400",
			want: &CostGroupTag{Code: "400", Prefix: "KGR"},
		},
		{
			name: "short prefix",
			tag:  "KG456",
			want: &CostGroupTag{Code: "456", Prefix: "KG"},
		},
		{
			name: "lowercase prefix",
			tag:  "kgr456 Flooring",
			want: &CostGroupTag{Code: "456", Name: "Flooring", Prefix: "KGR"},
		},
		{
			name: "name trimmed",
			tag:  "KGR456   Flooring  ",
			want: &CostGroupTag{Code: "456", Name: "Flooring", Prefix: "KGR"},
		},
		{name: "four digits", tag: "KGR4567"},
		{name: "two digits", tag: "KGR45"},
		{name: "letters after prefix", tag: "KGRabc"},
		{name: "no prefix", tag: "456 Flooring"},
		{name: "empty tag", tag: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCostGroupTag(tt.tag, prefixes)
			if tt.want == nil {
				assert.False(t, ok)
				assert.Nil(t, got)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCostGroupTagFirstPrefixWins(t *testing.T) {
	// "KGR456" starts with "KG" too, but "R45" fails the digit check, so the
	// longer prefix resolves it. Order still decides for tags only the
	// shorter prefix can parse.
	got, ok := ParseCostGroupTag("KGR456", []string{"KG", "KGR"})
	require.True(t, ok)
	assert.Equal(t, "KGR", got.Prefix)
	assert.Equal(t, "456", got.Code)

	got, ok = ParseCostGroupTag("KG456", []string{"KGR", "KG"})
	require.True(t, ok)
	assert.Equal(t, "KG", got.Prefix)
}

func TestParentCode(t *testing.T) {
	tests := []struct {
		code   string
		parent string
	}{
		{"456", "450"},
		{"450", "400"},
		{"400", ""},
		{"409", "400"},
		{"999", "990"},
		{"100", ""},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := ParentCode(tt.code)
			if tt.parent == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.parent, *got)
		})
	}

	assert.Nil(t, ParentCode("45"))
	assert.Nil(t, ParentCode("abc"))
	assert.Nil(t, ParentCode(""))
}

func TestCodeChain(t *testing.T) {
	assert.Equal(t, []string{"400", "450", "456"}, CodeChain("456"))
	assert.Equal(t, []string{"400", "450"}, CodeChain("450"))
	assert.Equal(t, []string{"400"}, CodeChain("400"))
}

func TestCodeDepth(t *testing.T) {
	assert.Equal(t, 0, CodeDepth("400"))
	assert.Equal(t, 1, CodeDepth("450"))
	assert.Equal(t, 2, CodeDepth("456"))
}
