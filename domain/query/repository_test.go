package query

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/domain/unified"
)

func pageItem(id uuid.UUID, typ items.ItemType, name string) unified.Item {
	return unified.Item{ItemID: id, ItemType: typ, Name: name}
}

func TestReorderPage(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	keys := []itemKey{
		{ItemID: b.String(), ItemType: items.ItemTypeTask},
		{ItemID: a.String(), ItemType: items.ItemTypeMessage},
		{ItemID: c.String(), ItemType: items.ItemTypeTask},
	}
	rows := []unified.Item{
		pageItem(a, items.ItemTypeMessage, "msg-a"),
		pageItem(c, items.ItemTypeTask, "task-c"),
		pageItem(b, items.ItemTypeTask, "task-b"),
	}

	ordered := reorderPage(keys, rows)
	require.Len(t, ordered, 3)
	assert.Equal(t, "task-b", ordered[0].Name)
	assert.Equal(t, "msg-a", ordered[1].Name)
	assert.Equal(t, "task-c", ordered[2].Name)
}

// A segment rebuild between the two statements can delete a row that phase 1
// selected. The page must shrink, not panic or carry a zero-value hole.
func TestReorderPage_RowDeletedBetweenPhases(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	keys := []itemKey{
		{ItemID: a.String(), ItemType: items.ItemTypeTask},
		{ItemID: b.String(), ItemType: items.ItemTypeTask},
		{ItemID: c.String(), ItemType: items.ItemTypeTask},
	}

	// Middle row gone.
	ordered := reorderPage(keys, []unified.Item{
		pageItem(a, items.ItemTypeTask, "first"),
		pageItem(c, items.ItemTypeTask, "last"),
	})
	require.Len(t, ordered, 2)
	assert.Equal(t, "first", ordered[0].Name)
	assert.Equal(t, "last", ordered[1].Name)

	// Last key gone: its position exceeds the row count.
	ordered = reorderPage(keys, []unified.Item{
		pageItem(a, items.ItemTypeTask, "first"),
		pageItem(b, items.ItemTypeTask, "second"),
	})
	require.Len(t, ordered, 2)
	assert.Equal(t, "first", ordered[0].Name)
	assert.Equal(t, "second", ordered[1].Name)
}

func TestReorderPage_SameIDDifferentType(t *testing.T) {
	id := uuid.New()
	keys := []itemKey{
		{ItemID: id.String(), ItemType: items.ItemTypeMessage},
		{ItemID: id.String(), ItemType: items.ItemTypeTask},
	}
	rows := []unified.Item{
		pageItem(id, items.ItemTypeTask, "task"),
		pageItem(id, items.ItemTypeMessage, "message"),
	}

	ordered := reorderPage(keys, rows)
	require.Len(t, ordered, 2)
	assert.Equal(t, "message", ordered[0].Name)
	assert.Equal(t, "task", ordered[1].Name)
}

func TestReorderPage_Empty(t *testing.T) {
	assert.Empty(t, reorderPage(nil, nil))
	assert.Empty(t, reorderPage([]itemKey{{ItemID: uuid.NewString(), ItemType: items.ItemTypeFile}}, nil))
}
