package hierarchy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/sitedex/sitedex/internal/testutil"
	"github.com/sitedex/sitedex/pkg/apperror"
)

func TestRenamedPath(t *testing.T) {
	tests := []struct {
		name    string
		oldPath string
		newName string
		want    string
	}{
		{"root node", "Hall A", "Hall B", "Hall B"},
		{"nested node", "Hall A/2/214", "215", "Hall A/2/215"},
		{"multibyte parent", "Bürohaus/Erdgeschoß/Küche", "Lager", "Bürohaus/Erdgeschoß/Lager"},
		{"multibyte new name", "Hall A/2/214", "Büro Süd", "Hall A/2/Büro Süd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renamedPath(tt.oldPath, tt.newName))
		})
	}
}

// The depth invariant is checked before any database access, so a mismatch
// must reject without touching the store.
func TestGetOrCreateNode_DepthMismatch(t *testing.T) {
	repo := NewRepository(nil, testutil.Logger())
	ctx := context.Background()

	building := &Location{ID: uuid.New(), Depth: DepthBuilding, Path: "A"}
	_, err := repo.getOrCreateLocationNode(ctx, building, "214", DepthRoom)
	assert.ErrorIs(t, err, apperror.ErrDepthMismatch)

	_, err = repo.getOrCreateLocationNode(ctx, nil, "A", DepthLevel)
	assert.ErrorIs(t, err, apperror.ErrDepthMismatch)

	group := &CostGroup{ID: uuid.New(), Code: "400", Depth: 0, Path: "400"}
	_, err = repo.getOrCreateCostGroupNode(ctx, group, "456", "", 2)
	assert.ErrorIs(t, err, apperror.ErrDepthMismatch)
}
