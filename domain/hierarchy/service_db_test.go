package hierarchy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *Repository, *bun.DB) {
	db := testutil.DB(t)
	testutil.Truncate(t, db, "associations", "locations", "cost_groups")

	log := testutil.Logger()
	repo := NewRepository(db, log)
	cfg := &config.Config{}
	cfg.Classify.LocationTagPrefix = "loc:"
	cfg.Classify.CostGroupPrefixes = []string{"KGR", "KG"}
	return NewService(repo, cfg, log), repo, db
}

func targetAssociations(t *testing.T, db *bun.DB, target TargetRef) []Association {
	t.Helper()
	var assocs []Association
	err := db.NewSelect().
		Model(&assocs).
		Where("a.target_kind = ?", target.Kind).
		Where("a.target_id = ?", target.ID).
		Order("a.created_at ASC").
		Scan(context.Background())
	require.NoError(t, err)
	return assocs
}

// A cost-code tag must materialize the whole ancestor chain: 456 creates
// 400 and 450 first and parents them in order.
func TestRederive_CostCodeAncestorChain(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	target := TaskTarget(uuid.New())
	require.NoError(t, svc.Rederive(ctx, target, []string{"KGR456 Plumbing"}))

	var groups []CostGroup
	require.NoError(t, db.NewSelect().Model(&groups).Order("cg.code ASC").Scan(ctx))
	require.Len(t, groups, 3)

	assert.Equal(t, "400", groups[0].Code)
	assert.Equal(t, 0, groups[0].Depth)
	assert.Nil(t, groups[0].ParentID)

	assert.Equal(t, "450", groups[1].Code)
	assert.Equal(t, 1, groups[1].Depth)
	require.NotNil(t, groups[1].ParentID)
	assert.Equal(t, groups[0].ID, *groups[1].ParentID)

	assert.Equal(t, "456", groups[2].Code)
	assert.Equal(t, "Plumbing", groups[2].Name)
	assert.Equal(t, 2, groups[2].Depth)
	require.NotNil(t, groups[2].ParentID)
	assert.Equal(t, groups[1].ID, *groups[2].ParentID)
	assert.Equal(t, "400/450/456", groups[2].Path)

	// Only the leaf links to the item.
	assocs := targetAssociations(t, db, target)
	require.Len(t, assocs, 1)
	assert.Equal(t, groups[2].ID, assocs[0].NodeID)
}

func TestRederive_LocationTagChain(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	target := TaskTarget(uuid.New())
	require.NoError(t, svc.Rederive(ctx, target, []string{"loc:A-2-214", "unrelated"}))

	var rooms []Location
	require.NoError(t, db.NewSelect().Model(&rooms).Where("l.depth = ?", DepthRoom).Scan(ctx))
	require.Len(t, rooms, 1)
	assert.Equal(t, "A/2/214", rooms[0].Path)

	assocs := targetAssociations(t, db, target)
	require.Len(t, assocs, 1)
	assert.Equal(t, rooms[0].ID, assocs[0].NodeID)
}

// Re-deriving with a new tag set replaces every auto link; manual links are
// untouched.
func TestRederive_ReplacesAutoKeepsManual(t *testing.T) {
	svc, repo, db := newTestService(t)
	ctx := context.Background()

	target := TaskTarget(uuid.New())
	require.NoError(t, svc.Rederive(ctx, target, []string{"loc:A-2-214", "KGR456"}))
	require.Len(t, targetAssociations(t, db, target), 2)

	manualNode, err := repo.GetOrCreateLocation(ctx, &LocationTag{Building: "B", Level: "1", Room: "Archive"})
	require.NoError(t, err)
	_, err = svc.CreateManualAssociation(ctx, NodeLocation, manualNode.ID, target)
	require.NoError(t, err)

	require.NoError(t, svc.Rederive(ctx, target, []string{"loc:C-3-301"}))

	assocs := targetAssociations(t, db, target)
	require.Len(t, assocs, 2)

	var autos, manuals []Association
	for _, a := range assocs {
		if a.Source == SourceAuto {
			autos = append(autos, a)
		} else {
			manuals = append(manuals, a)
		}
	}
	require.Len(t, autos, 1)
	require.NotNil(t, autos[0].SourceTag)
	assert.Equal(t, "loc:C-3-301", *autos[0].SourceTag)
	require.Len(t, manuals, 1)
	assert.Equal(t, manualNode.ID, manuals[0].NodeID)
}

// Re-deriving identical tags twice must not duplicate links or nodes.
func TestRederive_Idempotent(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	target := TaskTarget(uuid.New())
	tags := []string{"loc:A-2-214", "KGR456 Plumbing"}
	require.NoError(t, svc.Rederive(ctx, target, tags))
	require.NoError(t, svc.Rederive(ctx, target, tags))

	assert.Len(t, targetAssociations(t, db, target), 2)

	locCount, err := db.NewSelect().Model((*Location)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, locCount)
	cgCount, err := db.NewSelect().Model((*CostGroup)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, cgCount)
}

func TestRemoveTarget_DropsAllAssociations(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	target := FileTarget(uuid.New())
	require.NoError(t, svc.Rederive(ctx, target, []string{"loc:A-2-214"}))
	require.NoError(t, svc.RemoveTarget(ctx, target))

	assert.Empty(t, targetAssociations(t, db, target))
}
