package people

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/sitedex/sitedex/domain/items"
	"github.com/sitedex/sitedex/domain/operations"
	"github.com/sitedex/sitedex/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *bun.DB) {
	db := testutil.DB(t)
	testutil.Truncate(t, db, "person_links", "unified_persons", "contacts")

	log := testutil.Logger()
	svc := NewService(NewRepository(db, log), items.NewRepository(db, log),
		operations.NewRepository(db, log), log)
	return svc, db
}

// Contacts from two sources carrying the same email must resolve to one
// unified person, case-insensitively.
func TestLinkContact_SameEmailAcrossSources(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	first := &items.Contact{
		Source:      items.SourceProjects,
		ExternalID:  "u-100",
		DisplayName: strPtr("Ada Lovelace"),
		Email:       strPtr("Ada@Example.com"),
	}
	outcome, err := svc.LinkContact(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	second := &items.Contact{
		Source:     items.SourceMail,
		ExternalID: "mail-7",
		Email:      strPtr("ada@example.com"),
	}
	outcome, err = svc.LinkContact(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, OutcomeLinked, outcome)

	personCount, err := db.NewSelect().Model((*UnifiedPerson)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, personCount)

	var links []PersonLink
	require.NoError(t, db.NewSelect().Model(&links).Scan(ctx))
	require.Len(t, links, 2)
	assert.Equal(t, links[0].PersonID, links[1].PersonID)
}

// A contact whose identity is already linked is never re-resolved, even when
// its fields changed since.
func TestLinkContact_SecondSightingSkipped(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	contact := &items.Contact{
		Source:     items.SourceProjects,
		ExternalID: "u-100",
		Email:      strPtr("ada@example.com"),
	}
	outcome, err := svc.LinkContact(ctx, contact)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	contact.Email = strPtr("renamed@example.com")
	outcome, err = svc.LinkContact(ctx, contact)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)

	personCount, err := db.NewSelect().Model((*UnifiedPerson)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, personCount)
}

// Contacts without an email each get their own person; there is nothing to
// merge on.
func TestLinkContact_NoEmailCreatesDistinctPersons(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	for _, extID := range []string{"u-1", "u-2"} {
		outcome, err := svc.LinkContact(ctx, &items.Contact{
			Source:      items.SourceProjects,
			ExternalID:  extID,
			DisplayName: strPtr("Company " + extID),
			IsCompany:   true,
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, outcome)
	}

	personCount, err := db.NewSelect().Model((*UnifiedPerson)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, personCount)
}
