package wiki

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineCreateParentThenChildPage(t *testing.T) {
	g := newMemGateway(EmptyDocument())
	e := newTestEngine(g)
	ctx := context.Background()

	_, err := e.CreateMenu(ctx, MenuInput{ID: "acct", Title: "Account", Type: MenuParent, Children: []MenuChild{}})
	require.NoError(t, err)
	page, err := e.CreatePage(ctx, PageInput{Title: "Verify", ParentID: "acct"})
	require.NoError(t, err)
	assert.Equal(t, "verify", page.ID)

	menus, err := e.ListMenus(ctx)
	require.NoError(t, err)
	acct, ok := menuByID(menus, "acct")
	require.True(t, ok)
	assert.Equal(t, []MenuChild{{ID: "verify", Title: "Verify", ParentID: "acct"}}, acct.Children)

	stored := g.stored()
	assert.Len(t, stored.Pages, 1)
	assert.Equal(t, int32(2), g.replaces.Load())
}

func TestEngineTopLevelPageAppearsAsSingleMenu(t *testing.T) {
	e := newTestEngine(newMemGateway(EmptyDocument()))
	ctx := context.Background()

	_, err := e.CreatePage(ctx, PageInput{Title: "Wallet"})
	require.NoError(t, err)

	menus, err := e.ListMenus(ctx)
	require.NoError(t, err)
	m, ok := menuByID(menus, "wallet")
	require.True(t, ok)
	assert.Equal(t, MenuSingle, m.Type)
	assert.Equal(t, "Wallet", m.Title)
}

func TestEngineDeleteParentCascades(t *testing.T) {
	g := newMemGateway(EmptyDocument())
	e := newTestEngine(g)
	ctx := context.Background()

	_, err := e.CreateMenu(ctx, MenuInput{ID: "acct", Title: "Account", Type: MenuParent})
	require.NoError(t, err)
	_, err = e.CreatePage(ctx, PageInput{Title: "Verify", ParentID: "acct"})
	require.NoError(t, err)

	found, err := e.DeleteMenu(ctx, "acct")
	require.NoError(t, err)
	assert.True(t, found)

	pages, err := e.ListPages(ctx)
	require.NoError(t, err)
	assert.Empty(t, pages)
	menus, err := e.ListMenus(ctx)
	require.NoError(t, err)
	_, ok := menuByID(menus, "acct")
	assert.False(t, ok)
}

func TestEngineFetchFailureServesEmptyAndBlocksWrites(t *testing.T) {
	g := newMemGateway(seedDocument())
	g.fetchErr = errors.New("i/o timeout")
	e := newTestEngine(g)
	ctx := context.Background()

	menus, err := e.ListMenus(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotNil(t, menus)
	assert.Empty(t, menus)

	pages, err := e.ListPages(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Empty(t, pages)

	_, err = e.CreatePage(ctx, PageInput{Title: "New"})
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = e.DeleteMenu(ctx, "account")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = e.UpdatePage(ctx, "wallet", PagePatch{Title: strPtr("W")})
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.Equal(t, int32(0), g.replaces.Load(), "nothing is written over an unreadable store")
	assert.Len(t, g.stored().Pages, 3)
}

func TestEngineNoWriteWhenNothingChanges(t *testing.T) {
	g := newMemGateway(seedDocument())
	e := newTestEngine(g)
	ctx := context.Background()

	found, err := e.DeletePage(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = e.CreatePage(ctx, PageInput{Title: ""})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = e.GetPage(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, int32(0), g.replaces.Load())
}

func TestEngineMutationsReadFreshDocument(t *testing.T) {
	g := newMemGateway(seedDocument())
	e := newTestEngine(g)
	ctx := context.Background()

	_, err := e.ListPages(ctx)
	require.NoError(t, err)

	// another writer changes the store behind the cache
	other := seedDocument()
	other.Pages = append(other.Pages, Page{ID: "faq", Title: "FAQ", PublishDate: "2024-01-19"})
	g.mu.Lock()
	g.doc = other
	g.mu.Unlock()

	_, err = e.CreatePage(ctx, PageInput{Title: "Fees"})
	require.NoError(t, err)
	stored := g.stored()
	_, ok := stored.PageByID("faq")
	assert.True(t, ok)
}

func TestEngineDocumentRoundTrip(t *testing.T) {
	g := newMemGateway(seedDocument())
	e := newTestEngine(g)
	ctx := context.Background()

	doc, err := e.Document(ctx)
	require.NoError(t, err)
	require.NoError(t, e.Replace(ctx, doc))
	assert.Equal(t, seedDocument(), g.stored())

	err = e.Replace(ctx, Document{Menus: []MenuNode{}})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestEngineRepairDryRun(t *testing.T) {
	broken := seedDocument()
	broken.Menus[0].Children = append(broken.Menus[0].Children, MenuChild{ID: "ghost", Title: "Ghost", ParentID: "account"})
	broken.Menus[0].Children[0].Title = "stale"
	g := newMemGateway(broken)
	e := newTestEngine(g)
	ctx := context.Background()

	report, changed, err := e.Repair(ctx, true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []ChildRef{{ParentID: "account", ChildID: "ghost"}}, report.OrphanChildren)
	assert.Equal(t, []ChildRef{{ParentID: "account", ChildID: "verify-identity"}}, report.StaleTitles)
	assert.Equal(t, int32(0), g.replaces.Load())

	_, changed, err = e.Repair(ctx, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, int32(1), g.replaces.Load())

	after, err := e.Inspect(ctx)
	require.NoError(t, err)
	assert.True(t, after.Healthy())
}

func TestUpdateMenuTitleIsNotMirroredIntoChildren(t *testing.T) {
	g := newMemGateway(seedDocument())
	e := newTestEngine(g)
	ctx := context.Background()

	_, err := e.UpdateMenu(ctx, "account", MenuPatch{Title: strPtr("Profile")})
	require.NoError(t, err)
	page, err := e.GetPage(ctx, "verify-identity")
	require.NoError(t, err)
	// Menu to page mirroring is one-way; child pages keep their parentId and titles.
	assert.Equal(t, "account", page.ParentID)
	assert.Equal(t, "Verify identity", page.Title)
}
