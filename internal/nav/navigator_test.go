package nav

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onfawiki/internal/wiki"
)

type fakeSource struct {
	snap    wiki.Snapshot
	next    *wiki.Snapshot
	err     error
	loads   int
	reloads int
}

func (s *fakeSource) Snapshot(context.Context) (wiki.Snapshot, error) {
	s.loads++
	if s.err != nil {
		return wiki.Snapshot{}, s.err
	}
	return s.snap, nil
}

func (s *fakeSource) Reload(context.Context) (wiki.Snapshot, error) {
	s.reloads++
	if s.err != nil {
		return wiki.Snapshot{}, s.err
	}
	if s.next != nil {
		s.snap = *s.next
		s.next = nil
	}
	return s.snap, nil
}

type fakeLocation struct {
	fragment string
	writes   []string
}

func (l *fakeLocation) Fragment() string { return l.fragment }

func (l *fakeLocation) SetFragment(f string) {
	l.fragment = f
	l.writes = append(l.writes, f)
}

type memSession struct {
	at      time.Time
	ok      bool
	cleared int
}

func (s *memSession) LoginTime() (time.Time, bool) { return s.at, s.ok }

func (s *memSession) Save(t time.Time) error {
	s.at, s.ok = t, true
	return nil
}

func (s *memSession) Clear() error {
	s.at, s.ok = time.Time{}, false
	s.cleared++
	return nil
}

var testNow = time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)

var testCreds = Credentials{User: "admin", Password: "s3cret"}

func treeSnapshot() wiki.Snapshot {
	return wiki.Snapshot{
		Menus: []wiki.MenuNode{
			{ID: "account", Title: "Account", Type: wiki.MenuParent, Children: []wiki.MenuChild{
				{ID: "verify-identity", Title: "Verify identity", ParentID: "account"},
				{ID: "2fa", Title: "Two factor", ParentID: "account"},
			}},
			{ID: "xác-minh", Title: "Xác minh", Type: wiki.MenuSingle},
			{ID: "rewards", Title: "Rewards", Type: wiki.MenuParent, Children: []wiki.MenuChild{}},
		},
		Pages: []wiki.Page{
			{ID: "verify-identity", Title: "Verify identity", Content: "<p>Upload your passport</p>", ParentID: "account"},
			{ID: "2fa", Title: "Two factor", Content: "<p>codes</p>", ParentID: "account"},
			{ID: "xác-minh", Title: "Xác minh", Content: "<p>vi</p>"},
		},
	}
}

func newNav(src Source, loc *fakeLocation, sess *memSession, opts ...Option) *Navigator {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(src, loc, sess, testCreds, opts...)
}

func TestInitEmptyFragmentSelectsFirstChild(t *testing.T) {
	src := &fakeSource{snap: wiki.Snapshot{
		Menus: []wiki.MenuNode{{ID: "m1", Type: wiki.MenuParent, Children: []wiki.MenuChild{{ID: "c1"}}}},
		Pages: []wiki.Page{{ID: "c1", Title: "C1"}},
	}}
	loc := &fakeLocation{}
	n := newNav(src, loc, &memSession{})

	require.NoError(t, n.Init(context.Background()))
	assert.Equal(t, "c1", n.State().ActivePageID)
	assert.Equal(t, "c1", loc.fragment)
}

func TestInitFragmentNamesPage(t *testing.T) {
	loc := &fakeLocation{fragment: "#2fa"}
	n := newNav(&fakeSource{snap: treeSnapshot()}, loc, &memSession{})

	require.NoError(t, n.Init(context.Background()))
	assert.Equal(t, "2fa", n.State().ActivePageID)
	assert.Empty(t, loc.writes, "a resolved fragment is not rewritten")
}

func TestInitDecodesEscapedFragment(t *testing.T) {
	loc := &fakeLocation{fragment: EncodeFragment("xác-minh")}
	n := newNav(&fakeSource{snap: treeSnapshot()}, loc, &memSession{})

	require.NoError(t, n.Init(context.Background()))
	assert.Equal(t, "xác-minh", n.State().ActivePageID)
}

func TestInitUnknownFragmentShowsNothing(t *testing.T) {
	loc := &fakeLocation{fragment: "nope"}
	n := newNav(&fakeSource{snap: treeSnapshot()}, loc, &memSession{})

	require.NoError(t, n.Init(context.Background()))
	assert.Empty(t, n.State().ActivePageID)
	_, ok := n.ActivePage()
	assert.False(t, ok)
}

func TestInitWithNoPagesStaysEmpty(t *testing.T) {
	loc := &fakeLocation{}
	n := newNav(&fakeSource{snap: emptySnapshot()}, loc, &memSession{})

	require.NoError(t, n.Init(context.Background()))
	assert.Empty(t, n.State().ActivePageID)
	assert.Empty(t, loc.writes)
}

func TestInitLoadFailureGivesEmptyState(t *testing.T) {
	boom := errors.New("timeout")
	loc := &fakeLocation{fragment: "2fa"}
	n := newNav(&fakeSource{err: boom}, loc, &memSession{})

	err := n.Init(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, n.Snapshot().Empty())
	assert.Empty(t, n.State().ActivePageID)
	assert.ErrorIs(t, n.LoadError(), boom)
}

func TestAdminFragmentAndLeavingIt(t *testing.T) {
	src := &fakeSource{snap: treeSnapshot()}
	loc := &fakeLocation{fragment: "#admin"}
	n := newNav(src, loc, &memSession{})
	ctx := context.Background()

	require.NoError(t, n.Init(ctx))
	assert.True(t, n.State().AdminMode)
	assert.Equal(t, 0, src.reloads)

	loc.fragment = ""
	require.NoError(t, n.OnFragmentChange(ctx))
	assert.False(t, n.State().AdminMode)
	assert.Equal(t, 1, src.reloads, "leaving admin mode reloads the tree")
	assert.Equal(t, "verify-identity", n.State().ActivePageID)

	loc.fragment = "2fa"
	require.NoError(t, n.OnFragmentChange(ctx))
	assert.Equal(t, "2fa", n.State().ActivePageID)
	assert.Equal(t, 1, src.reloads)
}

func TestClickMenuTogglesAccordion(t *testing.T) {
	n := newNav(&fakeSource{snap: treeSnapshot()}, &fakeLocation{}, &memSession{})
	ctx := context.Background()
	require.NoError(t, n.Init(ctx))

	require.NoError(t, n.ClickMenu(ctx, "account"))
	assert.Equal(t, "account", n.State().ExpandedMenuID)
	require.NoError(t, n.ClickMenu(ctx, "rewards"))
	assert.Equal(t, "rewards", n.State().ExpandedMenuID, "only one parent is open")
	require.NoError(t, n.ClickMenu(ctx, "rewards"))
	assert.Empty(t, n.State().ExpandedMenuID)

	assert.ErrorIs(t, n.ClickMenu(ctx, "ghost"), wiki.ErrNotFound)
}

func TestClickSingleMenuNavigates(t *testing.T) {
	loc := &fakeLocation{}
	n := newNav(&fakeSource{snap: treeSnapshot()}, loc, &memSession{})
	ctx := context.Background()
	require.NoError(t, n.Init(ctx))

	require.NoError(t, n.ClickMenu(ctx, "xác-minh"))
	assert.Equal(t, "xác-minh", n.State().ActivePageID)
	assert.Equal(t, EncodeFragment("xác-minh"), loc.fragment)
}

func TestNavigateMissingPageReloadsOnce(t *testing.T) {
	fresh := treeSnapshot()
	fresh.Pages = append(fresh.Pages, wiki.Page{ID: "fees", Title: "Fees"})
	src := &fakeSource{snap: treeSnapshot(), next: &fresh}
	loc := &fakeLocation{}
	n := newNav(src, loc, &memSession{})
	ctx := context.Background()
	require.NoError(t, n.Init(ctx))

	require.NoError(t, n.ClickChild(ctx, "fees"))
	assert.Equal(t, "fees", n.State().ActivePageID)
	assert.Equal(t, 1, src.reloads)

	err := n.ClickChild(ctx, "ghost")
	assert.ErrorIs(t, err, wiki.ErrNotFound)
	assert.Equal(t, "fees", n.State().ActivePageID, "a failed navigation keeps the current page")
	assert.Equal(t, 2, src.reloads)
}

func TestLogin(t *testing.T) {
	sess := &memSession{}
	n := newNav(&fakeSource{snap: treeSnapshot()}, &fakeLocation{}, sess)

	assert.ErrorIs(t, n.Login("admin", "wrong"), ErrInvalidCredentials)
	assert.False(t, n.State().Authenticated)

	require.NoError(t, n.Login("admin", "s3cret"))
	assert.True(t, n.State().Authenticated)
	assert.Equal(t, testNow, sess.at)

	disabled := New(&fakeSource{}, &fakeLocation{}, &memSession{}, Credentials{})
	assert.ErrorIs(t, disabled.Login("", ""), ErrLoginDisabled)
}

func TestSessionExpiresAfterADay(t *testing.T) {
	fresh := &memSession{at: testNow.Add(-23 * time.Hour), ok: true}
	n := newNav(&fakeSource{snap: treeSnapshot()}, &fakeLocation{}, fresh)
	require.NoError(t, n.Init(context.Background()))
	assert.True(t, n.State().Authenticated)

	stale := &memSession{at: testNow.Add(-SessionTTL), ok: true}
	n = newNav(&fakeSource{snap: treeSnapshot()}, &fakeLocation{}, stale)
	require.NoError(t, n.Init(context.Background()))
	assert.False(t, n.State().Authenticated)
	assert.Equal(t, 1, stale.cleared)
}

func TestLogoutLeavesAdminAndSelectsFirstPage(t *testing.T) {
	src := &fakeSource{snap: treeSnapshot()}
	sess := &memSession{at: testNow, ok: true}
	loc := &fakeLocation{fragment: "admin"}
	n := newNav(src, loc, sess)
	ctx := context.Background()
	require.NoError(t, n.Init(ctx))
	require.True(t, n.State().AdminMode)

	require.NoError(t, n.Logout(ctx))
	st := n.State()
	assert.False(t, st.Authenticated)
	assert.False(t, st.AdminMode)
	assert.Equal(t, "verify-identity", st.ActivePageID)
	assert.Equal(t, "verify-identity", loc.fragment)
	assert.False(t, sess.ok)
}

func TestDataChangedReplacesDeletedSelection(t *testing.T) {
	fresh := treeSnapshot()
	fresh.Pages = fresh.Pages[:2]
	fresh.Menus = fresh.Menus[:1]
	src := &fakeSource{snap: treeSnapshot(), next: &fresh}
	loc := &fakeLocation{fragment: "xác-minh"}
	n := newNav(src, loc, &memSession{}, WithExpanded("rewards"))
	ctx := context.Background()
	require.NoError(t, n.Init(ctx))
	require.Equal(t, "xác-minh", n.State().ActivePageID)

	require.NoError(t, n.DataChanged(ctx))
	assert.Equal(t, "verify-identity", n.State().ActivePageID)
	assert.Equal(t, "verify-identity", loc.fragment)
	assert.Empty(t, n.State().ExpandedMenuID)
}

func TestDataChangedInAdminKeepsEmptySelection(t *testing.T) {
	loc := &fakeLocation{fragment: AdminToken}
	n := newNav(&fakeSource{snap: treeSnapshot()}, loc, &memSession{})
	ctx := context.Background()
	require.NoError(t, n.Init(ctx))

	require.NoError(t, n.DataChanged(ctx))
	assert.True(t, n.State().AdminMode)
	assert.Empty(t, n.State().ActivePageID)
	assert.Equal(t, AdminToken, loc.fragment)
}

func TestFirstNavigablePage(t *testing.T) {
	snap := treeSnapshot()
	p, ok := FirstNavigablePage(snap)
	require.True(t, ok)
	assert.Equal(t, "verify-identity", p.ID)

	// an empty folder first falls back to the first page
	snap.Menus = snap.Menus[2:]
	p, ok = FirstNavigablePage(snap)
	require.True(t, ok)
	assert.Equal(t, "verify-identity", p.ID)

	snap.Menus = []wiki.MenuNode{{ID: "xác-minh", Type: wiki.MenuSingle}}
	p, ok = FirstNavigablePage(snap)
	require.True(t, ok)
	assert.Equal(t, "xác-minh", p.ID)

	_, ok = FirstNavigablePage(emptySnapshot())
	assert.False(t, ok)
}
