// Package nav decides which wiki page is shown from the loaded tree, the
// address fragment and user gestures.
package nav

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"onfawiki/internal/logger"
	"onfawiki/internal/wiki"
)

// SessionTTL is how long an admin login stays valid.
const SessionTTL = 24 * time.Hour

var (
	// ErrInvalidCredentials is returned by Login on a mismatch.
	ErrInvalidCredentials = errors.New("invalid admin credentials")
	// ErrLoginDisabled is returned by Login when no credentials are configured.
	ErrLoginDisabled = errors.New("admin login is not configured")
)

// Source supplies the tree. Reload must bypass any cached copy.
type Source interface {
	Snapshot(ctx context.Context) (wiki.Snapshot, error)
	Reload(ctx context.Context) (wiki.Snapshot, error)
}

// Location is the address fragment the navigator reads and rewrites.
type Location interface {
	Fragment() string
	SetFragment(fragment string)
}

// Session persists the admin login time.
type Session interface {
	LoginTime() (time.Time, bool)
	Save(loggedInAt time.Time) error
	Clear() error
}

// Credentials is the fixed admin user and password pair.
type Credentials struct {
	User     string
	Password string
}

// Enabled reports whether a login can ever succeed.
func (c Credentials) Enabled() bool {
	return c.User != "" && c.Password != ""
}

// State is what the UI renders from.
type State struct {
	ActivePageID   string `json:"activePageId,omitempty"`
	ExpandedMenuID string `json:"expandedMenuId,omitempty"`
	AdminMode      bool   `json:"adminMode"`
	Authenticated  bool   `json:"isAuthenticated"`
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithClock replaces time.Now for session expiry.
func WithClock(now func() time.Time) Option {
	return func(n *Navigator) { n.now = now }
}

// WithLogger sets the navigator logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Navigator) { n.log = l }
}

// WithExpanded restores the expanded parent menu.
func WithExpanded(menuID string) Option {
	return func(n *Navigator) { n.state.ExpandedMenuID = menuID }
}

// Navigator is not safe for concurrent use; build one per request or per
// interactive session.
type Navigator struct {
	src   Source
	loc   Location
	sess  Session
	creds Credentials
	now   func() time.Time
	log   logger.Logger

	state   State
	snap    wiki.Snapshot
	loadErr error
}

// New builds a navigator. Call Init before anything else.
func New(src Source, loc Location, sess Session, creds Credentials, opts ...Option) *Navigator {
	n := &Navigator{
		src:   src,
		loc:   loc,
		sess:  sess,
		creds: creds,
		now:   time.Now,
		log:   logger.NewNop(),
		snap:  emptySnapshot(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// State returns the current state.
func (n *Navigator) State() State { return n.state }

// Snapshot returns the loaded tree. After a failed load it is empty.
func (n *Navigator) Snapshot() wiki.Snapshot { return n.snap }

// LoadError returns the error from the most recent load, if any.
func (n *Navigator) LoadError() error { return n.loadErr }

// ActivePage returns the page being shown.
func (n *Navigator) ActivePage() (wiki.Page, bool) {
	if n.state.ActivePageID == "" {
		return wiki.Page{}, false
	}
	return n.snap.Page(n.state.ActivePageID)
}

// Init loads the tree, restores the session, and resolves the fragment. A
// load failure leaves an empty state and is returned, but is not fatal.
func (n *Navigator) Init(ctx context.Context) error {
	n.restoreSession()
	n.load(ctx, false)
	n.applyFragment()
	return n.loadErr
}

// OnFragmentChange re-resolves the fragment after back/forward navigation.
// Leaving admin mode reloads the tree.
func (n *Navigator) OnFragmentChange(ctx context.Context) error {
	wasAdmin := n.state.AdminMode
	if DecodeFragment(n.loc.Fragment()) != AdminToken && wasAdmin {
		n.state.AdminMode = false
		n.load(ctx, true)
	}
	n.applyFragment()
	return n.loadErr
}

// ClickMenu handles a click on a top-level menu. Parent menus toggle the
// accordion; single menus navigate to their page.
func (n *Navigator) ClickMenu(ctx context.Context, id string) error {
	m, ok := n.snap.Menu(id)
	if !ok {
		return &wiki.NotFoundError{Kind: "menu", ID: id}
	}
	if m.IsParent() {
		if n.state.ExpandedMenuID == id {
			n.state.ExpandedMenuID = ""
		} else {
			n.state.ExpandedMenuID = id
		}
		return nil
	}
	return n.Navigate(ctx, id)
}

// ClickChild handles a click on a child entry of a parent menu.
func (n *Navigator) ClickChild(ctx context.Context, id string) error {
	return n.Navigate(ctx, id)
}

// Navigate activates page id and points the fragment at it. A page missing
// from the loaded tree triggers one reload before giving up.
func (n *Navigator) Navigate(ctx context.Context, id string) error {
	if _, ok := n.snap.Page(id); !ok {
		n.load(ctx, true)
		if n.loadErr != nil {
			return n.loadErr
		}
		if _, ok := n.snap.Page(id); !ok {
			return &wiki.NotFoundError{Kind: "page", ID: id}
		}
	}
	n.activate(id)
	return nil
}

// Login checks user and password against the configured pair and starts a
// session.
func (n *Navigator) Login(user, password string) error {
	if !n.creds.Enabled() {
		return ErrLoginDisabled
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(n.creds.User)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(n.creds.Password)) == 1
	if !userOK || !passOK {
		n.log.Warn("admin login rejected", logger.String("user", user))
		return ErrInvalidCredentials
	}
	if err := n.sess.Save(n.now()); err != nil {
		return err
	}
	n.state.Authenticated = true
	n.log.Info("admin logged in", logger.String("user", user))
	return nil
}

// Logout ends the session and leaves admin mode.
func (n *Navigator) Logout(ctx context.Context) error {
	err := n.sess.Clear()
	n.state.Authenticated = false
	n.CloseAdmin(ctx)
	return err
}

// DataChanged reloads the tree after an admin edit. Outside admin mode a
// missing or deleted active page is replaced by the first navigable page.
func (n *Navigator) DataChanged(ctx context.Context) error {
	n.load(ctx, true)
	if _, ok := n.ActivePage(); !ok {
		n.state.ActivePageID = ""
		if !n.state.AdminMode {
			n.selectFirst()
		}
	}
	if _, ok := n.snap.Menu(n.state.ExpandedMenuID); !ok {
		n.state.ExpandedMenuID = ""
	}
	return n.loadErr
}

// CloseAdmin leaves admin mode, reloads, and shows the first navigable page.
func (n *Navigator) CloseAdmin(ctx context.Context) {
	n.state.AdminMode = false
	n.state.ActivePageID = ""
	n.load(ctx, true)
	n.selectFirst()
}

// Search filters the loaded tree.
func (n *Navigator) Search(query string) Results {
	return Search(n.snap, query)
}

func (n *Navigator) restoreSession() {
	at, ok := n.sess.LoginTime()
	if !ok {
		return
	}
	if n.now().Sub(at) >= SessionTTL {
		if err := n.sess.Clear(); err != nil {
			n.log.Warn("clearing expired session failed", logger.Error(err))
		}
		return
	}
	n.state.Authenticated = true
}

func (n *Navigator) load(ctx context.Context, fresh bool) {
	var (
		snap wiki.Snapshot
		err  error
	)
	if fresh {
		snap, err = n.src.Reload(ctx)
	} else {
		snap, err = n.src.Snapshot(ctx)
	}
	n.loadErr = err
	if err != nil {
		n.log.Warn("navigation load failed", logger.Error(err))
		n.snap = emptySnapshot()
		return
	}
	n.snap = snap
}

func (n *Navigator) applyFragment() {
	frag := n.loc.Fragment()
	if DecodeFragment(frag) == AdminToken {
		n.state.AdminMode = true
		return
	}
	n.state.AdminMode = false
	if DecodeFragment(frag) == "" {
		n.selectFirst()
		return
	}
	if p, ok := ResolveFragment(n.snap, frag); ok {
		n.state.ActivePageID = p.ID
		return
	}
	n.state.ActivePageID = ""
}

func (n *Navigator) selectFirst() {
	p, ok := FirstNavigablePage(n.snap)
	if !ok {
		n.state.ActivePageID = ""
		return
	}
	n.activate(p.ID)
}

func (n *Navigator) activate(id string) {
	n.state.ActivePageID = id
	if DecodeFragment(n.loc.Fragment()) != id {
		n.loc.SetFragment(EncodeFragment(id))
	}
}

func emptySnapshot() wiki.Snapshot {
	return wiki.Snapshot{Menus: []wiki.MenuNode{}, Pages: []wiki.Page{}}
}
