package wiki

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// memGateway is an in-memory Gateway that counts calls and can be made to fail
// or block.
type memGateway struct {
	mu       sync.Mutex
	doc      Document
	fetchErr error
	putErr   error
	block    chan struct{}

	fetches  atomic.Int32
	replaces atomic.Int32
}

func newMemGateway(doc Document) *memGateway {
	return &memGateway{doc: doc.Clone()}
}

func (g *memGateway) Fetch(ctx context.Context) (Document, error) {
	g.fetches.Add(1)
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return Document{}, ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return Document{}, g.fetchErr
	}
	return g.doc.Clone(), nil
}

func (g *memGateway) Replace(_ context.Context, doc Document) error {
	g.replaces.Add(1)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.putErr != nil {
		return g.putErr
	}
	g.doc = doc.Clone()
	return nil
}

func (g *memGateway) stored() Document {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.doc.Clone()
}

var fixedNow = func() time.Time {
	return time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
}

func newTestEngine(g *memGateway) *Engine {
	return NewEngine(NewCache(g, WithFetchTimeout(time.Second)), WithClock(fixedNow))
}

func menuByID(menus []MenuNode, id string) (MenuNode, bool) {
	for _, m := range menus {
		if m.ID == id {
			return m, true
		}
	}
	return MenuNode{}, false
}

func countMenus(menus []MenuNode, id string) int {
	n := 0
	for _, m := range menus {
		if m.ID == id {
			n++
		}
	}
	return n
}

func strPtr(s string) *string { return &s }

// seedDocument is a small tree: one parent with two children, one single menu
// with its page, and an empty folder.
func seedDocument() Document {
	return Document{
		Menus: []MenuNode{
			{ID: "account", Title: "Account", Icon: BuiltinIcon("user"), Type: MenuParent, Children: []MenuChild{
				{ID: "verify-identity", Title: "Verify identity", ParentID: "account"},
				{ID: "2fa", Title: "Two factor", ParentID: "account"},
			}},
			{ID: "wallet", Title: "Wallet", Icon: BuiltinIcon("wallet"), Type: MenuSingle},
			{ID: "rewards", Title: "Rewards", Icon: BuiltinIcon("star"), Type: MenuParent, Children: []MenuChild{}},
		},
		Pages: []Page{
			{ID: "verify-identity", Title: "Verify identity", Content: "<p>kyc</p>", PublishDate: "2024-01-15", ParentID: "account"},
			{ID: "2fa", Title: "Two factor", Content: "<p>2fa</p>", PublishDate: "2024-01-16", ParentID: "account"},
			{ID: "wallet", Title: "Wallet", Content: "<p>wallet</p>", PublishDate: "2024-01-18"},
		},
	}
}
