package wiki

import (
	"context"
	"time"

	"onfawiki/internal/logger"
)

// Engine applies create, update and delete operations to the wiki tree.
// Every mutation reads the whole document, changes it in memory and writes
// the whole document back; concurrent writers are last-write-wins.
type Engine struct {
	cache *Cache
	log   logger.Logger
	now   func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithClock replaces time.Now for default publish dates.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an engine over cache.
func NewEngine(cache *Cache, opts ...EngineOption) *Engine {
	e := &Engine{cache: cache, log: logger.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cache returns the document cache backing the engine.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Snapshot returns menus (with synthesized entries) and pages. When the
// document cannot be loaded it returns an empty snapshot together with the
// error, never stale data.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	doc, err := e.cache.Load(ctx)
	if err != nil {
		e.log.Warn("document load failed, serving empty state", logger.Error(err))
		return Snapshot{Menus: []MenuNode{}, Pages: []Page{}}, err
	}
	return doc.Snapshot(), nil
}

// Reload drops the cached document and returns a fresh snapshot.
func (e *Engine) Reload(ctx context.Context) (Snapshot, error) {
	e.cache.Invalidate()
	return e.Snapshot(ctx)
}

// ListMenus returns stored menus followed by synthesized single menus.
func (e *Engine) ListMenus(ctx context.Context) ([]MenuNode, error) {
	snap, err := e.Snapshot(ctx)
	return snap.Menus, err
}

// ListPages returns the stored pages.
func (e *Engine) ListPages(ctx context.Context) ([]Page, error) {
	snap, err := e.Snapshot(ctx)
	return snap.Pages, err
}

// GetPage returns one page or a NotFoundError.
func (e *Engine) GetPage(ctx context.Context, id string) (Page, error) {
	doc, err := e.cache.Load(ctx)
	if err != nil {
		return Page{}, err
	}
	p, ok := doc.PageByID(id)
	if !ok {
		return Page{}, pageNotFound(id)
	}
	return p, nil
}

// Document returns the full stored document.
func (e *Engine) Document(ctx context.Context) (Document, error) {
	return e.cache.Load(ctx)
}

// CreatePage adds a page and places it in the menu tree.
func (e *Engine) CreatePage(ctx context.Context, in PageInput) (Page, error) {
	var out Page
	err := e.mutate(ctx, "create page", func(d *Document) (bool, error) {
		p, err := d.AddPage(in, e.now())
		out = p
		return err == nil, err
	})
	if err != nil {
		return Page{}, err
	}
	e.log.Info("page created", logger.String("id", out.ID), logger.String("parent_id", out.ParentID))
	return out, nil
}

// UpdatePage merges patch into page id.
func (e *Engine) UpdatePage(ctx context.Context, id string, patch PagePatch) (Page, error) {
	var out Page
	err := e.mutate(ctx, "update page", func(d *Document) (bool, error) {
		p, err := d.UpdatePage(id, patch)
		out = p
		return err == nil, err
	})
	if err != nil {
		return Page{}, err
	}
	e.log.Info("page updated", logger.String("id", id))
	return out, nil
}

// DeletePage removes page id. A missing page is reported as false, not as
// an error, and causes no write.
func (e *Engine) DeletePage(ctx context.Context, id string) (bool, error) {
	var found bool
	err := e.mutate(ctx, "delete page", func(d *Document) (bool, error) {
		found = d.RemovePage(id)
		return found, nil
	})
	if err != nil {
		return false, err
	}
	if found {
		e.log.Info("page deleted", logger.String("id", id))
	}
	return found, nil
}

// CreateMenu adds a menu node.
func (e *Engine) CreateMenu(ctx context.Context, in MenuInput) (MenuNode, error) {
	var out MenuNode
	err := e.mutate(ctx, "create menu", func(d *Document) (bool, error) {
		m, err := d.AddMenu(in)
		out = m
		return err == nil, err
	})
	if err != nil {
		return MenuNode{}, err
	}
	e.log.Info("menu created", logger.String("id", out.ID), logger.String("type", string(out.Type)))
	return out, nil
}

// UpdateMenu merges patch into menu id.
func (e *Engine) UpdateMenu(ctx context.Context, id string, patch MenuPatch) (MenuNode, error) {
	var out MenuNode
	err := e.mutate(ctx, "update menu", func(d *Document) (bool, error) {
		m, err := d.UpdateMenu(id, patch)
		out = m
		return err == nil, err
	})
	if err != nil {
		return MenuNode{}, err
	}
	e.log.Info("menu updated", logger.String("id", id))
	return out, nil
}

// DeleteMenu removes menu id and cascades to its pages.
func (e *Engine) DeleteMenu(ctx context.Context, id string) (bool, error) {
	var found bool
	err := e.mutate(ctx, "delete menu", func(d *Document) (bool, error) {
		found = d.RemoveMenu(id)
		return found, nil
	})
	if err != nil {
		return false, err
	}
	if found {
		e.log.Info("menu deleted", logger.String("id", id))
	}
	return found, nil
}

// Replace overwrites the stored document, as used by import.
func (e *Engine) Replace(ctx context.Context, doc Document) error {
	if doc.Menus == nil || doc.Pages == nil {
		return invalid("", "document requires menus and pages")
	}
	if err := e.cache.Replace(ctx, doc); err != nil {
		e.log.Error("document replace failed", logger.Error(err))
		return err
	}
	e.log.Info("document replaced", logger.Int("menus", len(doc.Menus)), logger.Int("pages", len(doc.Pages)))
	return nil
}

// Inspect reports invariant violations in the stored document.
func (e *Engine) Inspect(ctx context.Context) (Report, error) {
	doc, err := e.cache.Refresh(ctx)
	if err != nil {
		return Report{}, err
	}
	return Inspect(doc), nil
}

// Repair fixes what Repair can fix and writes the result unless dryRun is
// set or nothing changed.
func (e *Engine) Repair(ctx context.Context, dryRun bool) (Report, bool, error) {
	var report Report
	var changed bool
	err := e.mutate(ctx, "repair document", func(d *Document) (bool, error) {
		report, changed = Repair(d)
		return changed && !dryRun, nil
	})
	if err != nil {
		return Report{}, false, err
	}
	return report, changed, nil
}

// mutate runs fn against a freshly loaded document and persists the result
// when fn asks for it. A failed load aborts before fn runs, so an empty
// fallback can never overwrite real data.
func (e *Engine) mutate(ctx context.Context, op string, fn func(*Document) (bool, error)) error {
	doc, err := e.cache.Refresh(ctx)
	if err != nil {
		e.log.Error(op+" aborted: document unavailable", logger.Error(err))
		return err
	}
	write, err := fn(&doc)
	if err != nil || !write {
		return err
	}
	if err := e.cache.Replace(ctx, doc); err != nil {
		e.log.Error(op+" failed", logger.Error(err))
		return err
	}
	return nil
}
