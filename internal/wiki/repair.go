package wiki

import "slices"

// ChildRef names one entry in a parent menu's children.
type ChildRef struct {
	ParentID string `json:"parentId"`
	ChildID  string `json:"childId"`
}

// Report summarizes how far a document is from satisfying the tree
// invariants.
type Report struct {
	Menus            int        `json:"menus"`
	Pages            int        `json:"pages"`
	SynthesizedMenus []string   `json:"synthesizedMenus"`
	OrphanChildren   []ChildRef `json:"orphanChildren"`
	UnlinkedPages    []ChildRef `json:"unlinkedPages"`
	StaleTitles      []ChildRef `json:"staleTitles"`
	DanglingParents  []string   `json:"danglingParents"`
	DuplicatePageIDs []string   `json:"duplicatePageIds"`
	DuplicateMenuIDs []string   `json:"duplicateMenuIds"`
}

// Healthy reports whether the document needs no repair.
func (r Report) Healthy() bool {
	return len(r.OrphanChildren) == 0 &&
		len(r.UnlinkedPages) == 0 &&
		len(r.StaleTitles) == 0 &&
		len(r.DanglingParents) == 0 &&
		len(r.DuplicatePageIDs) == 0 &&
		len(r.DuplicateMenuIDs) == 0
}

// Inspect checks d against the tree invariants without changing it.
func Inspect(d Document) Report {
	r := Report{Menus: len(d.Menus), Pages: len(d.Pages)}

	pages := make(map[string]Page, len(d.Pages))
	for _, p := range d.Pages {
		if _, dup := pages[p.ID]; dup {
			r.DuplicatePageIDs = append(r.DuplicatePageIDs, p.ID)
		}
		pages[p.ID] = p
	}
	menus := make(map[string]struct{}, len(d.Menus))
	for _, m := range d.Menus {
		if _, dup := menus[m.ID]; dup {
			r.DuplicateMenuIDs = append(r.DuplicateMenuIDs, m.ID)
		}
		menus[m.ID] = struct{}{}
	}

	for _, m := range d.Menus {
		if !m.IsParent() {
			continue
		}
		for _, c := range m.Children {
			p, ok := pages[c.ID]
			switch {
			case !ok || p.ParentID != m.ID:
				r.OrphanChildren = append(r.OrphanChildren, ChildRef{ParentID: m.ID, ChildID: c.ID})
			case p.Title != c.Title:
				r.StaleTitles = append(r.StaleTitles, ChildRef{ParentID: m.ID, ChildID: c.ID})
			}
		}
	}

	for _, p := range d.Pages {
		parent := d.parentMenu(p.ParentID)
		switch {
		case p.ParentID != "" && parent == nil:
			r.DanglingParents = append(r.DanglingParents, p.ID)
		case parent != nil && !slices.ContainsFunc(parent.Children, func(c MenuChild) bool { return c.ID == p.ID }):
			r.UnlinkedPages = append(r.UnlinkedPages, ChildRef{ParentID: parent.ID, ChildID: p.ID})
		}
		if parent == nil {
			if _, ok := menus[p.ID]; !ok {
				r.SynthesizedMenus = append(r.SynthesizedMenus, p.ID)
			}
		}
	}
	return r
}

// Repair prunes orphan child entries, re-mirrors child titles, and links
// parented pages missing from their parent. It returns the report taken
// before repairing and whether d changed. Duplicate IDs and dangling parents
// are reported but left for an operator.
func Repair(d *Document) (Report, bool) {
	before := Inspect(*d)
	changed := false

	titles := make(map[string]Page, len(d.Pages))
	for _, p := range d.Pages {
		titles[p.ID] = p
	}

	for i := range d.Menus {
		m := &d.Menus[i]
		if !m.IsParent() {
			continue
		}
		seen := make(map[string]struct{}, len(m.Children))
		kept := m.Children[:0]
		for _, c := range m.Children {
			p, ok := titles[c.ID]
			if _, dup := seen[c.ID]; dup || !ok || p.ParentID != m.ID {
				changed = true
				continue
			}
			seen[c.ID] = struct{}{}
			if c.Title != p.Title || c.ParentID != m.ID {
				c.Title = p.Title
				c.ParentID = m.ID
				changed = true
			}
			kept = append(kept, c)
		}
		m.Children = kept
	}

	for _, ref := range before.UnlinkedPages {
		parent := d.parentMenu(ref.ParentID)
		if parent == nil {
			continue
		}
		parent.Children = append(parent.Children, MenuChild{ID: ref.ChildID, Title: titles[ref.ChildID].Title, ParentID: parent.ID})
		changed = true
	}
	return before, changed
}
