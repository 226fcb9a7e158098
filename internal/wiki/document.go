package wiki

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for publishDate.
const DateLayout = "2006-01-02"

// PageInput carries the fields accepted when creating a page.
type PageInput struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	PublishDate string `json:"publishDate"`
	ParentID    string `json:"parentId"`
}

// PagePatch lists the page fields an update changes. A nil field is left
// alone; a ParentID pointing at "" detaches the page from its parent.
type PagePatch struct {
	Title       *string
	Content     *string
	PublishDate *string
	ParentID    *string
}

// UnmarshalJSON keeps "parentId": null distinct from an absent parentId.
func (p *PagePatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fields := []struct {
		key string
		dst **string
	}{
		{"title", &p.Title},
		{"content", &p.Content},
		{"publishDate", &p.PublishDate},
		{"parentId", &p.ParentID},
	}
	for _, f := range fields {
		msg, ok := raw[f.key]
		if !ok {
			continue
		}
		var v *string
		if err := json.Unmarshal(msg, &v); err != nil {
			return invalid(f.key, "must be a string")
		}
		if v == nil {
			if f.key != "parentId" {
				continue
			}
			v = new(string)
		}
		*f.dst = v
	}
	return nil
}

// MenuInput carries the fields accepted when creating a menu.
type MenuInput struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Icon     Icon        `json:"icon"`
	Type     MenuType    `json:"type"`
	Children []MenuChild `json:"children"`
}

// MenuPatch lists the menu fields an update changes.
type MenuPatch struct {
	Title    *string      `json:"title"`
	Icon     *Icon        `json:"icon"`
	Type     *MenuType    `json:"type"`
	Children *[]MenuChild `json:"children"`
}

func (d *Document) pageIndex(id string) int {
	return slices.IndexFunc(d.Pages, func(p Page) bool { return p.ID == id })
}

func (d *Document) menuIndex(id string) int {
	return slices.IndexFunc(d.Menus, func(m MenuNode) bool { return m.ID == id })
}

// parentMenu returns the parent-type menu with the given ID, or nil.
func (d *Document) parentMenu(id string) *MenuNode {
	if id == "" {
		return nil
	}
	i := d.menuIndex(id)
	if i < 0 || !d.Menus[i].IsParent() {
		return nil
	}
	return &d.Menus[i]
}

// topLevel reports whether p is placed as its own single menu rather than
// as a child: it has no parent, or its parent does not resolve.
func (d *Document) topLevel(p Page) bool {
	return d.parentMenu(p.ParentID) == nil
}

// ListMenus returns stored menus followed by single menus synthesized for
// top-level pages that have no menu entry. The document is not modified.
func (d *Document) ListMenus() []MenuNode {
	out := make([]MenuNode, 0, len(d.Menus))
	seen := make(map[string]struct{}, len(d.Menus))
	for _, m := range d.Menus {
		m.Children = slices.Clone(m.Children)
		if m.IsParent() && m.Children == nil {
			m.Children = []MenuChild{}
		}
		out = append(out, m)
		seen[m.ID] = struct{}{}
	}
	for _, p := range d.Pages {
		if !d.topLevel(p) {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		out = append(out, MenuNode{ID: p.ID, Title: p.Title, Icon: BuiltinIcon(DefaultIcon), Type: MenuSingle})
		seen[p.ID] = struct{}{}
	}
	return out
}

// Snapshot returns the read model for d.
func (d *Document) Snapshot() Snapshot {
	pages := slices.Clone(d.Pages)
	if pages == nil {
		pages = []Page{}
	}
	return Snapshot{Menus: d.ListMenus(), Pages: pages}
}

// PageByID returns the page with the given ID.
func (d *Document) PageByID(id string) (Page, bool) {
	i := d.pageIndex(id)
	if i < 0 {
		return Page{}, false
	}
	return d.Pages[i], true
}

// AddPage appends a page and links it into the menu tree.
func (d *Document) AddPage(in PageInput, today time.Time) (Page, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Page{}, invalid("title", "must not be empty")
	}
	id, err := assignID(in.ID, title, "page")
	if err != nil {
		return Page{}, err
	}
	if d.pageIndex(id) >= 0 {
		return Page{}, invalid("id", "page "+id+" already exists")
	}
	if d.parentMenu(id) != nil {
		return Page{}, invalid("id", id+" is already used by a parent menu")
	}
	date := in.PublishDate
	if date == "" {
		date = today.Format(DateLayout)
	} else if err := validateDate(date); err != nil {
		return Page{}, err
	}

	page := Page{
		ID:          id,
		Title:       title,
		Content:     in.Content,
		PublishDate: date,
		ParentID:    strings.TrimSpace(in.ParentID),
	}
	d.Pages = append(d.Pages, page)

	if parent := d.parentMenu(page.ParentID); parent != nil {
		if !slices.ContainsFunc(parent.Children, func(c MenuChild) bool { return c.ID == id }) {
			parent.Children = append(parent.Children, MenuChild{ID: id, Title: title, ParentID: parent.ID})
		}
	} else if d.menuIndex(id) < 0 {
		d.Menus = append(d.Menus, MenuNode{ID: id, Title: title, Icon: BuiltinIcon(DefaultIcon), Type: MenuSingle})
	}
	return page, nil
}

// UpdatePage merges patch into the page and keeps its menu placement in step.
func (d *Document) UpdatePage(id string, patch PagePatch) (Page, error) {
	i := d.pageIndex(id)
	if i < 0 {
		return Page{}, pageNotFound(id)
	}
	old := d.Pages[i]
	wasTopLevel := d.topLevel(old)

	next := old
	if patch.Title != nil {
		next.Title = strings.TrimSpace(*patch.Title)
		if next.Title == "" {
			return Page{}, invalid("title", "must not be empty")
		}
	}
	if patch.Content != nil {
		next.Content = *patch.Content
	}
	if patch.PublishDate != nil {
		if err := validateDate(*patch.PublishDate); err != nil {
			return Page{}, err
		}
		next.PublishDate = *patch.PublishDate
	}
	if patch.ParentID != nil {
		next.ParentID = strings.TrimSpace(*patch.ParentID)
	}
	next.ID = id
	d.Pages[i] = next

	if old.ParentID != "" && old.ParentID != next.ParentID {
		if oldParent := d.parentMenu(old.ParentID); oldParent != nil {
			oldParent.Children = removeChild(oldParent.Children, id)
		}
	}

	if parent := d.parentMenu(next.ParentID); parent != nil {
		j := slices.IndexFunc(parent.Children, func(c MenuChild) bool { return c.ID == id })
		if j >= 0 {
			parent.Children[j].Title = next.Title
		} else {
			parent.Children = append(parent.Children, MenuChild{ID: id, Title: next.Title, ParentID: parent.ID})
		}
		if wasTopLevel {
			d.removeSingleMenu(id)
		}
		return next, nil
	}

	if j := d.menuIndex(id); j < 0 {
		d.Menus = append(d.Menus, MenuNode{ID: id, Title: next.Title, Icon: BuiltinIcon(DefaultIcon), Type: MenuSingle})
	} else if d.Menus[j].Type == MenuSingle {
		d.Menus[j].Title = next.Title
	}
	return next, nil
}

// RemovePage deletes a page and its menu placement. It reports whether the
// page existed.
func (d *Document) RemovePage(id string) bool {
	i := d.pageIndex(id)
	if i < 0 {
		return false
	}
	page := d.Pages[i]
	d.Pages = slices.Delete(d.Pages, i, i+1)

	if parent := d.parentMenu(page.ParentID); parent != nil {
		parent.Children = removeChild(parent.Children, id)
	} else {
		d.removeSingleMenu(id)
	}
	return true
}

// AddMenu appends a menu node.
func (d *Document) AddMenu(in MenuInput) (MenuNode, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return MenuNode{}, invalid("title", "must not be empty")
	}
	id, err := assignID(in.ID, title, "menu")
	if err != nil {
		return MenuNode{}, err
	}
	if d.menuIndex(id) >= 0 {
		return MenuNode{}, invalid("id", "menu "+id+" already exists")
	}
	typ := in.Type
	if typ == "" {
		typ = MenuSingle
	}
	if !typ.Valid() {
		return MenuNode{}, invalid("type", "must be single or parent")
	}
	if typ == MenuSingle && len(in.Children) > 0 {
		return MenuNode{}, invalid("children", "only parent menus have children")
	}
	if typ == MenuParent && d.pageIndex(id) >= 0 {
		return MenuNode{}, invalid("id", id+" is already used by a page")
	}
	icon := in.Icon
	if icon.Kind == IconNone {
		icon = BuiltinIcon(DefaultIcon)
	}

	menu := MenuNode{ID: id, Title: title, Icon: icon, Type: typ}
	if typ == MenuParent {
		menu.Children = adoptChildren(in.Children, id)
	}
	d.Menus = append(d.Menus, menu)
	return menu, nil
}

// UpdateMenu merges patch into a stored menu. Titles of pages are never
// touched from here; mirroring only flows from pages to menus.
func (d *Document) UpdateMenu(id string, patch MenuPatch) (MenuNode, error) {
	i := d.menuIndex(id)
	if i < 0 {
		return MenuNode{}, menuNotFound(id)
	}
	next := d.Menus[i]
	if patch.Title != nil {
		next.Title = strings.TrimSpace(*patch.Title)
		if next.Title == "" {
			return MenuNode{}, invalid("title", "must not be empty")
		}
	}
	if patch.Icon != nil {
		next.Icon = *patch.Icon
	}
	if patch.Type != nil {
		if !patch.Type.Valid() {
			return MenuNode{}, invalid("type", "must be single or parent")
		}
		if *patch.Type == MenuParent && d.pageIndex(id) >= 0 {
			return MenuNode{}, invalid("type", id+" is a page and cannot become a parent menu")
		}
		next.Type = *patch.Type
	}
	if patch.Children != nil {
		next.Children = adoptChildren(*patch.Children, id)
	}
	if next.Type == MenuSingle {
		if len(next.Children) > 0 {
			return MenuNode{}, invalid("children", "only parent menus have children")
		}
		next.Children = nil
	} else if next.Children == nil {
		next.Children = []MenuChild{}
	}
	next.ID = id
	d.Menus[i] = next
	return next, nil
}

// RemoveMenu deletes a menu and cascades to every page whose parentId or id
// equals the menu ID. It reports whether anything was removed.
func (d *Document) RemoveMenu(id string) bool {
	removed := make(map[string]struct{})
	d.Pages = slices.DeleteFunc(d.Pages, func(p Page) bool {
		if p.ParentID == id || p.ID == id {
			removed[p.ID] = struct{}{}
			return true
		}
		return false
	})

	before := len(d.Menus)
	d.Menus = slices.DeleteFunc(d.Menus, func(m MenuNode) bool {
		if m.ID == id {
			return true
		}
		_, gone := removed[m.ID]
		return gone && m.Type == MenuSingle
	})
	menuRemoved := len(d.Menus) != before

	for i := range d.Menus {
		if !d.Menus[i].IsParent() {
			continue
		}
		d.Menus[i].Children = slices.DeleteFunc(d.Menus[i].Children, func(c MenuChild) bool {
			_, gone := removed[c.ID]
			return gone
		})
	}
	return menuRemoved || len(removed) > 0
}

func (d *Document) removeSingleMenu(id string) {
	d.Menus = slices.DeleteFunc(d.Menus, func(m MenuNode) bool {
		return m.ID == id && m.Type == MenuSingle
	})
}

func removeChild(children []MenuChild, id string) []MenuChild {
	return slices.DeleteFunc(children, func(c MenuChild) bool { return c.ID == id })
}

func adoptChildren(children []MenuChild, parentID string) []MenuChild {
	out := make([]MenuChild, 0, len(children))
	for _, c := range children {
		c.ParentID = parentID
		out = append(out, c)
	}
	return out
}

func validateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return invalid("publishDate", "must be a YYYY-MM-DD date")
	}
	return nil
}

// DecodeDocument parses a full document, requiring both menus and pages to be
// present as arrays.
func DecodeDocument(data []byte) (Document, error) {
	var raw struct {
		Menus json.RawMessage `json:"menus"`
		Pages json.RawMessage `json:"pages"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, invalid("", "malformed document: "+err.Error())
	}
	if !isArray(raw.Menus) {
		return Document{}, invalid("menus", "must be an array")
	}
	if !isArray(raw.Pages) {
		return Document{}, invalid("pages", "must be an array")
	}

	doc := EmptyDocument()
	if err := json.Unmarshal(raw.Menus, &doc.Menus); err != nil {
		return Document{}, asValidation("menus", err)
	}
	if err := json.Unmarshal(raw.Pages, &doc.Pages); err != nil {
		return Document{}, asValidation("pages", err)
	}
	return doc, nil
}

func isArray(msg json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(msg), []byte("["))
}

func asValidation(field string, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return invalid(field, err.Error())
}
