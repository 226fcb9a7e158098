package wiki

import (
	"encoding/json"
	"fmt"
	"slices"
)

// MenuType distinguishes leaf menus from containers.
type MenuType string

const (
	MenuSingle MenuType = "single"
	MenuParent MenuType = "parent"
)

// Valid reports whether t is a known menu type.
func (t MenuType) Valid() bool {
	return t == MenuSingle || t == MenuParent
}

// MenuChild mirrors a parented page inside its parent's menu.
type MenuChild struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ParentID string `json:"parentId"`
}

// MenuNode is a navigation entry. A single node points at the page sharing its
// ID; a parent node only groups children.
type MenuNode struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Icon     Icon        `json:"icon"`
	Type     MenuType    `json:"type"`
	Children []MenuChild `json:"children,omitempty"`
}

type menuNodeJSON struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Icon     Icon        `json:"icon"`
	Type     MenuType    `json:"type"`
	Children []MenuChild `json:"children,omitempty"`
}

type parentMenuJSON struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Icon     Icon        `json:"icon"`
	Type     MenuType    `json:"type"`
	Children []MenuChild `json:"children"`
}

// MarshalJSON always emits children for parent menus so empty folders survive
// a round trip as "children": [].
func (m MenuNode) MarshalJSON() ([]byte, error) {
	if m.Type == MenuParent {
		out := parentMenuJSON(m)
		if out.Children == nil {
			out.Children = []MenuChild{}
		}
		return json.Marshal(out)
	}
	out := menuNodeJSON(m)
	out.Children = nil
	return json.Marshal(out)
}

// UnmarshalJSON defaults a missing type to single and normalizes children.
func (m *MenuNode) UnmarshalJSON(data []byte) error {
	var in menuNodeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Type == "" {
		in.Type = MenuSingle
	}
	if !in.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown menu type %q", in.Type)}
	}
	if in.Type == MenuParent && in.Children == nil {
		in.Children = []MenuChild{}
	}
	if in.Type == MenuSingle {
		in.Children = nil
	}
	*m = MenuNode(in)
	return nil
}

// IsParent reports whether the node is a container.
func (m MenuNode) IsParent() bool {
	return m.Type == MenuParent
}

// Page is a content record addressed by ID.
type Page struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	PublishDate string `json:"publishDate"`
	ParentID    string `json:"parentId,omitempty"`
}

// Document is the single persisted aggregate.
type Document struct {
	Menus []MenuNode `json:"menus"`
	Pages []Page     `json:"pages"`
}

// EmptyDocument returns the bootstrap document with non-nil slices.
func EmptyDocument() Document {
	return Document{Menus: []MenuNode{}, Pages: []Page{}}
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (d Document) Clone() Document {
	out := Document{
		Menus: make([]MenuNode, len(d.Menus)),
		Pages: slices.Clone(d.Pages),
	}
	if out.Pages == nil {
		out.Pages = []Page{}
	}
	for i, m := range d.Menus {
		m.Children = slices.Clone(m.Children)
		if m.IsParent() && m.Children == nil {
			m.Children = []MenuChild{}
		}
		out.Menus[i] = m
	}
	return out
}

// Snapshot is the read model handed to navigation: stored menus plus
// synthesized single menus, and pages verbatim.
type Snapshot struct {
	Menus []MenuNode
	Pages []Page
}

// Page looks up a page by ID.
func (s Snapshot) Page(id string) (Page, bool) {
	for _, p := range s.Pages {
		if p.ID == id {
			return p, true
		}
	}
	return Page{}, false
}

// Menu looks up a menu by ID.
func (s Snapshot) Menu(id string) (MenuNode, bool) {
	for _, m := range s.Menus {
		if m.ID == id {
			return m, true
		}
	}
	return MenuNode{}, false
}

// Empty reports whether the snapshot holds no data at all.
func (s Snapshot) Empty() bool {
	return len(s.Menus) == 0 && len(s.Pages) == 0
}
