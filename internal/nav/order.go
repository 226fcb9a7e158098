package nav

import "onfawiki/internal/wiki"

// ReadingOrder lists pages in sidebar order: children of parent menus, then
// the pages of single menus, in menu order, followed by any page no menu
// reaches.
func ReadingOrder(snap wiki.Snapshot) []wiki.Page {
	out := make([]wiki.Page, 0, len(snap.Pages))
	added := make(map[string]struct{}, len(snap.Pages))
	push := func(id string) {
		if _, ok := added[id]; ok {
			return
		}
		if p, ok := snap.Page(id); ok {
			out = append(out, p)
			added[id] = struct{}{}
		}
	}

	for _, m := range snap.Menus {
		if m.IsParent() {
			for _, c := range m.Children {
				push(c.ID)
			}
			continue
		}
		push(m.ID)
	}
	for _, p := range snap.Pages {
		push(p.ID)
	}
	return out
}

// Neighbors returns the pages before and after id in reading order.
func Neighbors(snap wiki.Snapshot, id string) (prev, next *wiki.Page) {
	order := ReadingOrder(snap)
	for i := range order {
		if order[i].ID != id {
			continue
		}
		if i > 0 {
			prev = &order[i-1]
		}
		if i+1 < len(order) {
			next = &order[i+1]
		}
		return prev, next
	}
	return nil, nil
}
