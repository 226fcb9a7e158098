package nav

import (
	"strings"

	"onfawiki/internal/wiki"
)

// Hit is one search result. ParentID and ParentTitle are set for pages
// found as children of a parent menu.
type Hit struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Kind        string `json:"type"`
	MatchType   string `json:"matchType"`
	ParentID    string `json:"parentId,omitempty"`
	ParentTitle string `json:"parentTitle,omitempty"`
}

// Results holds the menus to keep in the sidebar and the flat hit list.
type Results struct {
	Menus []wiki.MenuNode `json:"menus"`
	Hits  []Hit           `json:"results"`
}

// Search matches query case-insensitively. Hits are pages matched by title or
// content, annotated with their parent menu when a child entry matches. Menus
// are kept when their title or a child title matches, with only the matching
// children. A blank query keeps every menu and yields no hits. The snapshot is
// not modified.
func Search(snap wiki.Snapshot, query string) Results {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Results{Menus: snap.Menus, Hits: []Hit{}}
	}
	match := func(s string) bool { return strings.Contains(strings.ToLower(s), q) }

	res := Results{Menus: []wiki.MenuNode{}, Hits: []Hit{}}
	seen := make(map[string]struct{})
	add := func(h Hit) {
		if _, dup := seen[h.ID]; dup {
			return
		}
		seen[h.ID] = struct{}{}
		res.Hits = append(res.Hits, h)
	}

	for _, p := range snap.Pages {
		switch {
		case match(p.Title):
			add(Hit{ID: p.ID, Title: p.Title, Kind: "page", MatchType: "title"})
		case match(p.Content):
			add(Hit{ID: p.ID, Title: p.Title, Kind: "page", MatchType: "content"})
		}
	}

	for _, m := range snap.Menus {
		var children []wiki.MenuChild
		for _, c := range m.Children {
			if !match(c.Title) {
				continue
			}
			children = append(children, c)
			// A child already found through its page still gets its parent annotation.
			if i := hitIndex(res.Hits, c.ID); i >= 0 {
				res.Hits[i].ParentID = m.ID
				res.Hits[i].ParentTitle = m.Title
				continue
			}
			add(Hit{ID: c.ID, Title: c.Title, Kind: "page", MatchType: "title", ParentID: m.ID, ParentTitle: m.Title})
		}
		if match(m.Title) || len(children) > 0 {
			kept := m
			kept.Children = append([]wiki.MenuChild{}, children...)
			res.Menus = append(res.Menus, kept)
		}
	}
	return res
}

func hitIndex(hits []Hit, id string) int {
	for i, h := range hits {
		if h.ID == id {
			return i
		}
	}
	return -1
}
