package nav

import (
	"net/url"
	"strings"

	"onfawiki/internal/wiki"
)

// AdminToken is the fragment reserved for the admin dashboard.
const AdminToken = "admin"

// EncodeFragment escapes a page ID for use as an address fragment.
func EncodeFragment(id string) string {
	return url.PathEscape(id)
}

// DecodeFragment strips a leading '#' and unescapes the fragment. When the
// fragment is not valid escaping the raw text is returned.
func DecodeFragment(fragment string) string {
	raw := strings.TrimPrefix(fragment, "#")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ResolveFragment finds the page a fragment names, trying the decoded form
// before the raw one.
func ResolveFragment(snap wiki.Snapshot, fragment string) (wiki.Page, bool) {
	raw := strings.TrimPrefix(fragment, "#")
	if raw == "" {
		return wiki.Page{}, false
	}
	if p, ok := snap.Page(DecodeFragment(raw)); ok {
		return p, true
	}
	return snap.Page(raw)
}

// FirstNavigablePage picks the page shown when no fragment is given: the
// first child of the first menu when it is a parent, the first menu's own
// page when it is single, and otherwise the first stored page.
func FirstNavigablePage(snap wiki.Snapshot) (wiki.Page, bool) {
	if len(snap.Pages) == 0 {
		return wiki.Page{}, false
	}
	if len(snap.Menus) > 0 {
		first := snap.Menus[0]
		if first.IsParent() && len(first.Children) > 0 {
			if p, ok := snap.Page(first.Children[0].ID); ok {
				return p, true
			}
		} else if first.Type == wiki.MenuSingle {
			if p, ok := snap.Page(first.ID); ok {
				return p, true
			}
		}
	}
	return snap.Pages[0], true
}
