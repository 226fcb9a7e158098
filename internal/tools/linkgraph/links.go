package linkgraph

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// TargetFromHref returns the page ID an internal href points at. Internal
// links are fragment links ("#id") and wiki paths ("/wiki/id").
func TargetFromHref(href string) (string, bool) {
	href = strings.TrimSpace(href)
	var raw string
	switch {
	case strings.HasPrefix(href, "#"):
		raw = href[1:]
	case strings.HasPrefix(href, "/wiki/"):
		raw = strings.TrimPrefix(href, "/wiki/")
		if i := strings.IndexAny(raw, "?#"); i >= 0 {
			raw = raw[:i]
		}
	default:
		return "", false
	}
	if raw == "" || raw == "admin" {
		return "", false
	}
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return raw, true
}

// ExtractLinks lists the distinct internal link targets of an HTML fragment
// in document order.
func ExtractLinks(content string) []string {
	var out []string
	seen := make(map[string]struct{})
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if string(name) != "a" || !hasAttr {
			continue
		}
		for {
			key, val, more := z.TagAttr()
			if string(key) == "href" {
				if id, ok := TargetFromHref(string(val)); ok {
					if _, dup := seen[id]; !dup {
						seen[id] = struct{}{}
						out = append(out, id)
					}
				}
			}
			if !more {
				break
			}
		}
	}
}
