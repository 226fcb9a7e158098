package app

import (
	"html"
	"net/url"
	"regexp"

	"onfawiki/internal/tools/linkgraph"
)

var doubleQuoteAnchor = regexp.MustCompile(`(?is)<a\b([^>]*?)\bhref="([^"]*)"([^>]*)>(.*?)</a>`)
var singleQuoteAnchor = regexp.MustCompile(`(?is)<a\b([^>]*?)\bhref='([^']*)'([^>]*)>(.*?)</a>`)

// decorateInternalLinks points fragment and wiki-path links at /wiki/<id>,
// appending query when set. Links whose target is not a page become a
// span.new-page-link so readers can tell they lead nowhere yet.
func decorateInternalLinks(content string, exists func(id string) bool, query string) string {
	rewrite := func(match string, re *regexp.Regexp, quote string) string {
		sub := re.FindStringSubmatch(match)
		if len(sub) != 5 {
			return match
		}
		pre, href, post, inner := sub[1], sub[2], sub[3], sub[4]
		id, ok := linkgraph.TargetFromHref(html.UnescapeString(href))
		if !ok {
			return match
		}
		target := wikiPath(id)
		if !exists(id) {
			return `<span class="new-page-link" data-href="` + html.EscapeString(target) + `">` + inner + `</span>`
		}
		if query != "" {
			target += "?" + query
		}
		return "<a" + pre + "href=" + quote + html.EscapeString(target) + quote + post + ">" + inner + "</a>"
	}

	content = doubleQuoteAnchor.ReplaceAllStringFunc(content, func(s string) string {
		return rewrite(s, doubleQuoteAnchor, `"`)
	})
	content = singleQuoteAnchor.ReplaceAllStringFunc(content, func(s string) string {
		return rewrite(s, singleQuoteAnchor, `'`)
	})
	return content
}

func wikiPath(id string) string {
	return "/wiki/" + url.PathEscape(id)
}
