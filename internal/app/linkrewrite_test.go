package app

import (
	"strings"
	"testing"
)

func TestDecorateInternalLinksConvertsMissingAnchors(t *testing.T) {
	content := `<p><a href="#made-up">New</a> and <a class="x" href="/wiki/existing">Old</a></p>`
	exists := func(id string) bool { return id == "existing" }

	result := decorateInternalLinks(content, exists, "lang=en")

	if !contains(result, `<span class="new-page-link" data-href="/wiki/made-up">New</span>`) {
		t.Fatalf("missing link was not converted to span: %s", result)
	}
	if contains(result, `href="#made-up"`) {
		t.Fatalf("missing link anchor should not remain: %s", result)
	}
	if !contains(result, `<a class="x" href="/wiki/existing?lang=en">Old</a>`) {
		t.Fatalf("existing link did not retain anchor: %s", result)
	}
}

func TestDecorateInternalLinksRewritesFragments(t *testing.T) {
	content := `<a href='#x%C3%A1c-minh'>KYC</a>`
	exists := func(id string) bool { return id == "xác-minh" }

	result := decorateInternalLinks(content, exists, "")

	if !contains(result, `href='/wiki/x%C3%A1c-minh'`) {
		t.Fatalf("fragment link not rewritten: %s", result)
	}
}

func TestDecorateInternalLinksLeavesExternalLinks(t *testing.T) {
	content := `<a href="https://example.com/wiki/x">out</a> <a href="#admin">admin</a>`

	result := decorateInternalLinks(content, func(string) bool { return false }, "")

	if result != content {
		t.Fatalf("external and admin links should be untouched, got %s", result)
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
