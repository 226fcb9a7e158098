package linkgraph

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"onfawiki/internal/wiki"
)

func sampleDocument() wiki.Document {
	return wiki.Document{
		Menus: []wiki.MenuNode{},
		Pages: []wiki.Page{
			{ID: "verify", Title: "Verify", ParentID: "account", Content: `<p>See <a href="#2fa">2FA</a> and <a href="/wiki/fees?x=1">fees</a> and <a href="#verify">self</a></p>`},
			{ID: "2fa", Title: "2FA", ParentID: "account", Content: `<a href="#x%C3%A1c-minh">vi</a><a href="#ghost">gone</a>`},
			{ID: "fees", Title: "Fees", Content: `<a href="https://example.com">out</a>`},
			{ID: "xác-minh", Title: "Xác minh", ParentID: "account"},
			{ID: "alone", Title: "Alone"},
		},
	}
}

func TestTargetFromHref(t *testing.T) {
	tests := map[string]string{
		"#2fa":                "2fa",
		"/wiki/fees?open=x":   "fees",
		"#x%C3%A1c-minh":      "xác-minh",
		"/wiki/a%20b#section": "a b",
	}
	for href, want := range tests {
		got, ok := TargetFromHref(href)
		if !ok || got != want {
			t.Fatalf("TargetFromHref(%q) = %q, %v; want %q", href, got, ok, want)
		}
	}
	for _, href := range []string{"https://example.com", "#", "#admin", "mailto:x@y", "/search?q=x"} {
		if _, ok := TargetFromHref(href); ok {
			t.Fatalf("TargetFromHref(%q) should not be internal", href)
		}
	}
}

func TestExtractLinksDeduplicates(t *testing.T) {
	got := ExtractLinks(`<a href="#a">1</a><a class="x" href="/wiki/a">2</a><a href="#b">3</a><a name="n">4</a>`)
	if want := []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractLinks() = %v, want %v", got, want)
	}
}

func TestBuildCountsLinksAndDangling(t *testing.T) {
	g := Build(sampleDocument())

	if g.Totals.Pages != 5 || g.Totals.Links != 3 || g.Totals.Dangling != 1 {
		t.Fatalf("unexpected totals: %+v", g.Totals)
	}
	if g.Dangling[0] != (Edge{Source: "2fa", Target: "ghost"}) {
		t.Fatalf("unexpected dangling link: %+v", g.Dangling)
	}
	if g.Nodes[0].Outbound != 2 || g.Nodes[1].Inbound != 1 {
		t.Fatalf("unexpected degrees: %+v", g.Nodes[:2])
	}
}

func TestRelated(t *testing.T) {
	g := Build(sampleDocument())

	got := g.Related("verify", 3)
	want := []string{"2fa", "fees", "xác-minh"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Related() = %v, want %v", got, want)
	}
	if got := g.Related("alone", 3); len(got) != 0 {
		t.Fatalf("Related(alone) = %v, want none", got)
	}
	if got := g.Related("missing", 3); got != nil {
		t.Fatalf("Related(missing) = %v, want nil", got)
	}
}

func TestWrite(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports", "links.json")
	if err := Write(out, Build(sampleDocument())); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var g Graph
	if err := json.Unmarshal(raw, &g); err != nil {
		t.Fatalf("output is not a graph: %v", err)
	}
	if g.Totals.Pages != 5 {
		t.Fatalf("round-tripped totals = %+v", g.Totals)
	}
}
