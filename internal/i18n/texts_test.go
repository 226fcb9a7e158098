package i18n

import (
	"reflect"
	"testing"

	"onfawiki/internal/wiki"
)

func TestExtractTexts(t *testing.T) {
	html := `<h2>Bước 1</h2><p>Mở   ứng dụng <strong>ONFA</strong></p><script>var x = 1;</script><style>p{}</style><p> </p>`
	got := ExtractTexts(html)
	want := []string{"Bước 1", "Mở ứng dụng", "ONFA"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractTexts() = %#v, want %#v", got, want)
	}
	if PlainText(html) != "Bước 1 Mở ứng dụng ONFA" {
		t.Fatalf("PlainText() = %q", PlainText(html))
	}
}

func TestBuildTableKeys(t *testing.T) {
	doc := wiki.Document{
		Menus: []wiki.MenuNode{
			{ID: "tai-khoan", Title: "Tài khoản", Type: wiki.MenuParent, Children: []wiki.MenuChild{
				{ID: "xac-minh", Title: "Xác minh", ParentID: "tai-khoan"},
			}},
		},
		Pages: []wiki.Page{
			{ID: "xac-minh", Title: "Xác minh", Content: "<p>Tải ảnh</p>", ParentID: "tai-khoan"},
			{ID: "trong", Title: "Trống", Content: "<p></p>"},
		},
	}
	table := BuildTable(doc)

	checks := map[string]string{
		"menu_tai-khoan":        "Tài khoản",
		"menu_xac-minh":         "Xác minh",
		"page_xac-minh_title":   "Xác minh",
		"page_xac-minh_content": "Tải ảnh",
		"ui_search":             "Tìm",
	}
	for key, want := range checks {
		if table[key] != want {
			t.Fatalf("table[%q] = %q, want %q", key, table[key], want)
		}
	}
	if _, ok := table["page_trong_content"]; ok {
		t.Fatalf("empty bodies should not produce a content key")
	}
}
