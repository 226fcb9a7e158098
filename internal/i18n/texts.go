// Package i18n builds and applies translation tables for wiki content. The
// source language is Vietnamese; other languages are looked up by key and
// fall back to the source text.
package i18n

import (
	"strings"

	"golang.org/x/net/html"

	"onfawiki/internal/wiki"
)

// SourceLanguage is the language documents are authored in.
const SourceLanguage = "vi"

// Table maps translation keys to text.
type Table map[string]string

// MenuKey names a menu or child title.
func MenuKey(id string) string { return "menu_" + id }

// TitleKey names a page title.
func TitleKey(id string) string { return "page_" + id + "_title" }

// ContentKey names the plain text of a page body.
func ContentKey(id string) string { return "page_" + id + "_content" }

// ContentHTMLKey names a translated page body with markup preserved.
func ContentHTMLKey(id string) string { return "page_" + id + "_content_html" }

// UIStrings are the interface labels in the source language.
var UIStrings = Table{
	"ui_admin":              "Admin",
	"ui_search":             "Tìm",
	"ui_search_placeholder": "Tìm kiếm",
	"ui_language":           "Ngôn ngữ",
	"ui_related_articles":   "Bài viết liên quan",
	"ui_empty_select_page":  "Chọn một trang để xem nội dung",
	"ui_empty_select_menu":  "Vui lòng chọn một mục từ menu bên trái để xem nội dung",
	"ui_previous":           "Trước",
	"ui_next":               "Tiếp",
	"ui_login":              "Đăng nhập",
	"ui_logout":             "Đăng xuất",
	"ui_no_results":         "Không tìm thấy kết quả",
	"ui_store_unavailable":  "Không thể tải dữ liệu",
}

// BuildTable collects every translatable string of doc plus the UI labels.
func BuildTable(doc wiki.Document) Table {
	t := make(Table, len(UIStrings)+len(doc.Menus)+2*len(doc.Pages))
	for k, v := range UIStrings {
		t[k] = v
	}
	for _, m := range doc.Menus {
		t[MenuKey(m.ID)] = m.Title
		for _, c := range m.Children {
			t[MenuKey(c.ID)] = c.Title
		}
	}
	for _, p := range doc.Pages {
		t[TitleKey(p.ID)] = p.Title
		if text := PlainText(p.Content); text != "" {
			t[ContentKey(p.ID)] = text
		}
	}
	return t
}

// ExtractTexts returns the visible text runs of an HTML fragment in document
// order, skipping script and style bodies.
func ExtractTexts(fragment string) []string {
	var out []string
	z := html.NewTokenizer(strings.NewReader(fragment))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return out
		case html.StartTagToken:
			name, _ := z.TagName()
			if isRaw(string(name)) {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if isRaw(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if text := strings.Join(strings.Fields(string(z.Text())), " "); text != "" {
				out = append(out, text)
			}
		}
	}
}

// PlainText flattens an HTML fragment to space separated text.
func PlainText(fragment string) string {
	return strings.Join(ExtractTexts(fragment), " ")
}

func isRaw(tag string) bool {
	return tag == "script" || tag == "style"
}
