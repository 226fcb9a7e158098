package app

import (
	"errors"
	"html"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"onfawiki/internal/i18n"
	"onfawiki/internal/logger"
	"onfawiki/internal/nav"
	"onfawiki/internal/tools/linkgraph"
	"onfawiki/internal/wiki"
)

const relatedLimit = 5

type linkView struct {
	ID     string
	Title  string
	Href   string
	Active bool
}

type menuView struct {
	ID       string
	Title    string
	Icon     wiki.Icon
	Href     string
	Parent   bool
	Expanded bool
	Active   bool
	Children []linkView
}

type hitView struct {
	nav.Hit
	Href string
}

// view is the data every HTML template renders from.
type view struct {
	Lang      string
	Languages []string
	State     nav.State
	Menus     []menuView
	Page      *wiki.Page
	Content   template.HTML
	Prev      *linkView
	Next      *linkView
	Related   []linkView
	Query     string
	Hits      []hitView
	LoadError string
	Admin     *adminView

	catalog *i18n.Catalog
}

// T returns the interface label for key in the view language.
func (v *view) T(key string) string {
	return v.catalog.UI(v.Lang, key)
}

// LangHref returns the current path with lang switched.
func (v *view) LangHref(lang string) string {
	q := url.Values{}
	if v.State.ExpandedMenuID != "" {
		q.Set("open", v.State.ExpandedMenuID)
	}
	if lang != i18n.SourceLanguage {
		q.Set("lang", lang)
	}
	path := "/"
	switch {
	case v.State.AdminMode:
		path = "/wiki/" + nav.AdminToken
	case v.State.ActivePageID != "":
		path = wikiPath(v.State.ActivePageID)
	}
	return withQuery(path, q)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.showFragment(w, r, "")
}

func (s *Server) handleWiki(w http.ResponseWriter, r *http.Request) {
	s.showFragment(w, r, r.PathValue("fragment"))
}

// showFragment runs the navigator over fragment and either renders the
// resulting state or redirects when the navigator rewrote the fragment.
func (s *Server) showFragment(w http.ResponseWriter, r *http.Request, fragment string) {
	ctx := r.Context()
	q := r.URL.Query()
	loc := &pathLocation{fragment: fragment}
	n := s.navigator(w, r, loc, q.Get("open"))
	_ = n.Init(ctx)

	status := http.StatusOK
	st := n.State()
	if n.LoadError() == nil && !st.AdminMode && st.ActivePageID == "" && nav.DecodeFragment(fragment) != "" {
		// The page may have been created since the tree was cached.
		if err := n.Navigate(ctx, nav.DecodeFragment(fragment)); err != nil {
			status = http.StatusNotFound
		}
	}

	if loc.changed && n.State().ActivePageID != "" {
		http.Redirect(w, r, s.pageHref(n.State().ActivePageID, n.State().ExpandedMenuID, s.language(r)), http.StatusFound)
		return
	}

	v := s.buildView(r, n)
	if n.LoadError() != nil {
		status = statusFor(n.LoadError())
	}
	if v.State.AdminMode {
		v.Admin = s.buildAdminView(r, n)
		s.render(w, status, "admin.gohtml", v)
		return
	}
	s.render(w, status, "page.gohtml", v)
}

func (s *Server) handleNav(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	loc := &pathLocation{fragment: q.Get("from")}
	n := s.navigator(w, r, loc, q.Get("open"))
	_ = n.Init(ctx)

	if err := n.ClickMenu(ctx, r.PathValue("id")); err != nil {
		v := s.buildView(r, n)
		status := statusFor(err)
		if n.LoadError() != nil {
			status = statusFor(n.LoadError())
		}
		s.render(w, status, "page.gohtml", v)
		return
	}

	st := n.State()
	lang := s.language(r)
	switch {
	case st.AdminMode:
		http.Redirect(w, r, withQuery("/wiki/"+nav.AdminToken, navQuery(st.ExpandedMenuID, lang)), http.StatusFound)
	case st.ActivePageID != "":
		http.Redirect(w, r, s.pageHref(st.ActivePageID, st.ExpandedMenuID, lang), http.StatusFound)
	default:
		http.Redirect(w, r, withQuery("/", navQuery(st.ExpandedMenuID, lang)), http.StatusFound)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.FormValue("q"))
	query = truncateRunes(query, maxQueryRunes)

	n := s.navigator(w, r, &pathLocation{}, r.URL.Query().Get("open"))
	_ = n.Init(r.Context())

	v := s.buildView(r, n)
	v.Query = query
	lang := v.Lang
	results := nav.Search(s.catalog.Localize(n.Snapshot(), lang), query)
	if query != "" {
		v.Menus = s.menuViews(results.Menus, n.State(), lang)
	}
	for _, h := range results.Hits {
		v.Hits = append(v.Hits, hitView{Hit: h, Href: s.pageHref(h.ID, h.ParentID, lang)})
	}

	status := http.StatusOK
	if n.LoadError() != nil {
		status = statusFor(n.LoadError())
	}
	s.render(w, status, "search.gohtml", v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	loc := &pathLocation{fragment: nav.AdminToken}
	user := r.PostFormValue("username")
	n := nav.New(s.engine, loc, s.sessions.forRequest(w, r, user), s.credentials(),
		nav.WithClock(s.now), nav.WithLogger(s.log))
	_ = n.Init(r.Context())

	if err := n.Login(user, r.PostFormValue("password")); err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, nav.ErrLoginDisabled) {
			status = http.StatusForbidden
		}
		v := s.buildView(r, n)
		v.Admin = &adminView{LoginError: err.Error(), LoginEnabled: s.credentials().Enabled()}
		s.render(w, status, "admin.gohtml", v)
		return
	}
	http.Redirect(w, r, "/wiki/"+nav.AdminToken, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	loc := &pathLocation{fragment: nav.AdminToken}
	n := s.navigator(w, r, loc, "")
	_ = n.Init(r.Context())
	if err := n.Logout(r.Context()); err != nil {
		s.log.Warn("logout failed", logger.Error(err))
	}
	if id := n.State().ActivePageID; id != "" {
		http.Redirect(w, r, s.pageHref(id, "", s.language(r)), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// language returns the requested translation, or the source language when
// no catalog table exists for it.
func (s *Server) language(r *http.Request) string {
	lang := r.URL.Query().Get("lang")
	if lang == "" || lang == i18n.SourceLanguage || !s.catalog.Has(lang) {
		return i18n.SourceLanguage
	}
	return lang
}

func (s *Server) buildView(r *http.Request, n *nav.Navigator) *view {
	lang := s.language(r)
	st := n.State()
	snap := s.catalog.Localize(n.Snapshot(), lang)
	v := &view{
		Lang:      lang,
		Languages: s.catalog.Languages(),
		State:     st,
		Menus:     s.menuViews(snap.Menus, st, lang),
		catalog:   s.catalog,
	}
	if err := n.LoadError(); err != nil {
		v.LoadError = err.Error()
		return v
	}

	page, ok := snap.Page(st.ActivePageID)
	if !ok {
		return v
	}
	v.Page = &page
	exists := func(id string) bool {
		_, ok := snap.Page(id)
		return ok
	}
	v.Content = template.HTML(decorateInternalLinks(page.Content, exists, navQuery("", lang).Encode()))

	prev, next := nav.Neighbors(snap, page.ID)
	if prev != nil {
		v.Prev = &linkView{ID: prev.ID, Title: prev.Title, Href: s.pageHref(prev.ID, prev.ParentID, lang)}
	}
	if next != nil {
		v.Next = &linkView{ID: next.ID, Title: next.Title, Href: s.pageHref(next.ID, next.ParentID, lang)}
	}

	graph := linkgraph.Build(wiki.Document{Menus: snap.Menus, Pages: snap.Pages})
	for _, id := range graph.Related(page.ID, relatedLimit) {
		if p, ok := snap.Page(id); ok {
			v.Related = append(v.Related, linkView{ID: p.ID, Title: p.Title, Href: s.pageHref(p.ID, p.ParentID, lang)})
		}
	}
	return v
}

func (s *Server) menuViews(menus []wiki.MenuNode, st nav.State, lang string) []menuView {
	out := make([]menuView, 0, len(menus))
	for _, m := range menus {
		mv := menuView{ID: m.ID, Title: m.Title, Icon: m.Icon, Parent: m.IsParent()}
		if mv.Parent {
			mv.Expanded = st.ExpandedMenuID == m.ID
			q := navQuery(st.ExpandedMenuID, lang)
			if st.AdminMode {
				q.Set("from", nav.AdminToken)
			} else if st.ActivePageID != "" {
				q.Set("from", st.ActivePageID)
			}
			mv.Href = withQuery("/nav/"+url.PathEscape(m.ID), q)
			for _, c := range m.Children {
				active := c.ID == st.ActivePageID
				mv.Active = mv.Active || active
				mv.Children = append(mv.Children, linkView{
					ID: c.ID, Title: c.Title, Href: s.pageHref(c.ID, m.ID, lang), Active: active,
				})
			}
		} else {
			mv.Active = m.ID == st.ActivePageID
			mv.Href = s.pageHref(m.ID, st.ExpandedMenuID, lang)
		}
		out = append(out, mv)
	}
	return out
}

func (s *Server) pageHref(id, open, lang string) string {
	return withQuery(wikiPath(id), navQuery(open, lang))
}

func navQuery(open, lang string) url.Values {
	q := url.Values{}
	if open != "" {
		q.Set("open", open)
	}
	if lang != "" && lang != i18n.SourceLanguage {
		q.Set("lang", lang)
	}
	return q
}

const maxQueryRunes = 128

// truncateRunes cuts s to at most n runes without splitting a character.
func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// iconHTML renders a classified icon. Inline vectors come from admins and
// are emitted as-is.
func iconHTML(icon wiki.Icon) template.HTML {
	if icon.IsImage() {
		return template.HTML(`<img class="menu-icon" src="` + html.EscapeString(icon.Value) + `" alt="">`)
	}
	switch icon.Kind {
	case wiki.IconInlineVector:
		return template.HTML(`<span class="menu-icon">` + icon.Value + `</span>`)
	case wiki.IconBuiltin:
		return template.HTML(`<span class="menu-icon icon-` + html.EscapeString(icon.Value) + `" aria-hidden="true"></span>`)
	default:
		return ""
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
