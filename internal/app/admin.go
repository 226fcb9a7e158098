package app

import (
	"fmt"
	"net/http"
	"net/url"

	"onfawiki/internal/logger"
	"onfawiki/internal/nav"
	"onfawiki/internal/wiki"
)

// adminView backs the admin template: the login form when signed out, the
// dashboard otherwise.
type adminView struct {
	LoginEnabled bool
	LoginError   string

	Backend   string
	UpdatedAt string
	Menus     []wiki.MenuNode
	Parents   []wiki.MenuNode
	Pages     []wiki.Page
	Report    *wiki.Report
	EditPage  *wiki.Page
	EditMenu  *wiki.MenuNode
	Icons     []string
	Notice    string
	Error     string
}

func (s *Server) buildAdminView(r *http.Request, n *nav.Navigator) *adminView {
	av := &adminView{LoginEnabled: s.credentials().Enabled()}
	if !n.State().Authenticated {
		return av
	}
	ctx := r.Context()
	q := r.URL.Query()
	av.Notice = q.Get("notice")
	av.Error = q.Get("error")
	av.Icons = wiki.BuiltinIcons

	snap := n.Snapshot()
	av.Menus = snap.Menus
	av.Pages = snap.Pages
	for _, m := range snap.Menus {
		if m.IsParent() {
			av.Parents = append(av.Parents, m)
		}
	}
	if id := q.Get("edit"); id != "" {
		if p, ok := snap.Page(id); ok {
			av.EditPage = &p
		}
	}
	if id := q.Get("editMenu"); id != "" {
		if m, ok := snap.Menu(id); ok {
			av.EditMenu = &m
		}
	}

	gw := s.engine.Cache().Gateway()
	if k, ok := gw.(interface{ Kind() string }); ok {
		av.Backend = k.Kind()
	}
	if st, ok := gw.(wiki.Stater); ok {
		if at, err := st.UpdatedAt(ctx); err == nil {
			av.UpdatedAt = formatTime(at)
		}
	}
	if n.LoadError() == nil {
		if report, err := s.engine.Inspect(ctx); err == nil {
			av.Report = &report
		}
	}
	return av
}

// adminForm wraps a dashboard form action. The action's outcome is carried
// back to the dashboard in the redirect.
func (s *Server) adminForm(action func(r *http.Request) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboard := "/wiki/" + nav.AdminToken
		if !s.authenticated(r) {
			http.Redirect(w, r, dashboard, http.StatusSeeOther)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, withQuery(dashboard, url.Values{"error": {err.Error()}}), http.StatusSeeOther)
			return
		}
		notice, err := action(r)
		q := url.Values{}
		if err != nil {
			s.log.Warn("admin action failed", logger.String("path", r.URL.Path), logger.Error(err))
			q.Set("error", err.Error())
		} else {
			q.Set("notice", notice)
		}
		http.Redirect(w, r, withQuery(dashboard, q), http.StatusSeeOther)
	}
}

// formValue returns a pointer to a posted field, or nil when the form did
// not include it.
func formValue(r *http.Request, key string) *string {
	vals, ok := r.PostForm[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

func (s *Server) formCreatePage(r *http.Request) (string, error) {
	p, err := s.engine.CreatePage(r.Context(), wiki.PageInput{
		ID:          r.PostFormValue("id"),
		Title:       r.PostFormValue("title"),
		Content:     r.PostFormValue("content"),
		PublishDate: r.PostFormValue("publishDate"),
		ParentID:    r.PostFormValue("parentId"),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("page %s created", p.ID), nil
}

func (s *Server) formUpdatePage(r *http.Request) (string, error) {
	id := r.PathValue("id")
	_, err := s.engine.UpdatePage(r.Context(), id, wiki.PagePatch{
		Title:       formValue(r, "title"),
		Content:     formValue(r, "content"),
		PublishDate: formValue(r, "publishDate"),
		ParentID:    formValue(r, "parentId"),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("page %s updated", id), nil
}

func (s *Server) formDeletePage(r *http.Request) (string, error) {
	id := r.PathValue("id")
	deleted, err := s.engine.DeletePage(r.Context(), id)
	if err != nil {
		return "", err
	}
	if !deleted {
		return "", &wiki.NotFoundError{Kind: "page", ID: id}
	}
	return fmt.Sprintf("page %s deleted", id), nil
}

func (s *Server) formCreateMenu(r *http.Request) (string, error) {
	m, err := s.engine.CreateMenu(r.Context(), wiki.MenuInput{
		ID:    r.PostFormValue("id"),
		Title: r.PostFormValue("title"),
		Icon:  wiki.ParseIcon(r.PostFormValue("icon")),
		Type:  wiki.MenuType(r.PostFormValue("type")),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("menu %s created", m.ID), nil
}

func (s *Server) formUpdateMenu(r *http.Request) (string, error) {
	id := r.PathValue("id")
	var patch wiki.MenuPatch
	patch.Title = formValue(r, "title")
	if raw := formValue(r, "icon"); raw != nil {
		icon := wiki.ParseIcon(*raw)
		patch.Icon = &icon
	}
	if raw := formValue(r, "type"); raw != nil && *raw != "" {
		typ := wiki.MenuType(*raw)
		patch.Type = &typ
	}
	if _, err := s.engine.UpdateMenu(r.Context(), id, patch); err != nil {
		return "", err
	}
	return fmt.Sprintf("menu %s updated", id), nil
}

func (s *Server) formDeleteMenu(r *http.Request) (string, error) {
	id := r.PathValue("id")
	deleted, err := s.engine.DeleteMenu(r.Context(), id)
	if err != nil {
		return "", err
	}
	if !deleted {
		return "", &wiki.NotFoundError{Kind: "menu", ID: id}
	}
	return fmt.Sprintf("menu %s deleted", id), nil
}

func (s *Server) formRepair(r *http.Request) (string, error) {
	dryRun := r.PostFormValue("dry_run") != ""
	report, changed, err := s.engine.Repair(r.Context(), dryRun)
	if err != nil {
		return "", err
	}
	switch {
	case !changed:
		return "document is consistent, nothing to repair", nil
	case dryRun:
		return fmt.Sprintf("repair would fix %d orphan children, %d unlinked pages, %d stale titles",
			len(report.OrphanChildren), len(report.UnlinkedPages), len(report.StaleTitles)), nil
	default:
		return fmt.Sprintf("repaired %d orphan children, %d unlinked pages, %d stale titles",
			len(report.OrphanChildren), len(report.UnlinkedPages), len(report.StaleTitles)), nil
	}
}
