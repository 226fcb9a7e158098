package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"onfawiki/internal/logger"
	"onfawiki/internal/nav"
	"onfawiki/internal/wiki"
)

func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	doc, err := s.engine.Document(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSaveData(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid data structure", Details: err.Error()})
		return
	}
	s.replaceDocument(w, r, body, "Data saved successfully")
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var (
		body []byte
		err  error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		body, err = readUpload(r)
	} else {
		body, err = io.ReadAll(r.Body)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid data structure", Details: err.Error()})
		return
	}
	s.replaceDocument(w, r, body, "Data imported successfully")
}

func readUpload(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	defer file.Close()
	return io.ReadAll(file)
}

func (s *Server) replaceDocument(w http.ResponseWriter, r *http.Request, body []byte, message string) {
	doc, err := wiki.DecodeDocument(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid data structure", Details: err.Error()})
		return
	}
	if err := s.engine.Replace(r.Context(), doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"menus":   len(doc.Menus),
		"pages":   len(doc.Pages),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.engine.Document(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="wiki-data.json"`)
	_, _ = w.Write(body)
}

func (s *Server) handleListMenus(w http.ResponseWriter, r *http.Request) {
	menus, err := s.engine.ListMenus(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, menus)
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.engine.ListPages(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	page, err := s.engine.GetPage(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var in wiki.PageInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	page, err := s.engine.CreatePage(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

func (s *Server) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	var patch wiki.PagePatch
	if !s.decodeBody(w, r, &patch) {
		return
	}
	page, err := s.engine.UpdatePage(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.engine.DeletePage(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) handleCreateMenu(w http.ResponseWriter, r *http.Request) {
	var in wiki.MenuInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	menu, err := s.engine.CreateMenu(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, menu)
}

func (s *Server) handleUpdateMenu(w http.ResponseWriter, r *http.Request) {
	var patch wiki.MenuPatch
	if !s.decodeBody(w, r, &patch) {
		return
	}
	menu, err := s.engine.UpdateMenu(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, menu)
}

func (s *Server) handleDeleteMenu(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.engine.DeleteMenu(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) handleAPISearch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	lang := s.language(r)
	writeJSON(w, http.StatusOK, nav.Search(s.catalog.Localize(snap, lang), r.URL.Query().Get("q")))
}

type statusBody struct {
	Backend   string     `json:"backend"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Languages []string   `json:"languages"`
	Error     string     `json:"error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	body := statusBody{Backend: "unknown", Languages: s.catalog.Languages()}
	gw := s.engine.Cache().Gateway()
	if k, ok := gw.(interface{ Kind() string }); ok {
		body.Backend = k.Kind()
	}
	if st, ok := gw.(wiki.Stater); ok {
		at, err := st.UpdatedAt(r.Context())
		if err != nil && !errors.Is(err, wiki.ErrNotFound) {
			body.Error = err.Error()
			writeJSON(w, statusFor(err), body)
			return
		}
		if !at.IsZero() {
			body.UpdatedAt = &at
		}
	}
	writeJSON(w, http.StatusOK, body)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleAPILogin issues a session for API clients. The token is returned in
// the body for use as a Bearer token and also set as a cookie.
func (s *Server) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !s.decodeBody(w, r, &in) {
		return
	}
	sess := s.sessions.forRequest(w, r, in.Username)
	n := nav.New(s.engine, &pathLocation{}, sess, s.credentials(), nav.WithClock(s.now), nav.WithLogger(s.log))
	if err := n.Login(in.Username, in.Password); err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, nav.ErrLoginDisabled) {
			status = http.StatusForbidden
		} else if !errors.Is(err, nav.ErrInvalidCredentials) {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, errorBody{Error: "Login failed", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     sess.token,
		"expiresIn": int(nav.SessionTTL.Seconds()),
	})
}

// decodeBody reads a JSON body into v, answering 400 itself on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var verr *wiki.ValidationError
		if !errors.As(err, &verr) {
			err = &wiki.ValidationError{Reason: "malformed JSON body: " + err.Error()}
		}
		s.log.Debug("rejected request body", logger.String("path", r.URL.Path), logger.Error(err))
		s.writeError(w, r, err)
		return false
	}
	return true
}
