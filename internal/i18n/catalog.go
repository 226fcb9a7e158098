package i18n

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"onfawiki/internal/wiki"
)

// Catalog holds one Table per language, loaded from <lang>.yaml, <lang>.yml
// or <lang>.json files.
type Catalog struct {
	dir string

	mu     sync.RWMutex
	tables map[string]Table
}

// NewCatalog returns an empty catalog that saves into dir.
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir, tables: map[string]Table{}}
}

// LoadCatalog reads every table in dir. A missing or empty dir yields an
// empty catalog.
func LoadCatalog(dir string) (*Catalog, error) {
	c := NewCatalog(dir)
	if dir == "" {
		return c, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read translations dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		lang := strings.TrimSuffix(e.Name(), ext)
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		table := Table{}
		switch ext {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(raw, &table)
		case ".json":
			err = json.Unmarshal(raw, &table)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		c.tables[lang] = table
	}
	return c, nil
}

// Set replaces the table for lang in memory.
func (c *Catalog) Set(lang string, t Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[lang] = t
}

// Save writes the table for lang as YAML into the catalog dir.
func (c *Catalog) Save(lang string, t Table) (string, error) {
	if c.dir == "" {
		return "", &wiki.ConfigError{Key: "WIKI_TRANSLATIONS_DIR", Reason: "is not set"}
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", err
	}
	raw, err := yaml.Marshal(map[string]string(t))
	if err != nil {
		return "", err
	}
	path := filepath.Join(c.dir, lang+".yaml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	c.Set(lang, t)
	return path, nil
}

// Languages lists the source language followed by every loaded language.
func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []string{SourceLanguage}
	for lang := range c.tables {
		if lang != SourceLanguage {
			out = append(out, lang)
		}
	}
	sort.Strings(out[1:])
	return out
}

// Has reports whether lang can be served.
func (c *Catalog) Has(lang string) bool {
	if lang == SourceLanguage {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tables[lang]
	return ok
}

// T looks up key in lang, returning fallback for the source language or a
// missing key.
func (c *Catalog) T(lang, key, fallback string) string {
	if lang == SourceLanguage || lang == "" {
		return fallback
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.tables[lang][key]; ok && v != "" {
		return v
	}
	return fallback
}

// UI looks up an interface label.
func (c *Catalog) UI(lang, key string) string {
	return c.T(lang, key, UIStrings[key])
}

// Localize returns a copy of snap with titles and bodies translated. IDs and
// structure are untouched.
func (c *Catalog) Localize(snap wiki.Snapshot, lang string) wiki.Snapshot {
	if lang == SourceLanguage || lang == "" {
		return snap
	}
	out := wiki.Snapshot{
		Menus: make([]wiki.MenuNode, len(snap.Menus)),
		Pages: make([]wiki.Page, len(snap.Pages)),
	}
	for i, m := range snap.Menus {
		m.Title = c.T(lang, MenuKey(m.ID), m.Title)
		if m.Children != nil {
			children := make([]wiki.MenuChild, len(m.Children))
			for j, ch := range m.Children {
				ch.Title = c.T(lang, MenuKey(ch.ID), ch.Title)
				children[j] = ch
			}
			m.Children = children
		}
		out.Menus[i] = m
	}
	for i, p := range snap.Pages {
		p.Title = c.T(lang, TitleKey(p.ID), p.Title)
		p.Content = c.T(lang, ContentHTMLKey(p.ID), p.Content)
		out.Pages[i] = p
	}
	return out
}
