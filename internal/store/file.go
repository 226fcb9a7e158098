package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"onfawiki/internal/wiki"
)

// FileStore keeps the document as an indented JSON file. Writes go to a
// temporary file that is renamed into place.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore stores the document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Kind() string { return "file" }

func (s *FileStore) Close() error { return nil }

// Path returns the file location.
func (s *FileStore) Path() string { return s.path }

// Fetch reads the file, creating it with an empty document when missing.
func (s *FileStore) Fetch(ctx context.Context) (wiki.Document, error) {
	if err := ctx.Err(); err != nil {
		return wiki.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := wiki.EmptyDocument()
		if err := s.write(doc); err != nil {
			return wiki.Document{}, err
		}
		return doc, nil
	}
	if err != nil {
		return wiki.Document{}, err
	}
	return decode(body)
}

// Replace rewrites the file.
func (s *FileStore) Replace(ctx context.Context, doc wiki.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(doc)
}

// UpdatedAt is the file modification time.
func (s *FileStore) UpdatedAt(context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, &wiki.NotFoundError{Kind: "document", ID: s.path}
	}
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (s *FileStore) write(doc wiki.Document) error {
	body, err := json.MarshalIndent(doc.Clone(), "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".wiki-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(body, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
