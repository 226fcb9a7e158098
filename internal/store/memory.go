package store

import (
	"context"
	"sync"
	"time"

	"onfawiki/internal/wiki"
)

// MemoryStore keeps the document in process. It is used for local runs and
// tests.
type MemoryStore struct {
	mu        sync.RWMutex
	doc       *wiki.Document
	updatedAt time.Time
	now       func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Kind() string { return "memory" }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Fetch(context.Context) (wiki.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		empty := wiki.EmptyDocument()
		s.doc = &empty
		s.updatedAt = s.now()
	}
	return s.doc.Clone(), nil
}

func (s *MemoryStore) Replace(_ context.Context, doc wiki.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := doc.Clone()
	s.doc = &stored
	s.updatedAt = s.now()
	return nil
}

func (s *MemoryStore) UpdatedAt(context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return time.Time{}, &wiki.NotFoundError{Kind: "document", ID: "memory"}
	}
	return s.updatedAt, nil
}
