// Package store holds the persistence backends for the wiki document. Every
// backend keeps exactly one document and replaces it wholesale.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"onfawiki/internal/wiki"
)

// URLKey is the configuration key naming the backend location.
const URLKey = "WIKI_STORE_URL"

// Backend is a wiki.Gateway that can report its last write and be closed.
type Backend interface {
	wiki.Gateway
	wiki.Stater
	Kind() string
	Close() error
}

// Open picks a backend from the URL scheme: mysql, mariadb, postgres,
// postgresql, redis, rediss, file and memory. Connections are opened lazily,
// so an unreachable store surfaces on first use rather than here.
func Open(ctx context.Context, rawURL string) (Backend, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, &wiki.ConfigError{Key: URLKey, Reason: "is not set"}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &wiki.ConfigError{Key: URLKey, Reason: fmt.Sprintf("cannot parse: %v", err)}
	}

	switch u.Scheme {
	case "mysql", "mariadb":
		dsn, err := mysqlDSN(rawURL)
		if err != nil {
			return nil, &wiki.ConfigError{Key: URLKey, Reason: err.Error()}
		}
		return openSQL(ctx, MySQL, dsn)
	case "postgres", "postgresql":
		return openSQL(ctx, Postgres, rawURL)
	case "redis", "rediss":
		s, err := OpenRedis(rawURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "file":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return nil, &wiki.ConfigError{Key: URLKey, Reason: "file url has no path"}
		}
		return NewFileStore(path), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, &wiki.ConfigError{Key: URLKey, Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
}

func openSQL(ctx context.Context, d Dialect, dsn string) (Backend, error) {
	s, err := OpenSQL(ctx, d, dsn)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Unconfigured answers every call with err. It lets the server start and
// report a configuration problem to users instead of exiting.
type Unconfigured struct {
	Err error
}

func (u Unconfigured) Fetch(context.Context) (wiki.Document, error) { return wiki.Document{}, u.Err }

func (u Unconfigured) Replace(context.Context, wiki.Document) error { return u.Err }

func (u Unconfigured) UpdatedAt(context.Context) (time.Time, error) { return time.Time{}, u.Err }

func (u Unconfigured) Kind() string { return "unconfigured" }

func (u Unconfigured) Close() error { return nil }

func encode(doc wiki.Document) ([]byte, error) {
	doc = doc.Clone()
	return json.Marshal(doc)
}

func decode(body []byte) (wiki.Document, error) {
	doc, err := wiki.DecodeDocument(body)
	if err != nil {
		return wiki.Document{}, fmt.Errorf("%w: %v", wiki.ErrCorrupt, err)
	}
	return doc, nil
}
