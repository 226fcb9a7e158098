package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"onfawiki/internal/wiki"
)

// DocumentName is the primary key of the single stored row.
const DocumentName = "main"

// Dialect holds the statements that differ between SQL servers.
type Dialect struct {
	Driver string
	Create string
	Select string
	Stamp  string
	Upsert string
}

// MySQL targets MySQL and MariaDB through go-sql-driver/mysql.
var MySQL = Dialect{
	Driver: "mysql",
	Create: `CREATE TABLE IF NOT EXISTS wiki_documents (
	name VARCHAR(64) NOT NULL PRIMARY KEY,
	body LONGTEXT NOT NULL,
	updated_at DATETIME(6) NOT NULL
) CHARACTER SET utf8mb4`,
	Select: `SELECT body FROM wiki_documents WHERE name = ?`,
	Stamp:  `SELECT updated_at FROM wiki_documents WHERE name = ?`,
	Upsert: `INSERT INTO wiki_documents (name, body, updated_at) VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE body = VALUES(body), updated_at = VALUES(updated_at)`,
}

// Postgres targets PostgreSQL through lib/pq.
var Postgres = Dialect{
	Driver: "postgres",
	Create: `CREATE TABLE IF NOT EXISTS wiki_documents (
	name TEXT PRIMARY KEY,
	body TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	Select: `SELECT body FROM wiki_documents WHERE name = $1`,
	Stamp:  `SELECT updated_at FROM wiki_documents WHERE name = $1`,
	Upsert: `INSERT INTO wiki_documents (name, body, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
}

// SQLStore keeps the document as one JSON row in wiki_documents.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time

	schemaMu sync.Mutex
	schemaOK bool
}

// OpenSQL opens a pool with the same limits for every dialect.
func OpenSQL(_ context.Context, d Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, &wiki.ConfigError{Key: URLKey, Reason: err.Error()}
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return NewSQLStore(db, d), nil
}

// NewSQLStore wraps an existing pool.
func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: d, now: time.Now}
}

func (s *SQLStore) Kind() string { return s.dialect.Driver }

// Close closes the pool.
func (s *SQLStore) Close() error { return s.db.Close() }

// ensureSchema creates the table on first use. A failure is retried on the
// next call.
func (s *SQLStore) ensureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaOK {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.Create); err != nil {
		return fmt.Errorf("create wiki_documents: %w", err)
	}
	s.schemaOK = true
	return nil
}

// Fetch returns the stored document, writing an empty one on first access.
func (s *SQLStore) Fetch(ctx context.Context) (wiki.Document, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return wiki.Document{}, err
	}
	var body []byte
	err := s.db.QueryRowContext(ctx, s.dialect.Select, DocumentName).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		doc := wiki.EmptyDocument()
		if err := s.write(ctx, doc); err != nil {
			return wiki.Document{}, err
		}
		return doc, nil
	}
	if err != nil {
		return wiki.Document{}, fmt.Errorf("select document: %w", err)
	}
	return decode(body)
}

// Replace overwrites the stored row.
func (s *SQLStore) Replace(ctx context.Context, doc wiki.Document) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	return s.write(ctx, doc)
}

func (s *SQLStore) write(ctx context.Context, doc wiki.Document) error {
	body, err := encode(doc)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.Upsert, DocumentName, string(body), s.now().UTC()); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// UpdatedAt returns the time of the last write.
func (s *SQLStore) UpdatedAt(ctx context.Context) (time.Time, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return time.Time{}, err
	}
	var at time.Time
	err := s.db.QueryRowContext(ctx, s.dialect.Stamp, DocumentName).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, &wiki.NotFoundError{Kind: "document", ID: DocumentName}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("select updated_at: %w", err)
	}
	return at, nil
}
