package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onfawiki/internal/wiki"
)

var stamp = time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)

// documentArg matches a JSON body holding the given number of pages.
type documentArg struct{ pages int }

func (a documentArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	var doc wiki.Document
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return false
	}
	return doc.Menus != nil && len(doc.Pages) == a.pages
}

func newMockStore(t *testing.T, d Dialect) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewSQLStore(db, d)
	s.now = func() time.Time { return stamp }
	return s, mock
}

func TestSQLStoreFetchBootstrapsEmptyDocument(t *testing.T) {
	s, mock := newMockStore(t, MySQL)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS wiki_documents").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT body FROM wiki_documents WHERE name = ?")).
		WithArgs(DocumentName).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO wiki_documents").
		WithArgs(DocumentName, documentArg{pages: 0}, stamp).
		WillReturnResult(sqlmock.NewResult(1, 1))

	doc, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wiki.EmptyDocument(), doc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreFetchDecodesRow(t *testing.T) {
	s, mock := newMockStore(t, Postgres)
	body := `{"menus":[{"id":"wallet","title":"Wallet","icon":"wallet","type":"single"}],"pages":[{"id":"wallet","title":"Wallet","content":"","publishDate":"2024-01-18"}]}`

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS wiki_documents").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT body FROM wiki_documents WHERE name = $1")).
		WithArgs(DocumentName).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(body))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT body FROM wiki_documents WHERE name = $1")).
		WithArgs(DocumentName).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(body))

	ctx := context.Background()
	doc, err := s.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, wiki.IconBuiltin, doc.Menus[0].Icon.Kind)

	_, err = s.Fetch(ctx)
	require.NoError(t, err, "the schema is created once")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreReplaceUpserts(t *testing.T) {
	s, mock := newMockStore(t, Postgres)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS wiki_documents").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (name) DO UPDATE")).
		WithArgs(DocumentName, documentArg{pages: 1}, stamp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	doc := wiki.EmptyDocument()
	doc.Pages = append(doc.Pages, wiki.Page{ID: "a", Title: "A"})
	require.NoError(t, s.Replace(context.Background(), doc))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreSchemaFailureIsRetried(t *testing.T) {
	s, mock := newMockStore(t, MySQL)

	mock.ExpectExec("CREATE TABLE").WillReturnError(sql.ErrConnDone)
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT updated_at").
		WithArgs(DocumentName).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(stamp))

	ctx := context.Background()
	_, err := s.Fetch(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrConnDone))

	at, err := s.UpdatedAt(ctx)
	require.NoError(t, err)
	assert.Equal(t, stamp, at)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreCorruptBody(t *testing.T) {
	s, mock := newMockStore(t, MySQL)
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT body").WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(`{"menus":{}}`))

	_, err := s.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, wiki.ErrCorrupt)
	assert.NotErrorIs(t, err, wiki.ErrInvalid)
}
