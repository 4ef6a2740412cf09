// internal/forms/store_test.go
//
// sqlmock tests for google_forms and form_entries access, with the focus on
// Reconcile: new and changed titles are upserted, unchanged titles are left
// alone, and titles the service no longer reports are deleted.
//
// Run: go test ./internal/forms -v

package forms

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var storeNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var entryCols = []string{"id", "google_form_id", "title", "entry_id", "created_at", "updated_at"}

var mappingColNames = []string{"id", "form_id", "responder_form_id", "title", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := NewStore(sqlx.NewDb(db, "sqlmock"))
	s.now = func() time.Time { return storeNow }
	return s, mock
}

func TestByReference(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(qMappingByRef)).
		WithArgs("R1", "R1").
		WillReturnRows(sqlmock.NewRows(mappingColNames).
			AddRow(5, "F1", "R1", "Signup", storeNow, storeNow))

	m, err := s.ByReference(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, "F1", m.FormID)

	mock.ExpectQuery(regexp.QuoteMeta(qMappingByRef)).
		WithArgs("nope", "nope").
		WillReturnRows(sqlmock.NewRows(mappingColNames))

	_, err = s.ByReference(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrFormNotFound)
}

func TestReconcile(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(qEntriesForUpdate)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(entryCols).
			AddRow(1, 5, "utm_source", 111, storeNow, storeNow). // unchanged
			AddRow(2, 5, "utm_medium", 200, storeNow, storeNow). // id changed
			AddRow(3, 5, "old_q", 300, storeNow, storeNow).      // gone
			AddRow(4, 5, "older_q", 400, storeNow, storeNow))    // gone
	mock.ExpectExec(regexp.QuoteMeta(qUpsertEntry)).
		WithArgs(int64(5), "utm_medium", int64(222), storeNow, storeNow).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(qUpsertEntry)).
		WithArgs(int64(5), "utm_campaign", int64(333), storeNow, storeNow).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(`DELETE FROM form_entries WHERE google_form_id = \? AND title IN \(.+\)`).
		WithArgs(int64(5), "old_q", "older_q").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	res, err := s.Reconcile(context.Background(), 5, []Field{
		{Title: "utm_source", EntryID: 111},
		{Title: "utm_medium", EntryID: 222},
		{Title: "utm_campaign", EntryID: 333},
	})
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Upserted: 2, Deleted: 2}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile_NoChanges(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(qEntriesForUpdate)).
		WillReturnRows(sqlmock.NewRows(entryCols).AddRow(1, 5, "utm_source", 111, storeNow, storeNow))
	mock.ExpectCommit()

	res, err := s.Reconcile(context.Background(), 5, []Field{{Title: "utm_source", EntryID: 111}})
	require.NoError(t, err)
	assert.Zero(t, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_RemovesEntriesFirst(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(qDeleteEntries)).WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(qDeleteMapping)).WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Delete(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}
