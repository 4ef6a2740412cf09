// internal/abtest/service_test.go
//
// Ledger and variant write-path tests using sqlmock.  Each write is expected
// to lock the parent row, consult the ledger when required, and either
// commit or roll back as a unit.
//
// Run: go test ./internal/abtest -v

package abtest

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/splitlink/internal/redirect"
)

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := NewService(sqlx.NewDb(db, "sqlmock"))
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func weightRows(ws ...float64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"probability"})
	for _, w := range ws {
		rows.AddRow(w)
	}
	return rows
}

func variantRow(id, record int64, weight float64, active bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "short_url_id", "target_url", "probability", "is_active", "created_at", "updated_at",
	}).AddRow(id, record, "https://shop.example.com/b", weight, active, fixedNow, fixedNow)
}

/*──────────────────────────── ledger ───────────────────────────────────────*/

func TestTotalActiveWeight(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	x := sqlx.NewDb(db, "sqlmock")

	mock.ExpectQuery(regexp.QuoteMeta(qActiveWeights)).
		WithArgs(int64(7)).
		WillReturnRows(weightRows(0.25, 0.5))
	total, err := TotalActiveWeight(context.Background(), x, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.75, total)

	ex := int64(3)
	mock.ExpectQuery(regexp.QuoteMeta(qActiveWeightsExcluding)).
		WithArgs(int64(7), int64(3)).
		WillReturnRows(weightRows())
	total, err = TotalActiveWeight(context.Background(), x, 7, &ex)
	require.NoError(t, err)
	assert.Zero(t, total)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateAddition_ExactBoundary(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	x := sqlx.NewDb(db, "sqlmock")

	mock.ExpectQuery(regexp.QuoteMeta(qActiveWeights)).WillReturnRows(weightRows(0.5))
	assert.NoError(t, ValidateAddition(context.Background(), x, 1, 0.5, nil), "sum of exactly 1.0 is allowed")

	mock.ExpectQuery(regexp.QuoteMeta(qActiveWeights)).WillReturnRows(weightRows(0.5))
	err = ValidateAddition(context.Background(), x, 1, 0.5000001, nil)
	assert.ErrorIs(t, err, ErrProbabilityExceeded)
}

/*──────────────────────────── create ───────────────────────────────────────*/

func TestCreate_ActiveWithinBudget(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(qLockRecord)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta(qActiveWeights)).
		WithArgs(int64(7)).
		WillReturnRows(weightRows(0.3, 0.2))
	mock.ExpectExec(regexp.QuoteMeta(qInsertVariant)).
		WithArgs(int64(7), "https://shop.example.com/b", 0.5, true, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	v, err := s.Create(context.Background(), 7, CreateInput{
		TargetURL: "https://shop.example.com/b", Weight: 0.5, Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), v.ID)
	assert.Equal(t, fixedNow, v.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_ExceedsBudget(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(qLockRecord)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta(qActiveWeights)).
		WillReturnRows(weightRows(0.6))
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), 7, CreateInput{
		TargetURL: "https://shop.example.com/b", Weight: 0.5, Active: true,
	})
	assert.ErrorIs(t, err, ErrProbabilityExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_InactiveSkipsLedger(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(qLockRecord)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta(qInsertVariant)).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectCommit()

	v, err := s.Create(context.Background(), 7, CreateInput{
		TargetURL: "https://shop.example.com/c", Weight: 0.9,
	})
	require.NoError(t, err)
	assert.False(t, v.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UnknownRecord(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(qLockRecord)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), 404, CreateInput{
		TargetURL: "https://shop.example.com/b", Weight: 0.1, Active: true,
	})
	assert.ErrorIs(t, err, redirect.ErrNotFound)
}

func TestCreate_InvalidInput(t *testing.T) {
	s, mock := newMockService(t)

	_, err := s.Create(context.Background(), 7, CreateInput{TargetURL: "https://x.example.com", Weight: 1.5})
	assert.ErrorIs(t, err, ErrInvalidVariant)

	_, err = s.Create(context.Background(), 7, CreateInput{TargetURL: "not a url", Weight: 0.1})
	assert.ErrorIs(t, err, ErrInvalidVariant)

	assert.NoError(t, mock.ExpectationsWereMet(), "no SQL on invalid input")
}

func TestCreate_CheckConstraintTranslated(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(qLockRecord)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta(qInsertVariant)).
		WillReturnError(&mysql.MySQLError{Number: 3819, Message: "Check constraint 'chk_probability_range' is violated."})
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), 7, CreateInput{TargetURL: "https://x.example.com", Weight: 0.2})
	assert.ErrorIs(t, err, ErrProbabilityExceeded)
}

/*──────────────────────────── update ───────────────────────────────────────*/

func TestUpdate_ActivationUsesStoredWeight(t *testing.T) {
	s, mock := newMockService(t)
	on := true

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(qLockRecordByVariant)).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta(qVariantByID)).
		WithArgs(int64(11)).
		WillReturnRows(variantRow(11, 7, 0.4, false))
	mock.ExpectQuery(regexp.QuoteMeta(qActiveWeightsExcluding)).
		WithArgs(int64(7), int64(11)).
		WillReturnRows(weightRows(0.7))
	mock.ExpectRollback()

	_, err := s.Update(context.Background(), 11, UpdateInput{Active: &on})
	assert.ErrorIs(t, err, ErrProbabilityExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_WeightWhileInactiveSkipsLedger(t *testing.T) {
	s, mock := newMockService(t)
	w := 0.9

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(qLockRecordByVariant)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta(qVariantByID)).
		WillReturnRows(variantRow(11, 7, 0.4, false))
	mock.ExpectExec(regexp.QuoteMeta(qUpdateVariant)).
		WithArgs("https://shop.example.com/b", 0.9, false, fixedNow, int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	v, err := s.Update(context.Background(), 11, UpdateInput{Weight: &w})
	require.NoError(t, err)
	assert.Equal(t, 0.9, v.Weight)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_WeightWhileActiveExcludesSelf(t *testing.T) {
	s, mock := newMockService(t)
	w := 0.6

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(qLockRecordByVariant)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta(qVariantByID)).
		WillReturnRows(variantRow(11, 7, 0.4, true))
	mock.ExpectQuery(regexp.QuoteMeta(qActiveWeightsExcluding)).
		WithArgs(int64(7), int64(11)).
		WillReturnRows(weightRows(0.4))
	mock.ExpectExec(regexp.QuoteMeta(qUpdateVariant)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	v, err := s.Update(context.Background(), 11, UpdateInput{Weight: &w})
	require.NoError(t, err)
	assert.True(t, v.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_UnknownVariant(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(qLockRecordByVariant)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := s.Update(context.Background(), 99, UpdateInput{})
	assert.ErrorIs(t, err, ErrVariantNotFound)
}

/*──────────────────────────── delete / read ────────────────────────────────*/

func TestDelete(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectExec(regexp.QuoteMeta(qDeleteVariant)).
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Delete(context.Background(), 11))

	mock.ExpectExec(regexp.QuoteMeta(qDeleteVariant)).
		WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.Delete(context.Background(), 12), ErrVariantNotFound)
}

func TestStoreActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	st := NewStore(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectQuery(regexp.QuoteMeta(qActiveVariants)).
		WithArgs(int64(7)).
		WillReturnRows(variantRow(11, 7, 0.4, true))

	vs, err := st.Active(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, 0.4, vs[0].Weight)
}
