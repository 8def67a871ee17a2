package db_test

import (
	"context"
	"testing"
	"time"

	"passagens/db"
	"passagens/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiscalRepo_Get(t *testing.T) {
	dbConn, mock := newMockDB(t)

	emittedAt := time.Now().UTC()
	mock.ExpectQuery("SELECT booking_reference, status, emitted_at").
		WithArgs("BK123456").
		WillReturnRows(sqlmock.NewRows([]string{
			"booking_reference", "status", "emitted_at",
			"authorization_protocol", "payload", "note",
		}).AddRow("BK123456", entity.FiscalIssued, emittedAt, "135240000000001", "<bpe/>", ""))

	r := db.NewFiscalRepo(dbConn)
	doc, err := r.Get(context.Background(), "BK123456")
	require.NoError(t, err)

	assert.Equal(t, entity.FiscalIssued, doc.Status)
	assert.Equal(t, "135240000000001", doc.AuthorizationProtocol)
	require.NotNil(t, doc.EmittedAt)
	assert.Equal(t, emittedAt, *doc.EmittedAt)
}

func TestFiscalRepo_MarkIssued(t *testing.T) {
	dbConn, mock := newMockDB(t)

	emittedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE fiscal_documents").
		WithArgs(entity.FiscalIssued, "135240000000001", "<bpe/>", emittedAt,
			"BK123456", entity.FiscalIssued, entity.FiscalCanceled).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := db.NewFiscalRepo(dbConn)
	require.NoError(t, r.MarkIssued(context.Background(), "BK123456", "135240000000001", "<bpe/>", emittedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFiscalRepo_MarkIssuedTerminal(t *testing.T) {
	dbConn, mock := newMockDB(t)

	// The guarded update matches no rows when the document is already
	// issued or canceled.
	mock.ExpectExec("UPDATE fiscal_documents").
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := db.NewFiscalRepo(dbConn)
	err := r.MarkIssued(context.Background(), "BK123456", "p", "x", time.Now())
	assert.ErrorIs(t, err, db.ErrTerminalStatus)
}

func TestFiscalRepo_MarkPendingOnlyFromFailed(t *testing.T) {
	dbConn, mock := newMockDB(t)

	mock.ExpectExec("UPDATE fiscal_documents").
		WithArgs(entity.FiscalPending, "BK123456", entity.FiscalFailed).
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := db.NewFiscalRepo(dbConn)
	assert.ErrorIs(t, r.MarkPending(context.Background(), "BK123456"), db.ErrTerminalStatus)
}
