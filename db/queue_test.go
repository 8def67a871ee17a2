package db_test

import (
	"context"
	"testing"
	"time"

	"passagens/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRepo_List(t *testing.T) {
	dbConn, mock := newMockDB(t)

	queuedAt := time.Now().UTC()
	mock.ExpectQuery("SELECT id, booking_reference, queued_at FROM pending_sync_queue ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_reference", "queued_at"}).
			AddRow(1, "BK000001", queuedAt).
			AddRow(2, "BK000002", queuedAt))

	r := db.NewQueueRepo(dbConn)
	entries, err := r.List(context.Background())
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "BK000001", entries[0].BookingReference)
	assert.Equal(t, "BK000002", entries[1].BookingReference)
}

func TestQueueRepo_Append(t *testing.T) {
	dbConn, mock := newMockDB(t)

	queuedAt := time.Now().UTC()
	mock.ExpectExec("INSERT INTO pending_sync_queue").
		WithArgs("BK000001", queuedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := db.NewQueueRepo(dbConn)
	require.NoError(t, r.Append(context.Background(), "BK000001", queuedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepo_Remove(t *testing.T) {
	dbConn, mock := newMockDB(t)

	mock.ExpectExec("DELETE FROM pending_sync_queue").
		WithArgs("BK000001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := db.NewQueueRepo(dbConn)
	require.NoError(t, r.Remove(context.Background(), "BK000001"))
}

func TestQueueRepo_RemoveMissing(t *testing.T) {
	dbConn, mock := newMockDB(t)

	mock.ExpectExec("DELETE FROM pending_sync_queue").
		WithArgs("BK999999").
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := db.NewQueueRepo(dbConn)
	assert.Error(t, r.Remove(context.Background(), "BK999999"))
}
