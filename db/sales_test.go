package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"passagens/db"
	"passagens/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func testSale() entity.Sale {
	return entity.Sale{
		BookingReference: "BK123456",
		TripID:           "7c9f2da0-0000-0000-0000-000000000001",
		Passengers: []entity.Passenger{
			{FullName: "Maria dos Santos", DocumentID: "123.456.789-00", SeatCode: "A1"},
		},
		Total:         entity.Money{Amount: "120.00", Currency: "BRL"},
		PaymentMethod: "cash",
		PaymentStatus: entity.PaymentCompleted,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestSaleRepo_Create(t *testing.T) {
	dbConn, mock := newMockDB(t)
	sale := testSale()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM occupied_seats WHERE trip_id = \$1$`).
		WithArgs(sale.TripID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT count\(\*\) FROM occupied_seats WHERE trip_id = \$1 AND seat_code = \$2`).
		WithArgs(sale.TripID, "A1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO occupied_seats").
		WithArgs(sale.TripID, "A1", sale.BookingReference).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO sales").
		WithArgs(sale.BookingReference, sale.TripID, "120.00", "BRL",
			"cash", entity.PaymentCompleted, false, sale.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO sale_passengers").
		WithArgs(sale.BookingReference, "Maria dos Santos", "123.456.789-00", "", "A1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO fiscal_documents").
		WithArgs(sale.BookingReference, entity.FiscalPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var hookRan bool
	r := db.NewSaleRepo(dbConn)
	err := r.Create(context.Background(), sale, 8, func(_ context.Context, tx *sql.Tx) error {
		hookRan = true
		require.NotNil(t, tx)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, hookRan)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleRepo_CreateCapacityExceeded(t *testing.T) {
	dbConn, mock := newMockDB(t)
	sale := testSale()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM occupied_seats WHERE trip_id = \$1$`).
		WithArgs(sale.TripID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(8))
	mock.ExpectRollback()

	r := db.NewSaleRepo(dbConn)
	err := r.Create(context.Background(), sale, 8, nil)
	require.Error(t, err)
	assert.True(t, db.IsCapacityExceeded(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleRepo_CreateSeatTaken(t *testing.T) {
	dbConn, mock := newMockDB(t)
	sale := testSale()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM occupied_seats WHERE trip_id = \$1$`).
		WithArgs(sale.TripID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM occupied_seats WHERE trip_id = \$1 AND seat_code = \$2`).
		WithArgs(sale.TripID, "A1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	r := db.NewSaleRepo(dbConn)
	err := r.Create(context.Background(), sale, 8, nil)
	assert.ErrorIs(t, err, db.ErrSeatTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleRepo_Cancel(t *testing.T) {
	dbConn, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT payment_status FROM sales").
		WithArgs("BK123456").
		WillReturnRows(sqlmock.NewRows([]string{"payment_status"}).AddRow(entity.PaymentCompleted))
	mock.ExpectExec("UPDATE sales SET payment_status").
		WithArgs(entity.PaymentCanceled, "BK123456").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT status FROM fiscal_documents").
		WithArgs("BK123456").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(entity.FiscalPending))
	mock.ExpectExec("UPDATE fiscal_documents SET status").
		WithArgs(entity.FiscalCanceled, "BK123456").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("DELETE FROM occupied_seats").
		WithArgs("BK123456").
		WillReturnRows(sqlmock.NewRows([]string{"seat_code"}).AddRow("A1").AddRow("B1"))
	mock.ExpectExec("DELETE FROM pending_sync_queue").
		WithArgs("BK123456").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var hookReleased []string
	r := db.NewSaleRepo(dbConn)
	released, err := r.Cancel(context.Background(), "BK123456", func(_ context.Context, _ *sql.Tx, released []string) error {
		hookReleased = released
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B1"}, released)
	assert.Equal(t, []string{"A1", "B1"}, hookReleased)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleRepo_CancelIssuedKeepsStatus(t *testing.T) {
	dbConn, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT payment_status FROM sales").
		WithArgs("BK123456").
		WillReturnRows(sqlmock.NewRows([]string{"payment_status"}).AddRow(entity.PaymentCompleted))
	mock.ExpectExec("UPDATE sales SET payment_status").
		WithArgs(entity.PaymentCanceled, "BK123456").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT status FROM fiscal_documents").
		WithArgs("BK123456").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(entity.FiscalIssued))
	// Issued documents keep their status; the cancellation lands in the note.
	mock.ExpectExec("UPDATE fiscal_documents SET note").
		WithArgs("sale canceled after issuance", "BK123456").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("DELETE FROM occupied_seats").
		WithArgs("BK123456").
		WillReturnRows(sqlmock.NewRows([]string{"seat_code"}).AddRow("A1"))
	mock.ExpectExec("DELETE FROM pending_sync_queue").
		WithArgs("BK123456").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	r := db.NewSaleRepo(dbConn)
	released, err := r.Cancel(context.Background(), "BK123456", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, released)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleRepo_CancelNotFound(t *testing.T) {
	dbConn, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT payment_status FROM sales").
		WithArgs("BK999999").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	r := db.NewSaleRepo(dbConn)
	_, err := r.Cancel(context.Background(), "BK999999", nil)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestSaleRepo_CancelAlreadyCanceled(t *testing.T) {
	dbConn, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT payment_status FROM sales").
		WithArgs("BK123456").
		WillReturnRows(sqlmock.NewRows([]string{"payment_status"}).AddRow(entity.PaymentCanceled))
	mock.ExpectRollback()

	r := db.NewSaleRepo(dbConn)
	_, err := r.Cancel(context.Background(), "BK123456", nil)
	assert.ErrorIs(t, err, db.ErrAlreadyCanceled)
}

func TestSaleRepo_GetNotFound(t *testing.T) {
	dbConn, mock := newMockDB(t)

	mock.ExpectQuery("SELECT booking_reference, trip_id").
		WithArgs("BK999999").
		WillReturnError(sql.ErrNoRows)

	r := db.NewSaleRepo(dbConn)
	_, err := r.Get(context.Background(), "BK999999")
	assert.ErrorIs(t, err, db.ErrNotFound)
}
