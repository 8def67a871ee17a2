package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"passagens/entity"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func CreateSalesTables(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS sales (
		booking_reference VARCHAR(16) PRIMARY KEY,
		trip_id UUID NOT NULL,
		total_amount NUMERIC(10, 2) NOT NULL,
		currency CHAR(3) NOT NULL,
		payment_method VARCHAR(32) NOT NULL,
		payment_status VARCHAR(16) NOT NULL,
		offline_sale BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	);`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS sale_passengers (
		booking_reference VARCHAR(16) NOT NULL,
		full_name VARCHAR(255) NOT NULL,
		document_id VARCHAR(32) NOT NULL,
		phone VARCHAR(32),
		seat_code VARCHAR(4) NOT NULL
	);`)
	return err
}

type SaleRepo struct {
	db *sqlx.DB
}

func NewSaleRepo(db *sqlx.DB) SaleRepo {
	return SaleRepo{
		db: db,
	}
}

// Create stores the sale, its passengers, the occupied seats and the pending
// fiscal document in one serializable transaction. inTx runs inside the same
// transaction so the caller can append the sale to the sync queue or publish
// its completion event atomically with the record.
func (r SaleRepo) Create(ctx context.Context, sale entity.Sale, tripCapacity uint, inTx func(context.Context, *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := create(ctx, tx, sale, tripCapacity, inTx); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func create(ctx context.Context, tx *sql.Tx, sale entity.Sale, tripCapacity uint, inTx func(context.Context, *sql.Tx) error) error {
	row := tx.QueryRowContext(ctx,
		"SELECT count(*) FROM occupied_seats WHERE trip_id = $1", sale.TripID)
	var seatsOccupied uint
	if err := row.Scan(&seatsOccupied); err != nil {
		return fmt.Errorf("counting occupied seats: %w", err)
	}

	seatsAvailable := tripCapacity - seatsOccupied
	if uint(len(sale.Passengers)) > seatsAvailable {
		return capacityExceededError{
			seatsAvailable: seatsAvailable,
			seatsRequested: uint(len(sale.Passengers)),
		}
	}

	for _, p := range sale.Passengers {
		row := tx.QueryRowContext(ctx,
			"SELECT count(*) FROM occupied_seats WHERE trip_id = $1 AND seat_code = $2",
			sale.TripID, p.SeatCode)
		var taken uint
		if err := row.Scan(&taken); err != nil {
			return fmt.Errorf("checking seat %s: %w", p.SeatCode, err)
		}
		if taken > 0 {
			return fmt.Errorf("seat %s: %w", p.SeatCode, ErrSeatTaken)
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO occupied_seats
			(trip_id, seat_code, booking_reference)
			VALUES ($1, $2, $3);`,
			sale.TripID, p.SeatCode, sale.BookingReference); err != nil {
			return fmt.Errorf("occupying seat %s: %w", p.SeatCode, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO sales
		(booking_reference, trip_id, total_amount, currency, payment_method,
		payment_status, offline_sale, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
		sale.BookingReference, sale.TripID, sale.Total.Amount, sale.Total.Currency,
		sale.PaymentMethod, sale.PaymentStatus, sale.OfflineSale, sale.CreatedAt); err != nil {
		return fmt.Errorf("inserting sale: %w", err)
	}

	for _, p := range sale.Passengers {
		if _, err := tx.ExecContext(ctx, `INSERT INTO sale_passengers
			(booking_reference, full_name, document_id, phone, seat_code)
			VALUES ($1, $2, $3, $4, $5);`,
			sale.BookingReference, p.FullName, p.DocumentID, p.Phone, p.SeatCode); err != nil {
			return fmt.Errorf("inserting passenger: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO fiscal_documents
		(booking_reference, status)
		VALUES ($1, $2);`,
		sale.BookingReference, entity.FiscalPending); err != nil {
		return fmt.Errorf("inserting fiscal document: %w", err)
	}

	if inTx != nil {
		if err := inTx(ctx, tx); err != nil {
			return err
		}
	}

	return nil
}

// Cancel marks the sale canceled, cascades to its fiscal document and frees
// the sale's seats. An already-issued document keeps its status and gets a
// note instead. Returns the seat codes released.
func (r SaleRepo) Cancel(ctx context.Context, bookingReference string, inTx func(context.Context, *sql.Tx, []string) error) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	released, err := cancel(ctx, tx, bookingReference, inTx)
	if err != nil {
		return nil, errors.Join(err, tx.Rollback())
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return released, nil
}

func cancel(ctx context.Context, tx *sql.Tx, bookingReference string, inTx func(context.Context, *sql.Tx, []string) error) ([]string, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT payment_status FROM sales WHERE booking_reference = $1 FOR UPDATE",
		bookingReference)
	var paymentStatus string
	err := row.Scan(&paymentStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locking sale: %w", err)
	}
	if paymentStatus == entity.PaymentCanceled {
		return nil, ErrAlreadyCanceled
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE sales SET payment_status = $1 WHERE booking_reference = $2",
		entity.PaymentCanceled, bookingReference); err != nil {
		return nil, fmt.Errorf("updating sale: %w", err)
	}

	row = tx.QueryRowContext(ctx,
		"SELECT status FROM fiscal_documents WHERE booking_reference = $1 FOR UPDATE",
		bookingReference)
	var fiscalStatus string
	if err := row.Scan(&fiscalStatus); err != nil {
		return nil, fmt.Errorf("locking fiscal document: %w", err)
	}

	if fiscalStatus == entity.FiscalIssued {
		// Issued is terminal: record the cancellation, keep the status.
		if _, err := tx.ExecContext(ctx,
			"UPDATE fiscal_documents SET note = $1 WHERE booking_reference = $2",
			"sale canceled after issuance", bookingReference); err != nil {
			return nil, fmt.Errorf("noting fiscal document: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			"UPDATE fiscal_documents SET status = $1 WHERE booking_reference = $2",
			entity.FiscalCanceled, bookingReference); err != nil {
			return nil, fmt.Errorf("canceling fiscal document: %w", err)
		}
	}

	rows, err := tx.QueryContext(ctx,
		"DELETE FROM occupied_seats WHERE booking_reference = $1 RETURNING seat_code",
		bookingReference)
	if err != nil {
		return nil, fmt.Errorf("releasing seats: %w", err)
	}
	defer rows.Close()

	var released []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scanning released seat: %w", err)
		}
		released = append(released, code)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM pending_sync_queue WHERE booking_reference = $1",
		bookingReference); err != nil {
		return nil, fmt.Errorf("removing queue entry: %w", err)
	}

	if inTx != nil {
		if err := inTx(ctx, tx, released); err != nil {
			return nil, err
		}
	}

	return released, nil
}

func (r SaleRepo) Exists(ctx context.Context, bookingReference string) (bool, error) {
	row := r.db.QueryRowxContext(ctx,
		"SELECT count(*) FROM sales WHERE booking_reference = $1", bookingReference)

	var n int
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("checking booking reference: %w", err)
	}

	return n > 0, nil
}

func (r SaleRepo) Get(ctx context.Context, bookingReference string) (entity.Sale, error) {
	row := r.db.QueryRowxContext(ctx, `SELECT booking_reference, trip_id,
		total_amount, currency, payment_method, payment_status, offline_sale, created_at
		FROM sales WHERE booking_reference = $1`, bookingReference)

	var s entity.Sale
	err := row.Scan(&s.BookingReference, &s.TripID, &s.Total.Amount, &s.Total.Currency,
		&s.PaymentMethod, &s.PaymentStatus, &s.OfflineSale, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Sale{}, ErrNotFound
	}
	if err != nil {
		return entity.Sale{}, fmt.Errorf("scanning sale: %w", err)
	}

	s.Passengers, err = r.passengers(ctx, bookingReference)
	if err != nil {
		return entity.Sale{}, err
	}

	return s, nil
}

// List returns sales ordered by creation time, most recent first.
func (r SaleRepo) List(ctx context.Context) ([]entity.Sale, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT booking_reference, trip_id,
		total_amount, currency, payment_method, payment_status, offline_sale, created_at
		FROM sales ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying db: %w", err)
	}
	defer rows.Close()

	var sales []entity.Sale
	for rows.Next() {
		var s entity.Sale
		if err := rows.Scan(&s.BookingReference, &s.TripID, &s.Total.Amount, &s.Total.Currency,
			&s.PaymentMethod, &s.PaymentStatus, &s.OfflineSale, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sales {
		sales[i].Passengers, err = r.passengers(ctx, sales[i].BookingReference)
		if err != nil {
			return nil, err
		}
	}

	return sales, nil
}

func (r SaleRepo) passengers(ctx context.Context, bookingReference string) ([]entity.Passenger, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT full_name, document_id,
		coalesce(phone, ''), seat_code
		FROM sale_passengers WHERE booking_reference = $1`, bookingReference)
	if err != nil {
		return nil, fmt.Errorf("querying passengers: %w", err)
	}
	defer rows.Close()

	var passengers []entity.Passenger
	for rows.Next() {
		var p entity.Passenger
		if err := rows.Scan(&p.FullName, &p.DocumentID, &p.Phone, &p.SeatCode); err != nil {
			return nil, fmt.Errorf("scanning passenger: %w", err)
		}

		passengers = append(passengers, p)
	}

	return passengers, rows.Err()
}
