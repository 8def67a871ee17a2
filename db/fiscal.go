package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"passagens/entity"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrTerminalStatus is returned for transitions out of issued or canceled.
var ErrTerminalStatus = errors.New("fiscal document status is terminal")

func CreateFiscalDocumentsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS fiscal_documents (
		booking_reference VARCHAR(16) PRIMARY KEY,
		status VARCHAR(16) NOT NULL,
		emitted_at TIMESTAMP WITH TIME ZONE,
		authorization_protocol VARCHAR(64),
		payload TEXT,
		note TEXT
	);`)
	return err
}

type FiscalRepo struct {
	db *sqlx.DB
}

func NewFiscalRepo(db *sqlx.DB) FiscalRepo {
	return FiscalRepo{
		db: db,
	}
}

func (r FiscalRepo) Get(ctx context.Context, bookingReference string) (entity.FiscalDocument, error) {
	row := r.db.QueryRowxContext(ctx, `SELECT booking_reference, status, emitted_at,
		coalesce(authorization_protocol, ''), coalesce(payload, ''), coalesce(note, '')
		FROM fiscal_documents WHERE booking_reference = $1`, bookingReference)

	var d entity.FiscalDocument
	err := row.Scan(&d.BookingReference, &d.Status, &d.EmittedAt,
		&d.AuthorizationProtocol, &d.Payload, &d.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.FiscalDocument{}, ErrNotFound
	}
	if err != nil {
		return entity.FiscalDocument{}, fmt.Errorf("scanning fiscal document: %w", err)
	}

	return d, nil
}

func (r FiscalRepo) MarkIssued(ctx context.Context, bookingReference, protocol, payload string, emittedAt time.Time) error {
	return r.transition(ctx, `UPDATE fiscal_documents
		SET status = $1, authorization_protocol = $2, payload = $3, emitted_at = $4
		WHERE booking_reference = $5 AND status NOT IN ($6, $7)`,
		entity.FiscalIssued, protocol, payload, emittedAt,
		bookingReference, entity.FiscalIssued, entity.FiscalCanceled)
}

func (r FiscalRepo) MarkFailed(ctx context.Context, bookingReference, cause string) error {
	return r.transition(ctx, `UPDATE fiscal_documents
		SET status = $1, note = $2
		WHERE booking_reference = $3 AND status NOT IN ($4, $5)`,
		entity.FiscalFailed, cause,
		bookingReference, entity.FiscalIssued, entity.FiscalCanceled)
}

// MarkPending flips a failed document back to pending at the start of a
// retry attempt. Only failed documents qualify.
func (r FiscalRepo) MarkPending(ctx context.Context, bookingReference string) error {
	return r.transition(ctx, `UPDATE fiscal_documents
		SET status = $1
		WHERE booking_reference = $2 AND status = $3`,
		entity.FiscalPending, bookingReference, entity.FiscalFailed)
}

func (r FiscalRepo) transition(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("executing update query: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n != 1 {
		return ErrTerminalStatus
	}

	return nil
}
