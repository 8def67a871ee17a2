package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func CreatePendingSyncQueueTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS pending_sync_queue (
		id BIGSERIAL PRIMARY KEY,
		booking_reference VARCHAR(16) NOT NULL UNIQUE,
		queued_at TIMESTAMP WITH TIME ZONE NOT NULL
	);`)
	return err
}

type QueueEntry struct {
	ID               int64     `db:"id"`
	BookingReference string    `db:"booking_reference"`
	QueuedAt         time.Time `db:"queued_at"`
}

// QueueRepo persists the sales awaiting fiscal submission. Entries are
// appended in the sale transaction and removed only after a confirmed
// successful submission (or when the sale is canceled before issuance).
type QueueRepo struct {
	db *sqlx.DB
}

func NewQueueRepo(db *sqlx.DB) QueueRepo {
	return QueueRepo{
		db: db,
	}
}

// AppendTx adds the sale to the tail of the queue inside the caller's
// transaction. Re-queueing the same reference is a no-op.
func (r QueueRepo) AppendTx(ctx context.Context, tx *sql.Tx, bookingReference string, queuedAt time.Time) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO pending_sync_queue
		(booking_reference, queued_at)
		VALUES ($1, $2) ON CONFLICT DO NOTHING;`,
		bookingReference, queuedAt)
	return err
}

// Append adds the sale to the tail of the queue outside any transaction.
// Used when an issue-now submission fails and the sale falls back to
// queueing.
func (r QueueRepo) Append(ctx context.Context, bookingReference string, queuedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO pending_sync_queue
		(booking_reference, queued_at)
		VALUES ($1, $2) ON CONFLICT DO NOTHING;`,
		bookingReference, queuedAt)
	return err
}

// List returns queue entries strictly in insertion order.
func (r QueueRepo) List(ctx context.Context) ([]QueueEntry, error) {
	rows, err := r.db.QueryxContext(ctx,
		"SELECT id, booking_reference, queued_at FROM pending_sync_queue ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying db: %w", err)
	}
	defer rows.Close()

	var entries []QueueEntry
	for rows.Next() {
		var e QueueEntry
		if err := rows.Scan(&e.ID, &e.BookingReference, &e.QueuedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (r QueueRepo) Remove(ctx context.Context, bookingReference string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM pending_sync_queue WHERE booking_reference = $1", bookingReference)
	if err != nil {
		return fmt.Errorf("executing delete query: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected exec result: %d rows affected", n)
	}

	return nil
}
