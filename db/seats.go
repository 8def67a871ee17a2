package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func CreateOccupiedSeatsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS occupied_seats (
		trip_id UUID NOT NULL,
		seat_code VARCHAR(4) NOT NULL,
		booking_reference VARCHAR(16) NOT NULL,
		PRIMARY KEY (trip_id, seat_code)
	);`)
	return err
}

// SeatRepo reads durable occupancy. Writes happen only inside the sale
// transaction in SaleRepo, so occupancy and sale records cannot drift.
type SeatRepo struct {
	db *sqlx.DB
}

func NewSeatRepo(db *sqlx.DB) SeatRepo {
	return SeatRepo{
		db: db,
	}
}

func (r SeatRepo) OccupiedCodes(ctx context.Context, tripID string) ([]string, error) {
	rows, err := r.db.QueryxContext(ctx,
		"SELECT seat_code FROM occupied_seats WHERE trip_id = $1", tripID)
	if err != nil {
		return nil, fmt.Errorf("querying db: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		codes = append(codes, code)
	}

	return codes, rows.Err()
}

func (r SeatRepo) OccupiedCount(ctx context.Context, tripID string) (uint, error) {
	row := r.db.QueryRowxContext(ctx,
		"SELECT count(*) FROM occupied_seats WHERE trip_id = $1", tripID)

	var n uint
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting occupied seats: %w", err)
	}

	return n, nil
}
