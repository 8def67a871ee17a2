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

func CreateTripsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS trips (
		trip_id UUID PRIMARY KEY,
		origin VARCHAR(255) NOT NULL,
		destination VARCHAR(255) NOT NULL,
		departure_time VARCHAR(5) NOT NULL,
		arrival_time VARCHAR(5) NOT NULL,
		trip_date DATE NOT NULL,
		price_amount NUMERIC(10, 2) NOT NULL,
		price_currency CHAR(3) NOT NULL,
		transport_mode VARCHAR(10) NOT NULL,
		seat_capacity INTEGER NOT NULL,
		company VARCHAR(255) NOT NULL
	);`)
	return err
}

type TripRepo struct {
	db *sqlx.DB
}

func NewTripRepo(db *sqlx.DB) TripRepo {
	return TripRepo{
		db: db,
	}
}

func (r TripRepo) Add(ctx context.Context, trip entity.Trip) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO trips
		(trip_id, origin, destination, departure_time, arrival_time, trip_date,
		price_amount, price_currency, transport_mode, seat_capacity, company)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`,
		trip.ID, trip.Origin, trip.Destination, trip.DepartureTime, trip.ArrivalTime,
		trip.Date, trip.Price.Amount, trip.Price.Currency, trip.TransportMode,
		trip.SeatCapacity, trip.Company)
	return err
}

func (r TripRepo) Get(ctx context.Context, tripID string) (entity.Trip, error) {
	row := r.db.QueryRowxContext(ctx, `SELECT trip_id, origin, destination,
		departure_time, arrival_time, trip_date, price_amount, price_currency,
		transport_mode, seat_capacity, company
		FROM trips WHERE trip_id = $1`, tripID)

	var t entity.Trip
	err := row.Scan(&t.ID, &t.Origin, &t.Destination, &t.DepartureTime, &t.ArrivalTime,
		&t.Date, &t.Price.Amount, &t.Price.Currency, &t.TransportMode,
		&t.SeatCapacity, &t.Company)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Trip{}, ErrNotFound
	}
	if err != nil {
		return entity.Trip{}, fmt.Errorf("scanning trip: %w", err)
	}

	return t, nil
}

func (r TripRepo) List(ctx context.Context) ([]entity.Trip, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT trip_id, origin, destination,
		departure_time, arrival_time, trip_date, price_amount, price_currency,
		transport_mode, seat_capacity, company
		FROM trips ORDER BY trip_date, departure_time`)
	if err != nil {
		return nil, fmt.Errorf("querying db: %w", err)
	}
	defer rows.Close()

	var trips []entity.Trip
	for rows.Next() {
		var t entity.Trip
		if err := rows.Scan(&t.ID, &t.Origin, &t.Destination, &t.DepartureTime, &t.ArrivalTime,
			&t.Date, &t.Price.Amount, &t.Price.Currency, &t.TransportMode,
			&t.SeatCapacity, &t.Company); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		trips = append(trips, t)
	}

	return trips, rows.Err()
}
