package entity

import "time"

const (
	TransportBus  = "bus"
	TransportBoat = "boat"
)

// Trip is a published departure. Immutable once created; SeatCapacity is a
// ceiling, not a live counter.
type Trip struct {
	ID            string    `json:"trip_id" db:"trip_id"`
	Origin        string    `json:"origin" db:"origin"`
	Destination   string    `json:"destination" db:"destination"`
	DepartureTime string    `json:"departure_time" db:"departure_time"`
	ArrivalTime   string    `json:"arrival_time" db:"arrival_time"`
	Date          time.Time `json:"date" db:"trip_date"`
	Price         Money     `json:"price"`
	TransportMode string    `json:"transport_mode" db:"transport_mode"`
	SeatCapacity  uint      `json:"seat_capacity" db:"seat_capacity"`
	Company       string    `json:"company" db:"company"`
}

// SeatsPerRow returns the cabin layout width: buses seat 2-2, boats 3-3.
func (t Trip) SeatsPerRow() int {
	if t.TransportMode == TransportBoat {
		return 6
	}
	return 4
}

type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

const (
	SeatAvailable = "available"
	SeatHeld      = "held"
	SeatOccupied  = "occupied"
)

type Seat struct {
	TripID string `json:"trip_id"`
	Code   string `json:"seat_code"`
	Status string `json:"status"`
}

type Passenger struct {
	FullName   string `json:"full_name"`
	DocumentID string `json:"document_id"`
	Phone      string `json:"phone,omitempty"`
	SeatCode   string `json:"seat_code"`
}
