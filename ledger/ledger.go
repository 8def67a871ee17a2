package ledger

import (
	"context"
	"errors"
	"fmt"
	"passagens/entity"
	"sync"
	"time"
)

var (
	ErrSeatUnavailable  = errors.New("seat unavailable")
	ErrSeatNotHeld      = errors.New("seat not held by this token")
	ErrCapacityExceeded = errors.New("trip capacity exceeded")
	ErrUnknownSeat      = errors.New("seat code not in trip layout")
)

type TripStore interface {
	Get(ctx context.Context, tripID string) (entity.Trip, error)
}

type OccupancyStore interface {
	OccupiedCodes(ctx context.Context, tripID string) ([]string, error)
}

type hold struct {
	token     string
	expiresAt time.Time
	pinned    bool
}

type tripState struct {
	mu    sync.Mutex
	holds map[string]hold
}

// Ledger is the authoritative occupancy map for trips. Holds are in-memory
// and token-bound with a bounded lifetime; durable occupancy lives in the
// occupancy store and is written only by the sale transaction. Locking is
// striped per trip.
type Ledger struct {
	trips TripStore
	seats OccupancyStore
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	state map[string]*tripState
}

func New(trips TripStore, seats OccupancyStore, holdTTL time.Duration) *Ledger {
	return &Ledger{
		trips: trips,
		seats: seats,
		ttl:   holdTTL,
		now:   time.Now,
		state: map[string]*tripState{},
	}
}

// Hold reserves a seat for the token. Re-holding a seat already held by the
// same token refreshes its expiry.
func (l *Ledger) Hold(ctx context.Context, tripID, seatCode, token string) error {
	trip, err := l.trips.Get(ctx, tripID)
	if err != nil {
		return fmt.Errorf("getting trip: %w", err)
	}
	if !seatInLayout(trip, seatCode) {
		return ErrUnknownSeat
	}

	occupied, err := l.seats.OccupiedCodes(ctx, tripID)
	if err != nil {
		return fmt.Errorf("reading occupancy: %w", err)
	}

	ts := l.tripState(tripID)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	l.pruneLocked(ts)

	for _, code := range occupied {
		if code == seatCode {
			return ErrSeatUnavailable
		}
	}

	if h, ok := ts.holds[seatCode]; ok {
		if h.token != token {
			return ErrSeatUnavailable
		}
		h.expiresAt = l.now().Add(l.ttl)
		ts.holds[seatCode] = h
		return nil
	}

	if uint(len(occupied)+len(ts.holds)) >= trip.SeatCapacity {
		return ErrCapacityExceeded
	}

	ts.holds[seatCode] = hold{
		token:     token,
		expiresAt: l.now().Add(l.ttl),
	}

	return nil
}

// Release returns a held seat to available if the token matches. Releasing
// a seat that is not held, held by another token, or mid-confirmation is a
// no-op.
func (l *Ledger) Release(tripID, seatCode, token string) {
	ts := l.tripState(tripID)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	l.pruneLocked(ts)

	h, ok := ts.holds[seatCode]
	if !ok || h.token != token || h.pinned {
		return
	}

	delete(ts.holds, seatCode)
}

// Confirm pins a set of held seats ahead of the durable write. All seats
// must be held by the token; otherwise nothing changes. Pinned holds do not
// expire or release until Complete or Abort.
func (l *Ledger) Confirm(tripID string, seatCodes []string, token string) error {
	ts := l.tripState(tripID)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	l.pruneLocked(ts)

	for _, code := range seatCodes {
		h, ok := ts.holds[code]
		if !ok || h.token != token {
			return fmt.Errorf("seat %s: %w", code, ErrSeatNotHeld)
		}
	}

	for _, code := range seatCodes {
		h := ts.holds[code]
		h.pinned = true
		ts.holds[code] = h
	}

	return nil
}

// Complete consumes the pinned holds after the seats became durably
// occupied.
func (l *Ledger) Complete(tripID string, seatCodes []string, token string) {
	ts := l.tripState(tripID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for _, code := range seatCodes {
		if h, ok := ts.holds[code]; ok && h.token == token {
			delete(ts.holds, code)
		}
	}
}

// Abort unpins holds after a failed durable write, leaving them held with a
// fresh expiry so the booking flow can retry.
func (l *Ledger) Abort(tripID string, seatCodes []string, token string) {
	ts := l.tripState(tripID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for _, code := range seatCodes {
		if h, ok := ts.holds[code]; ok && h.token == token {
			h.pinned = false
			h.expiresAt = l.now().Add(l.ttl)
			ts.holds[code] = h
		}
	}
}

// SeatMap returns every seat in the trip layout with its current status.
func (l *Ledger) SeatMap(ctx context.Context, tripID string) ([]entity.Seat, error) {
	trip, err := l.trips.Get(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("getting trip: %w", err)
	}

	occupied, err := l.seats.OccupiedCodes(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("reading occupancy: %w", err)
	}
	occupiedSet := make(map[string]bool, len(occupied))
	for _, code := range occupied {
		occupiedSet[code] = true
	}

	ts := l.tripState(tripID)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	l.pruneLocked(ts)

	var seats []entity.Seat
	for _, code := range Layout(trip) {
		status := entity.SeatAvailable
		if occupiedSet[code] {
			status = entity.SeatOccupied
		} else if _, held := ts.holds[code]; held {
			status = entity.SeatHeld
		}

		seats = append(seats, entity.Seat{
			TripID: tripID,
			Code:   code,
			Status: status,
		})
	}

	return seats, nil
}

// Run sweeps expired holds until ctx is done.
func (l *Ledger) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Ledger) sweep() {
	l.mu.Lock()
	states := make([]*tripState, 0, len(l.state))
	for _, ts := range l.state {
		states = append(states, ts)
	}
	l.mu.Unlock()

	for _, ts := range states {
		ts.mu.Lock()
		l.pruneLocked(ts)
		ts.mu.Unlock()
	}
}

func (l *Ledger) tripState(tripID string) *tripState {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts, ok := l.state[tripID]
	if !ok {
		ts = &tripState{holds: map[string]hold{}}
		l.state[tripID] = ts
	}
	return ts
}

func (l *Ledger) pruneLocked(ts *tripState) {
	now := l.now()
	for code, h := range ts.holds {
		if !h.pinned && now.After(h.expiresAt) {
			delete(ts.holds, code)
		}
	}
}

// Layout derives the seat codes for a trip: buses seat 2-2 (columns A-D),
// boats 3-3 (columns A-F), row numbers from 1. The last row may be partial
// so the layout size always equals the seat capacity.
func Layout(trip entity.Trip) []string {
	perRow := trip.SeatsPerRow()
	codes := make([]string, 0, trip.SeatCapacity)

	for i := 0; uint(i) < trip.SeatCapacity; i++ {
		row := i/perRow + 1
		column := rune('A' + i%perRow)
		codes = append(codes, fmt.Sprintf("%c%d", column, row))
	}

	return codes
}

func seatInLayout(trip entity.Trip, seatCode string) bool {
	for _, code := range Layout(trip) {
		if code == seatCode {
			return true
		}
	}
	return false
}
