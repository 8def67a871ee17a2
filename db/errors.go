package db

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("booking reference not found")
	ErrAlreadyCanceled = errors.New("sale already canceled")
	ErrReferenceTaken  = errors.New("booking reference already taken")
	ErrSeatTaken       = errors.New("seat already occupied")
)

type capacityExceededError struct {
	seatsAvailable uint
	seatsRequested uint
}

func (e capacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded: seats available %d, seats requested %d", e.seatsAvailable, e.seatsRequested)
}

func (e capacityExceededError) CapacityExceeded() bool {
	return true
}

// IsCapacityExceeded reports whether err is a trip-capacity violation.
func IsCapacityExceeded(err error) bool {
	var e interface{ CapacityExceeded() bool }
	return errors.As(err, &e) && e.CapacityExceeded()
}
