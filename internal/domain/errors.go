package domain

import "errors"

var (
	// ErrSlotTaken is returned when a lock attempt loses the race for a slot.
	ErrSlotTaken = errors.New("slot is already locked")
	// ErrSlotUnavailable is returned when the requested slot is already booked.
	ErrSlotUnavailable = errors.New("slot is no longer available")
	ErrBookingNotFound = errors.New("booking not found")
	ErrLabNotFound     = errors.New("lab not found")
	ErrTestNotFound    = errors.New("test not found")
)
