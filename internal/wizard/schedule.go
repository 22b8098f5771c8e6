package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rapidlab/labbooking/internal/client"
	"github.com/rapidlab/labbooking/internal/domain"
	"github.com/rapidlab/labbooking/internal/service/booking"
	"github.com/rapidlab/labbooking/internal/slots"
)

// AvailabilityClient is the advisory booked-set source plus the strict
// single-slot check.
type AvailabilityClient interface {
	FetchBooked(ctx context.Context, labName, date string) map[string]struct{}
	CheckSlot(ctx context.Context, labName, date, slot string) (bool, error)
}

// LockClient requests the short-lived hold on a slot at selection time.
type LockClient interface {
	TryLock(ctx context.Context, labName, date, slot, userID string) error
}

// BookingAPI covers booking create and update against the authority.
type BookingAPI interface {
	CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*client.Booking, error)
	UpdateBooking(ctx context.Context, bookingID string, input booking.UpdateBookingInput) (*client.Booking, error)
}

// Mirror receives confirmed bookings for local display.
type Mirror interface {
	Put(b client.Booking) error
}

// SlotState tracks the lock request lifecycle per slot, which is what makes
// the re-entrancy guard testable: a slot in SlotLocking rejects clicks.
type SlotState int

const (
	SlotIdle SlotState = iota
	SlotLocking
	SlotLocked
	SlotFailed
)

var (
	ErrLockInFlight      = errors.New("a lock request for this slot is already in flight")
	ErrSlotNotSelectable = errors.New("slot is not selectable")
)

// schedule is the slot-picking state shared by the booking wizard and the
// reschedule flow: a selected date, the advisory booked set for it, and the
// per-slot lock request states.
type schedule struct {
	availability AvailabilityClient
	locks        LockClient
	clock        func() time.Time

	labName string
	userID  string

	selectedDate string
	selectedTime string
	booked       map[string]struct{}
	states       map[string]SlotState
}

func newSchedule(availability AvailabilityClient, locks LockClient, clock func() time.Time, labName, userID string) schedule {
	if clock == nil {
		clock = time.Now
	}
	return schedule{
		availability: availability,
		locks:        locks,
		clock:        clock,
		labName:      labName,
		userID:       userID,
		booked:       map[string]struct{}{},
		states:       map[string]SlotState{},
	}
}

// SelectDate switches the schedule to a new date. The booked set is fetched
// fresh on every call, including re-selecting the same date: concurrent
// bookings by other users can change availability at any time, so staleness
// is not tolerated here.
func (s *schedule) SelectDate(ctx context.Context, date string) {
	s.selectedDate = date
	s.selectedTime = ""
	s.states = map[string]SlotState{}
	s.refreshBooked(ctx)
}

func (s *schedule) refreshBooked(ctx context.Context) {
	if s.selectedDate == "" {
		s.booked = map[string]struct{}{}
		return
	}
	s.booked = s.availability.FetchBooked(ctx, s.labName, s.selectedDate)
}

// Buckets renders the day's slots for the selected date.
func (s *schedule) Buckets() slots.Buckets {
	return slots.Generate(s.selectedDate, slots.At(s.clock()))
}

func (s *schedule) SlotState(value string) SlotState {
	return s.states[value]
}

func (s *schedule) SelectedDate() string { return s.selectedDate }
func (s *schedule) SelectedTime() string { return s.selectedTime }

// Selectable reports whether a slot can be clicked: not in the past, not in
// the booked set, and no lock request currently in flight for it.
func (s *schedule) Selectable(slot slots.Slot) bool {
	if slot.IsPast {
		return false
	}
	if _, taken := s.booked[slot.Value]; taken {
		return false
	}
	return s.states[slot.Value] != SlotLocking
}

// SelectSlot locks the slot eagerly, the moment it is picked, shrinking the
// race window between "looked free" and "reserved". Selecting a new slot
// supersedes any prior hold from this instance; no unlock is issued, the
// previous lock simply times out server-side.
func (s *schedule) SelectSlot(ctx context.Context, value string) error {
	if s.states[value] == SlotLocking {
		return ErrLockInFlight
	}

	slot, ok := s.findSlot(value)
	if !ok {
		return fmt.Errorf("%w: no slot %q on %s", ErrSlotNotSelectable, value, s.selectedDate)
	}
	if !s.Selectable(slot) {
		return ErrSlotNotSelectable
	}

	s.states[value] = SlotLocking
	if err := s.locks.TryLock(ctx, s.labName, s.selectedDate, value, s.userID); err != nil {
		s.states[value] = SlotFailed
		if errors.Is(err, domain.ErrSlotTaken) {
			// The advisory rendering is stale; refresh it so the slot shows
			// as taken without a manual reload.
			s.refreshBooked(ctx)
		}
		return err
	}

	if s.selectedTime != "" && s.selectedTime != value {
		s.states[s.selectedTime] = SlotIdle
	}
	s.states[value] = SlotLocked
	s.selectedTime = value
	return nil
}

func (s *schedule) findSlot(value string) (slots.Slot, bool) {
	for _, slot := range s.Buckets().All() {
		if slot.Value == value {
			return slot, true
		}
	}
	return slots.Slot{}, false
}
