package wizard

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rapidlab/labbooking/internal/domain"
	"github.com/rapidlab/labbooking/internal/service/booking"
	"github.com/rapidlab/labbooking/internal/session"
)

var (
	ErrFlowClosed         = errors.New("reschedule flow is closed")
	ErrRescheduleInFlight = errors.New("reschedule already in progress")
)

// RescheduleFlow changes an existing booking's date and time. It reuses the
// same slot rendering and eager locking as the wizard, but trades latency
// for consistency on completion: instead of patching local state it asks
// the caller to reload every booking list in full.
type RescheduleFlow struct {
	schedule

	bookings  BookingAPI
	logger    *zap.Logger
	bookingID string
	reload    func()

	open     bool
	inFlight bool
	message  string
}

// NewReschedule opens a flow for an existing booking. reload is invoked
// after a successful reschedule and is expected to re-fetch the booking
// lists from the authority.
func NewReschedule(availability AvailabilityClient, locks LockClient, bookings BookingAPI,
	logger *zap.Logger, clock func() time.Time, profile session.Profile,
	bookingID, labName string, reload func()) *RescheduleFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RescheduleFlow{
		schedule:  newSchedule(availability, locks, clock, labName, profile.UserID),
		bookings:  bookings,
		logger:    logger,
		bookingID: bookingID,
		reload:    reload,
		open:      true,
	}
}

func (f *RescheduleFlow) Open() bool      { return f.open }
func (f *RescheduleFlow) Message() string { return f.message }

// SelectSlot locks the target slot on selection, as the wizard does.
func (f *RescheduleFlow) SelectSlot(ctx context.Context, value string) error {
	if !f.open {
		return ErrFlowClosed
	}
	if err := f.schedule.SelectSlot(ctx, value); err != nil {
		f.message = err.Error()
		return err
	}
	f.message = ""
	return nil
}

// Submit re-checks the single target slot against the authority and, only
// if it is still free, issues the booking update. On a conflict the flow
// stays open with a message and no update is sent. On success the flow
// closes and the reload hook fires.
func (f *RescheduleFlow) Submit(ctx context.Context) error {
	if !f.open {
		return ErrFlowClosed
	}
	if f.inFlight {
		return ErrRescheduleInFlight
	}
	if f.selectedDate == "" || f.selectedTime == "" {
		f.message = ErrScheduleIncomplete.Error()
		return ErrScheduleIncomplete
	}

	f.inFlight = true
	defer func() { f.inFlight = false }()

	available, err := f.availability.CheckSlot(ctx, f.labName, f.selectedDate, f.selectedTime)
	if err != nil {
		f.message = err.Error()
		return err
	}
	if !available {
		// The slot was taken between render and click; refresh the advisory
		// set so it shows as booked.
		f.refreshBooked(ctx)
		f.message = domain.ErrSlotUnavailable.Error()
		return domain.ErrSlotUnavailable
	}

	if _, err := f.bookings.UpdateBooking(ctx, f.bookingID, booking.UpdateBookingInput{
		AppointmentDate: f.selectedDate,
		AppointmentTime: f.selectedTime,
	}); err != nil {
		if errors.Is(err, domain.ErrSlotUnavailable) {
			f.refreshBooked(ctx)
		}
		f.message = err.Error()
		return err
	}

	f.logger.Info("booking rescheduled",
		zap.String("booking_id", f.bookingID),
		zap.String("date", f.selectedDate),
		zap.String("time", f.selectedTime))

	f.open = false
	f.message = ""
	if f.reload != nil {
		f.reload()
	}
	return nil
}

// Close abandons the flow. Any lock taken during selection is left to
// expire server-side.
func (f *RescheduleFlow) Close() {
	f.open = false
}
