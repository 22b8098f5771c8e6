// Package wizard implements the patient-side booking workflow: the
// four-stage booking wizard and the reschedule flow. Both run in a
// single-goroutine, event-driven model; suspension only happens across the
// network calls, and in-flight guard flags keep duplicate submissions out.
package wizard

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rapidlab/labbooking/internal/client"
	"github.com/rapidlab/labbooking/internal/domain"
	"github.com/rapidlab/labbooking/internal/service/booking"
	"github.com/rapidlab/labbooking/internal/session"
)

// Stage is the wizard's position. Navigation is strictly linear; Confirmed
// is terminal and cannot be re-entered.
type Stage int

const (
	StageVerify Stage = iota + 1
	StageSchedule
	StageDetails
	StageConfirm
	StageConfirmed
)

var (
	ErrScheduleIncomplete = errors.New("select an appointment date and time to continue")
	ErrDetailsIncomplete  = errors.New("contact number and email are required")
	ErrSubmitInFlight     = errors.New("booking submission already in progress")
	ErrFlowComplete       = errors.New("booking already confirmed")
)

// Entry is the pre-selected test and lab the wizard is opened with.
type Entry struct {
	TestName   string
	TestID     string
	LabName    string
	LabAddress string
	Price      string
}

// Draft accumulates the booking across stages. It is owned exclusively by
// the wizard instance; fields survive back/forward navigation.
type Draft struct {
	TestName     string
	TestID       string
	LabName      string
	LabAddress   string
	Price        string
	SelectedDate string
	SelectedTime string
	BookingFor   domain.BookingFor
	Patient      domain.PatientDetails
}

type Wizard struct {
	schedule

	bookings BookingAPI
	mirror   Mirror
	logger   *zap.Logger
	profile  session.Profile

	stage   Stage
	draft   Draft
	message string

	// Pre-generated before the first submit and reused on every retry:
	// the server deduplicates on bookingID, so a retry after a transport
	// failure must not mint fresh identifiers.
	bookingID  string
	couponCode string

	submitting bool
	confirmed  *client.Booking
}

// New opens a wizard at the Verify stage for the given test and lab. The
// caller supplies the session profile explicitly; the wizard never reads
// identity from ambient state. clock may be nil for wall-clock time.
func New(availability AvailabilityClient, locks LockClient, bookings BookingAPI, mirror Mirror,
	logger *zap.Logger, clock func() time.Time, profile session.Profile, entry Entry) *Wizard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wizard{
		schedule: newSchedule(availability, locks, clock, entry.LabName, profile.UserID),
		bookings: bookings,
		mirror:   mirror,
		logger:   logger,
		profile:  profile,
		stage:    StageVerify,
		draft: Draft{
			TestName:   entry.TestName,
			TestID:     entry.TestID,
			LabName:    entry.LabName,
			LabAddress: entry.LabAddress,
			Price:      entry.Price,
			BookingFor: domain.BookingForSelf,
			Patient: domain.PatientDetails{
				ContactNumber: profile.Phone,
				Email:         profile.Email,
				PatientName:   profile.Name,
			},
		},
	}
}

func (w *Wizard) Stage() Stage     { return w.stage }
func (w *Wizard) Draft() Draft     { return w.draft }
func (w *Wizard) Message() string  { return w.message }
func (w *Wizard) BookingID() string  { return w.bookingID }
func (w *Wizard) CouponCode() string { return w.couponCode }

// Confirmed returns the persisted booking once the wizard reaches the
// terminal stage, nil before that.
func (w *Wizard) Confirmed() *client.Booking { return w.confirmed }

// SelectDate defers to the schedule and mirrors the choice into the draft.
func (w *Wizard) SelectDate(ctx context.Context, date string) {
	w.schedule.SelectDate(ctx, date)
	w.draft.SelectedDate = date
	w.draft.SelectedTime = ""
}

// SelectSlot locks the slot and, on success, records it in the draft. On a
// lost lock race the schedule has already refreshed the booked set; the
// error message is surfaced for the user.
func (w *Wizard) SelectSlot(ctx context.Context, value string) error {
	if err := w.schedule.SelectSlot(ctx, value); err != nil {
		w.message = err.Error()
		return err
	}
	w.draft.SelectedTime = value
	w.message = ""
	return nil
}

func (w *Wizard) SetBookingFor(bf domain.BookingFor) {
	w.draft.BookingFor = bf
}

func (w *Wizard) SetPatientDetails(d domain.PatientDetails) {
	w.draft.Patient = d
}

// Advance moves one stage forward, validating the current stage's guard.
// Guards run at advance time only; a blocked advance records a user-facing
// message and leaves the stage unchanged. Advancing from Confirm submits
// the booking.
func (w *Wizard) Advance(ctx context.Context) error {
	switch w.stage {
	case StageVerify:
		w.stage = StageSchedule
		w.message = ""
		return nil
	case StageSchedule:
		if w.draft.SelectedDate == "" || w.draft.SelectedTime == "" {
			w.message = ErrScheduleIncomplete.Error()
			return ErrScheduleIncomplete
		}
		w.stage = StageDetails
		w.message = ""
		return nil
	case StageDetails:
		if w.draft.Patient.ContactNumber == "" || w.draft.Patient.Email == "" {
			w.message = ErrDetailsIncomplete.Error()
			return ErrDetailsIncomplete
		}
		w.stage = StageConfirm
		w.message = ""
		return nil
	case StageConfirm:
		return w.submit(ctx)
	default:
		return ErrFlowComplete
	}
}

// Back steps to the previous stage without validation or data loss. The
// terminal stage is not re-enterable, so Back is a no-op there and at
// Verify.
func (w *Wizard) Back() {
	if w.stage > StageVerify && w.stage < StageConfirmed {
		w.stage--
		w.message = ""
	}
}

func (w *Wizard) submit(ctx context.Context) error {
	if w.submitting {
		return ErrSubmitInFlight
	}
	w.submitting = true
	defer func() { w.submitting = false }()

	if w.bookingID == "" {
		w.bookingID = domain.NewBookingID(w.clock())
		w.couponCode = domain.NewCouponCode()
	}

	input := booking.CreateBookingInput{
		BookingID:       w.bookingID,
		CouponCode:      w.couponCode,
		UserID:          w.profile.UserID,
		TestID:          w.draft.TestID,
		TestName:        w.draft.TestName,
		LabName:         w.draft.LabName,
		LabAddress:      w.draft.LabAddress,
		Price:           w.draft.Price,
		AppointmentDate: w.draft.SelectedDate,
		AppointmentTime: w.draft.SelectedTime,
		BookingFor:      w.draft.BookingFor,
		Patient:         w.draft.Patient,
	}

	confirmed, err := w.bookings.CreateBooking(ctx, input)
	if err != nil {
		if errors.Is(err, domain.ErrSlotUnavailable) {
			// Lost the slot between lock expiry and submit; the user has to
			// pick again.
			w.refreshBooked(ctx)
		}
		w.message = err.Error()
		return err
	}

	if err := w.mirror.Put(*confirmed); err != nil {
		// The authority accepted the booking; a mirror write failure must
		// not be reported as a booking failure.
		w.logger.Warn("mirror write failed", zap.String("booking_id", confirmed.BookingID), zap.Error(err))
	}

	w.confirmed = confirmed
	w.stage = StageConfirmed
	w.message = ""
	return nil
}
