package wizard

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rapidlab/labbooking/internal/client"
	"github.com/rapidlab/labbooking/internal/domain"
	"github.com/rapidlab/labbooking/internal/service/booking"
	"github.com/rapidlab/labbooking/internal/session"
)

type MockAvailability struct {
	mock.Mock
}

func (m *MockAvailability) FetchBooked(ctx context.Context, labName, date string) map[string]struct{} {
	args := m.Called(ctx, labName, date)
	return args.Get(0).(map[string]struct{})
}

func (m *MockAvailability) CheckSlot(ctx context.Context, labName, date, slot string) (bool, error) {
	args := m.Called(ctx, labName, date, slot)
	return args.Bool(0), args.Error(1)
}

type MockLocks struct {
	mock.Mock
}

func (m *MockLocks) TryLock(ctx context.Context, labName, date, slot, userID string) error {
	args := m.Called(ctx, labName, date, slot, userID)
	return args.Error(0)
}

type MockBookingAPI struct {
	mock.Mock
}

func (m *MockBookingAPI) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*client.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Booking), args.Error(1)
}

func (m *MockBookingAPI) UpdateBooking(ctx context.Context, bookingID string, input booking.UpdateBookingInput) (*client.Booking, error) {
	args := m.Called(ctx, bookingID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Booking), args.Error(1)
}

type MockMirror struct {
	mock.Mock
}

func (m *MockMirror) Put(b client.Booking) error {
	args := m.Called(b)
	return args.Error(0)
}

var testProfile = session.Profile{
	UserID: "user-1",
	Phone:  "9876543210",
	Email:  "a@b.com",
	Name:   "Test Patient",
}

var testEntry = Entry{
	TestName:   "CBC",
	TestID:     "T-42",
	LabName:    "Acme Lab",
	LabAddress: "12 Main St",
	Price:      "290",
}

// fixedClock keeps the generator deterministic: 2025-06-01 09:00.
func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
}

func newTestWizard(avail *MockAvailability, locks *MockLocks, api *MockBookingAPI, mirror *MockMirror) *Wizard {
	return New(avail, locks, api, mirror, nil, fixedClock, testProfile, testEntry)
}

func echoBooking(input booking.CreateBookingInput) *client.Booking {
	return &client.Booking{
		BookingID:       input.BookingID,
		CouponCode:      input.CouponCode,
		UserID:          input.UserID,
		TestName:        input.TestName,
		LabName:         input.LabName,
		Price:           input.Price,
		AppointmentDate: input.AppointmentDate,
		AppointmentTime: input.AppointmentTime,
		Patient:         input.Patient,
		Status:          string(domain.BookingStatusConfirmed),
		PaymentStatus:   string(domain.PaymentStatusPending),
	}
}

func TestWizard_HappyPath(t *testing.T) {
	avail := &MockAvailability{}
	locks := &MockLocks{}
	api := &MockBookingAPI{}
	mirror := &MockMirror{}
	w := newTestWizard(avail, locks, api, mirror)

	ctx := context.Background()
	assert.Equal(t, StageVerify, w.Stage())
	assert.NoError(t, w.Advance(ctx))
	assert.Equal(t, StageSchedule, w.Stage())

	avail.On("FetchBooked", ctx, "Acme Lab", "2025-06-10").Return(map[string]struct{}{}).Once()
	w.SelectDate(ctx, "2025-06-10")

	locks.On("TryLock", ctx, "Acme Lab", "2025-06-10", "10:00", "user-1").Return(nil).Once()
	assert.NoError(t, w.SelectSlot(ctx, "10:00"))
	assert.Equal(t, "10:00", w.Draft().SelectedTime)
	assert.Equal(t, SlotLocked, w.SlotState("10:00"))

	assert.NoError(t, w.Advance(ctx))
	assert.Equal(t, StageDetails, w.Stage())

	w.SetPatientDetails(domain.PatientDetails{ContactNumber: "9876543210", Email: "a@b.com"})
	assert.NoError(t, w.Advance(ctx))
	assert.Equal(t, StageConfirm, w.Stage())

	var submitted booking.CreateBookingInput
	api.On("CreateBooking", ctx, mock.AnythingOfType("booking.CreateBookingInput")).
		Run(func(args mock.Arguments) {
			submitted = args.Get(1).(booking.CreateBookingInput)
		}).
		Return(&client.Booking{}, nil).Once()
	mirror.On("Put", mock.AnythingOfType("client.Booking")).Return(nil).Once()

	assert.NoError(t, w.Advance(ctx))
	assert.Equal(t, StageConfirmed, w.Stage())
	assert.NotNil(t, w.Confirmed())

	assert.Regexp(t, regexp.MustCompile(`^RL-\d+$`), w.BookingID())
	assert.LessOrEqual(t, len(w.BookingID()), 15)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{5}$`), w.CouponCode())

	assert.Equal(t, w.BookingID(), submitted.BookingID)
	assert.Equal(t, "CBC", submitted.TestName)
	assert.Equal(t, "Acme Lab", submitted.LabName)
	assert.Equal(t, "290", submitted.Price)
	assert.Equal(t, "user-1", submitted.UserID)

	avail.AssertExpectations(t)
	locks.AssertExpectations(t)
	api.AssertExpectations(t)
	mirror.AssertExpectations(t)
}

func TestWizard_ScheduleGuardBlocksWithoutTime(t *testing.T) {
	avail := &MockAvailability{}
	locks := &MockLocks{}
	api := &MockBookingAPI{}
	w := newTestWizard(avail, locks, api, &MockMirror{})

	ctx := context.Background()
	assert.NoError(t, w.Advance(ctx)) // Verify -> Schedule

	avail.On("FetchBooked", ctx, "Acme Lab", "2025-06-10").Return(map[string]struct{}{}).Once()
	w.SelectDate(ctx, "2025-06-10")

	// No time selected: advance must block in place with no side effects.
	err := w.Advance(ctx)
	assert.ErrorIs(t, err, ErrScheduleIncomplete)
	assert.Equal(t, StageSchedule, w.Stage())
	assert.NotEmpty(t, w.Message())
	locks.AssertNotCalled(t, "TryLock")
	api.AssertNotCalled(t, "CreateBooking")
}

func TestWizard_DetailsGuardBlocksWithoutContact(t *testing.T) {
	avail := &MockAvailability{}
	locks := &MockLocks{}
	w := newTestWizard(avail, locks, &MockBookingAPI{}, &MockMirror{})

	ctx := context.Background()
	assert.NoError(t, w.Advance(ctx))
	avail.On("FetchBooked", ctx, "Acme Lab", "2025-06-10").Return(map[string]struct{}{}).Once()
	w.SelectDate(ctx, "2025-06-10")
	locks.On("TryLock", ctx, "Acme Lab", "2025-06-10", "10:00", "user-1").Return(nil).Once()
	assert.NoError(t, w.SelectSlot(ctx, "10:00"))
	assert.NoError(t, w.Advance(ctx))

	w.SetPatientDetails(domain.PatientDetails{ContactNumber: "", Email: ""})
	err := w.Advance(ctx)
	assert.ErrorIs(t, err, ErrDetailsIncomplete)
	assert.Equal(t, StageDetails, w.Stage())
}

func TestWizard_IdempotentRetry(t *testing.T) {
	avail := &MockAvailability{}
	locks := &MockLocks{}
	api := &MockBookingAPI{}
	mirror := &MockMirror{}
	w := newTestWizard(avail, locks, api, mirror)

	ctx := context.Background()
	assert.NoError(t, w.Advance(ctx))
	avail.On("FetchBooked", ctx, "Acme Lab", "2025-06-10").Return(map[string]struct{}{}).Once()
	w.SelectDate(ctx, "2025-06-10")
	locks.On("TryLock", ctx, "Acme Lab", "2025-06-10", "10:00", "user-1").Return(nil).Once()
	assert.NoError(t, w.SelectSlot(ctx, "10:00"))
	assert.NoError(t, w.Advance(ctx))
	w.SetPatientDetails(domain.PatientDetails{ContactNumber: "9876543210", Email: "a@b.com"})
	assert.NoError(t, w.Advance(ctx))

	var attempts []booking.CreateBookingInput
	record := func(args mock.Arguments) {
		attempts = append(attempts, args.Get(1).(booking.CreateBookingInput))
	}
	api.On("CreateBooking", ctx, mock.AnythingOfType("booking.CreateBookingInput")).
		Run(record).Return(nil, errors.New("connection reset")).Once()
	api.On("CreateBooking", ctx, mock.AnythingOfType("booking.CreateBookingInput")).
		Run(record).Return(&client.Booking{BookingID: "echo"}, nil).Once()
	mirror.On("Put", mock.AnythingOfType("client.Booking")).Return(nil).Once()

	// First submit fails on transport; stage stays at Confirm for a retry.
	assert.Error(t, w.Advance(ctx))
	assert.Equal(t, StageConfirm, w.Stage())

	// The retry must replay the identical pre-generated identifiers.
	assert.NoError(t, w.Advance(ctx))
	assert.Equal(t, StageConfirmed, w.Stage())
	assert.Len(t, attempts, 2)
	assert.Equal(t, attempts[0].BookingID, attempts[1].BookingID)
	assert.Equal(t, attempts[0].CouponCode, attempts[1].CouponCode)
}

func TestWizard_LockRaceRefreshesBookedSet(t *testing.T) {
	avail := &MockAvailability{}
	locks := &MockLocks{}
	w := newTestWizard(avail, locks, &MockBookingAPI{}, &MockMirror{})

	ctx := context.Background()
	assert.NoError(t, w.Advance(ctx))

	avail.On("FetchBooked", ctx, "Acme Lab", "2025-06-10").Return(map[string]struct{}{}).Once()
	w.SelectDate(ctx, "2025-06-10")

	// The lock race is lost; the refreshed set now shows the slot as taken.
	locks.On("TryLock", ctx, "Acme Lab", "2025-06-10", "10:00", "user-1").
		Return(fmt.Errorf("%w: held by another user", domain.ErrSlotTaken)).Once()
	avail.On("FetchBooked", ctx, "Acme Lab", "2025-06-10").
		Return(map[string]struct{}{"10:00": {}}).Once()

	err := w.SelectSlot(ctx, "10:00")
	assert.ErrorIs(t, err, domain.ErrSlotTaken)
	assert.Equal(t, SlotFailed, w.SlotState("10:00"))
	assert.Empty(t, w.Draft().SelectedTime)
	assert.NotEmpty(t, w.Message())

	// The previously clickable slot is now disabled.
	for _, s := range w.Buckets().All() {
		if s.Value == "10:00" {
			assert.False(t, w.Selectable(s))
		}
	}
	avail.AssertExpectations(t)
}

func TestWizard_InFlightLockRejectsReentry(t *testing.T) {
	avail := &MockAvailability{}
	locks := &MockLocks{}
	w := newTestWizard(avail, locks, &MockBookingAPI{}, &MockMirror{})

	ctx := context.Background()
	assert.NoError(t, w.Advance(ctx))
	avail.On("FetchBooked", ctx, "Acme Lab", "2025-06-10").Return(map[string]struct{}{}).Once()
	w.SelectDate(ctx, "2025-06-10")

	w.states["10:00"] = SlotLocking
	err := w.SelectSlot(ctx, "10:00")
	assert.ErrorIs(t, err, ErrLockInFlight)
	locks.AssertNotCalled(t, "TryLock")
}

func TestWizard_PastSlotNotSelectable(t *testing.T) {
	avail := &MockAvailability{}
	locks := &MockLocks{}
	// Clock fixed at 14:05 on the selected day.
	clock := func() time.Time { return time.Date(2025, 6, 10, 14, 5, 0, 0, time.UTC) }
	w := New(avail, locks, &MockBookingAPI{}, &MockMirror{}, nil, clock, testProfile, testEntry)

	ctx := context.Background()
	assert.NoError(t, w.Advance(ctx))
	avail.On("FetchBooked", ctx, "Acme Lab", "2025-06-10").Return(map[string]struct{}{}).Once()
	w.SelectDate(ctx, "2025-06-10")

	err := w.SelectSlot(ctx, "08:00")
	assert.ErrorIs(t, err, ErrSlotNotSelectable)
	locks.AssertNotCalled(t, "TryLock")

	err = w.SelectSlot(ctx, "14:00")
	assert.ErrorIs(t, err, ErrSlotNotSelectable)
}

func TestWizard_NewSelectionSupersedesPrevious(t *testing.T) {
	avail := &MockAvailability{}
	locks := &MockLocks{}
	w := newTestWizard(avail, locks, &MockBookingAPI{}, &MockMirror{})

	ctx := context.Background()
	assert.NoError(t, w.Advance(ctx))
	avail.On("FetchBooked", ctx, "Acme Lab", "2025-06-10").Return(map[string]struct{}{}).Once()
	w.SelectDate(ctx, "2025-06-10")

	locks.On("TryLock", ctx, "Acme Lab", "2025-06-10", "10:00", "user-1").Return(nil).Once()
	locks.On("TryLock", ctx, "Acme Lab", "2025-06-10", "11:30", "user-1").Return(nil).Once()

	assert.NoError(t, w.SelectSlot(ctx, "10:00"))
	assert.NoError(t, w.SelectSlot(ctx, "11:30"))

	assert.Equal(t, "11:30", w.Draft().SelectedTime)
	assert.Equal(t, SlotLocked, w.SlotState("11:30"))
	assert.Equal(t, SlotIdle, w.SlotState("10:00"))
	// No unlock call exists: superseded holds are left to expire.
	locks.AssertExpectations(t)
}

func TestWizard_BackRetainsDraft(t *testing.T) {
	avail := &MockAvailability{}
	locks := &MockLocks{}
	w := newTestWizard(avail, locks, &MockBookingAPI{}, &MockMirror{})

	ctx := context.Background()
	assert.NoError(t, w.Advance(ctx))
	avail.On("FetchBooked", ctx, "Acme Lab", "2025-06-10").Return(map[string]struct{}{}).Once()
	w.SelectDate(ctx, "2025-06-10")
	locks.On("TryLock", ctx, "Acme Lab", "2025-06-10", "10:00", "user-1").Return(nil).Once()
	assert.NoError(t, w.SelectSlot(ctx, "10:00"))
	assert.NoError(t, w.Advance(ctx))

	w.Back()
	assert.Equal(t, StageSchedule, w.Stage())
	assert.Equal(t, "2025-06-10", w.Draft().SelectedDate)
	assert.Equal(t, "10:00", w.Draft().SelectedTime)

	assert.NoError(t, w.Advance(ctx))
	assert.Equal(t, StageDetails, w.Stage())
}

func TestWizard_BackIsNoopAtVerifyAndConfirmed(t *testing.T) {
	w := newTestWizard(&MockAvailability{}, &MockLocks{}, &MockBookingAPI{}, &MockMirror{})
	w.Back()
	assert.Equal(t, StageVerify, w.Stage())

	w.stage = StageConfirmed
	w.Back()
	assert.Equal(t, StageConfirmed, w.Stage())
	assert.ErrorIs(t, w.Advance(context.Background()), ErrFlowComplete)
}

func TestWizard_MirrorFailureDoesNotFailBooking(t *testing.T) {
	avail := &MockAvailability{}
	locks := &MockLocks{}
	api := &MockBookingAPI{}
	mirror := &MockMirror{}
	w := newTestWizard(avail, locks, api, mirror)

	ctx := context.Background()
	assert.NoError(t, w.Advance(ctx))
	avail.On("FetchBooked", ctx, "Acme Lab", "2025-06-10").Return(map[string]struct{}{}).Once()
	w.SelectDate(ctx, "2025-06-10")
	locks.On("TryLock", ctx, "Acme Lab", "2025-06-10", "10:00", "user-1").Return(nil).Once()
	assert.NoError(t, w.SelectSlot(ctx, "10:00"))
	assert.NoError(t, w.Advance(ctx))
	assert.NoError(t, w.Advance(ctx)) // details prefilled from profile

	api.On("CreateBooking", ctx, mock.AnythingOfType("booking.CreateBookingInput")).
		Return(&client.Booking{BookingID: "RL-1"}, nil).Once()
	mirror.On("Put", mock.AnythingOfType("client.Booking")).Return(errors.New("storage quota")).Once()

	assert.NoError(t, w.Advance(ctx))
	assert.Equal(t, StageConfirmed, w.Stage())
}

func TestWizard_ProfilePrefillsPatientDetails(t *testing.T) {
	w := newTestWizard(&MockAvailability{}, &MockLocks{}, &MockBookingAPI{}, &MockMirror{})
	d := w.Draft()
	assert.Equal(t, "9876543210", d.Patient.ContactNumber)
	assert.Equal(t, "a@b.com", d.Patient.Email)
	assert.Equal(t, "Test Patient", d.Patient.PatientName)
	assert.Equal(t, domain.BookingForSelf, d.BookingFor)
}
