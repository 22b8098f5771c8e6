package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rapidlab/labbooking/internal/client"
	"github.com/rapidlab/labbooking/internal/domain"
	"github.com/rapidlab/labbooking/internal/service/booking"
)

func newTestReschedule(avail *MockAvailability, locks *MockLocks, api *MockBookingAPI, reload func()) *RescheduleFlow {
	return NewReschedule(avail, locks, api, nil, fixedClock, testProfile, "RL-17493000001", "Acme Lab", reload)
}

func selectRescheduleSlot(t *testing.T, ctx context.Context, f *RescheduleFlow, avail *MockAvailability, locks *MockLocks) {
	t.Helper()
	avail.On("FetchBooked", ctx, "Acme Lab", "2025-06-12").Return(map[string]struct{}{}).Once()
	f.SelectDate(ctx, "2025-06-12")
	locks.On("TryLock", ctx, "Acme Lab", "2025-06-12", "09:30", "user-1").Return(nil).Once()
	assert.NoError(t, f.SelectSlot(ctx, "09:30"))
}

func TestReschedule_Success(t *testing.T) {
	avail := &MockAvailability{}
	locks := &MockLocks{}
	api := &MockBookingAPI{}
	reloaded := false
	f := newTestReschedule(avail, locks, api, func() { reloaded = true })

	ctx := context.Background()
	selectRescheduleSlot(t, ctx, f, avail, locks)

	avail.On("CheckSlot", ctx, "Acme Lab", "2025-06-12", "09:30").Return(true, nil).Once()
	api.On("UpdateBooking", ctx, "RL-17493000001", booking.UpdateBookingInput{
		AppointmentDate: "2025-06-12",
		AppointmentTime: "09:30",
	}).Return(&client.Booking{BookingID: "RL-17493000001"}, nil).Once()

	assert.NoError(t, f.Submit(ctx))
	assert.False(t, f.Open())
	assert.True(t, reloaded)
	api.AssertExpectations(t)
}

func TestReschedule_ConflictKeepsFlowOpen(t *testing.T) {
	avail := &MockAvailability{}
	locks := &MockLocks{}
	api := &MockBookingAPI{}
	reloaded := false
	f := newTestReschedule(avail, locks, api, func() { reloaded = true })

	ctx := context.Background()
	selectRescheduleSlot(t, ctx, f, avail, locks)

	// Pre-submit check finds the slot taken: no update goes out, the flow
	// stays open, and the booked set is refreshed to show the conflict.
	avail.On("CheckSlot", ctx, "Acme Lab", "2025-06-12", "09:30").Return(false, nil).Once()
	avail.On("FetchBooked", ctx, "Acme Lab", "2025-06-12").
		Return(map[string]struct{}{"09:30": {}}).Once()

	err := f.Submit(ctx)
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	assert.True(t, f.Open())
	assert.False(t, reloaded)
	assert.NotEmpty(t, f.Message())
	api.AssertNotCalled(t, "UpdateBooking")
	avail.AssertExpectations(t)
}

func TestReschedule_CheckTransportErrorKeepsFlowOpen(t *testing.T) {
	avail := &MockAvailability{}
	locks := &MockLocks{}
	api := &MockBookingAPI{}
	f := newTestReschedule(avail, locks, api, nil)

	ctx := context.Background()
	selectRescheduleSlot(t, ctx, f, avail, locks)

	avail.On("CheckSlot", ctx, "Acme Lab", "2025-06-12", "09:30").
		Return(false, errors.New("availability check: connection refused")).Once()

	assert.Error(t, f.Submit(ctx))
	assert.True(t, f.Open())
	api.AssertNotCalled(t, "UpdateBooking")
}

func TestReschedule_SubmitWithoutSelection(t *testing.T) {
	f := newTestReschedule(&MockAvailability{}, &MockLocks{}, &MockBookingAPI{}, nil)
	err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrScheduleIncomplete)
	assert.True(t, f.Open())
}

func TestReschedule_ClosedFlowRejectsEverything(t *testing.T) {
	f := newTestReschedule(&MockAvailability{}, &MockLocks{}, &MockBookingAPI{}, nil)
	f.Close()
	assert.ErrorIs(t, f.Submit(context.Background()), ErrFlowClosed)
	assert.ErrorIs(t, f.SelectSlot(context.Background(), "09:30"), ErrFlowClosed)
}

func TestReschedule_UpdateConflictRefreshesBookedSet(t *testing.T) {
	avail := &MockAvailability{}
	locks := &MockLocks{}
	api := &MockBookingAPI{}
	f := newTestReschedule(avail, locks, api, nil)

	ctx := context.Background()
	selectRescheduleSlot(t, ctx, f, avail, locks)

	// The check passes but the authority rejects the update: same taken
	// slot, just detected one round-trip later.
	avail.On("CheckSlot", ctx, "Acme Lab", "2025-06-12", "09:30").Return(true, nil).Once()
	api.On("UpdateBooking", ctx, "RL-17493000001", mock.AnythingOfType("booking.UpdateBookingInput")).
		Return(nil, domain.ErrSlotUnavailable).Once()
	avail.On("FetchBooked", ctx, "Acme Lab", "2025-06-12").
		Return(map[string]struct{}{"09:30": {}}).Once()

	err := f.Submit(ctx)
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	assert.True(t, f.Open())
	avail.AssertExpectations(t)
}
