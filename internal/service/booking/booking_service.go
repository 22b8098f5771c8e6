package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rapidlab/labbooking/internal/domain"
	"github.com/rapidlab/labbooking/internal/kafka"
	"github.com/rapidlab/labbooking/internal/repository"
)

type BookingUseCase interface {
	LockSlot(ctx context.Context, input LockSlotInput) error
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	UpdateBooking(ctx context.Context, bookingID string, input UpdateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error)
	ListLabBookings(ctx context.Context, labName string) ([]domain.Booking, error)
	ExpireUnpaidBookings(ctx context.Context) ([]domain.Booking, error)
}

type Cache interface {
	AcquireSlotLock(ctx context.Context, labName, date, slot, userID string, ttl time.Duration) (bool, error)
	ReleaseSlotLock(ctx context.Context, labName, date, slot string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	cache              Cache
	producer           Producer
	logger             *zap.Logger
	bookingTopic       string
	notificationsTopic string
	lockTTL            time.Duration
	paymentDeadline    time.Duration
}

type LockSlotInput struct {
	LabName         string `json:"lab_name"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	UserID          string `json:"user_id"`
}

type CreateBookingInput struct {
	BookingID       string                `json:"booking_id"`
	CouponCode      string                `json:"coupon_code"`
	UserID          string                `json:"user_id"`
	TestID          string                `json:"test_id"`
	TestName        string                `json:"test_name"`
	LabName         string                `json:"lab_name"`
	LabAddress      string                `json:"lab_address"`
	Price           string                `json:"price"`
	AppointmentDate string                `json:"appointment_date"`
	AppointmentTime string                `json:"appointment_time"`
	BookingFor      domain.BookingFor     `json:"booking_for"`
	Patient         domain.PatientDetails `json:"patient"`
}

// UpdateBookingInput carries the partial update a PUT may apply: a
// reschedule (new date/time) or a payment transition. Empty fields are left
// untouched.
type UpdateBookingInput struct {
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	PaymentStatus   string `json:"payment_status"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	cache Cache,
	producer Producer,
	logger *zap.Logger,
	bookingTopic string,
	lockTTL, paymentDeadline time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &BookingService{
		bookings:        bookings,
		cache:           cache,
		producer:        producer,
		logger:          logger,
		bookingTopic:    bookingTopic,
		lockTTL:         lockTTL,
		paymentDeadline: paymentDeadline,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// LockSlot places a short-lived hold on (lab, date, time) for the user. The
// hold shrinks the window between "slot looked free" and "booking written";
// it is not the source of truth, the bookings table is.
func (s *BookingService) LockSlot(ctx context.Context, input LockSlotInput) error {
	if input.LabName == "" || input.AppointmentDate == "" || input.AppointmentTime == "" {
		return errors.New("lab, date and time are required")
	}
	if input.UserID == "" {
		return errors.New("user id is required")
	}

	booked, err := s.bookings.IsSlotBooked(ctx, input.LabName, input.AppointmentDate, input.AppointmentTime, "")
	if err != nil {
		return fmt.Errorf("check slot: %w", err)
	}
	if booked {
		return domain.ErrSlotUnavailable
	}

	ok, err := s.cache.AcquireSlotLock(ctx, input.LabName, input.AppointmentDate, input.AppointmentTime, input.UserID, s.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire slot lock: %w", err)
	}
	if !ok {
		return domain.ErrSlotTaken
	}

	s.logger.Info("slot locked",
		zap.String("lab", input.LabName),
		zap.String("date", input.AppointmentDate),
		zap.String("time", input.AppointmentTime),
		zap.String("user_id", input.UserID))
	return nil
}

// CreateBooking persists a booking idempotently keyed by the client-generated
// BookingID. Replaying the same BookingID returns the stored booking without
// publishing a duplicate event.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if input.BookingID == "" {
		return nil, errors.New("booking id is required")
	}
	if input.UserID == "" {
		return nil, errors.New("user id is required")
	}
	if input.LabName == "" || input.AppointmentDate == "" || input.AppointmentTime == "" {
		return nil, errors.New("lab, date and time are required")
	}
	if input.Patient.ContactNumber == "" || input.Patient.Email == "" {
		return nil, errors.New("contact number and email are required")
	}

	// The lock only shrinks the race window; it can expire while the user
	// fills in details. The write is gated on the bookings table itself,
	// excluding this booking's own ID so a replayed create passes.
	booked, err := s.bookings.IsSlotBooked(ctx, input.LabName, input.AppointmentDate, input.AppointmentTime, input.BookingID)
	if err != nil {
		return nil, fmt.Errorf("check slot: %w", err)
	}
	if booked {
		return nil, domain.ErrSlotUnavailable
	}

	bookingFor := input.BookingFor
	if bookingFor == "" {
		bookingFor = domain.BookingForSelf
	}

	booking := &domain.Booking{
		BookingID:       input.BookingID,
		CouponCode:      input.CouponCode,
		UserID:          input.UserID,
		TestID:          input.TestID,
		TestName:        input.TestName,
		LabName:         input.LabName,
		LabAddress:      input.LabAddress,
		Price:           input.Price,
		AppointmentDate: input.AppointmentDate,
		AppointmentTime: input.AppointmentTime,
		BookingFor:      bookingFor,
		Patient:         input.Patient,
		Status:          domain.BookingStatusConfirmed,
		PaymentStatus:   domain.PaymentStatusPending,
	}

	created, err := s.bookings.CreateIdempotent(ctx, booking)
	if err != nil {
		return nil, err
	}
	if !created {
		s.logger.Info("booking create replayed", zap.String("booking_id", booking.BookingID))
		return booking, nil
	}

	// The bookings table now owns the slot; the advisory lock can go.
	if s.cache != nil {
		if err := s.cache.ReleaseSlotLock(ctx, booking.LabName, booking.AppointmentDate, booking.AppointmentTime); err != nil {
			s.logger.Warn("release slot lock failed", zap.String("booking_id", booking.BookingID), zap.Error(err))
		}
	}

	if err := s.publish(ctx, "booking_confirmed", booking); err != nil {
		s.logger.Warn("publish booking_confirmed failed", zap.String("booking_id", booking.BookingID), zap.Error(err))
	}
	return booking, nil
}

// UpdateBooking applies a reschedule or a payment transition. A reschedule
// re-checks the target slot against the bookings table before writing; the
// caller is expected to have run the single-slot availability check already,
// this is the authoritative recheck.
func (s *BookingService) UpdateBooking(ctx context.Context, bookingID string, input UpdateBookingInput) (*domain.Booking, error) {
	current, err := s.bookings.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	upd := domain.BookingUpdate{}
	eventType := ""

	if input.AppointmentDate != "" || input.AppointmentTime != "" {
		newDate := current.AppointmentDate
		if input.AppointmentDate != "" {
			newDate = input.AppointmentDate
		}
		newTime := current.AppointmentTime
		if input.AppointmentTime != "" {
			newTime = input.AppointmentTime
		}

		// A booking rescheduled onto its own current slot is not a conflict.
		booked, err := s.bookings.IsSlotBooked(ctx, current.LabName, newDate, newTime, bookingID)
		if err != nil {
			return nil, fmt.Errorf("check slot: %w", err)
		}
		if booked {
			return nil, domain.ErrSlotUnavailable
		}

		status := domain.BookingStatusRescheduled
		upd.AppointmentDate = &newDate
		upd.AppointmentTime = &newTime
		upd.Status = &status
		eventType = "booking_rescheduled"
	}

	if input.PaymentStatus != "" {
		ps := domain.PaymentStatus(input.PaymentStatus)
		if ps != domain.PaymentStatusPending && ps != domain.PaymentStatusPaid {
			return nil, fmt.Errorf("unknown payment status %q", input.PaymentStatus)
		}
		upd.PaymentStatus = &ps
		if eventType == "" {
			eventType = "booking_payment"
		}
	}

	if upd == (domain.BookingUpdate{}) {
		return nil, errors.New("no updates provided")
	}

	updated, err := s.bookings.Update(ctx, bookingID, upd)
	if err != nil {
		return nil, err
	}
	if err := s.publish(ctx, eventType, updated); err != nil {
		s.logger.Warn("publish event failed", zap.String("type", eventType), zap.String("booking_id", bookingID), zap.Error(err))
	}
	return updated, nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	return s.bookings.GetByBookingID(ctx, bookingID)
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

func (s *BookingService) ListLabBookings(ctx context.Context, labName string) ([]domain.Booking, error) {
	return s.bookings.ListByLab(ctx, labName)
}

// ExpireUnpaidBookings marks confirmed bookings whose payment never arrived
// within the configured deadline as expired.
func (s *BookingService) ExpireUnpaidBookings(ctx context.Context) ([]domain.Booking, error) {
	deadline := time.Now().Add(-s.paymentDeadline)
	expired, err := s.bookings.ExpireUnpaidBefore(ctx, deadline)
	if err != nil {
		return nil, err
	}
	for _, b := range expired {
		if err := s.publish(ctx, "booking_expired", &b); err != nil {
			s.logger.Warn("publish booking_expired failed", zap.String("booking_id", b.BookingID), zap.Error(err))
		}
	}
	return expired, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) error {
	if s.producer == nil || s.bookingTopic == "" {
		return nil
	}
	event := kafka.BookingEvent{
		Type:            eventType,
		BookingID:       booking.BookingID,
		UserID:          booking.UserID,
		TestName:        booking.TestName,
		LabName:         booking.LabName,
		AppointmentDate: booking.AppointmentDate,
		AppointmentTime: booking.AppointmentTime,
		Email:           booking.Patient.Email,
		Status:          string(booking.Status),
		PaymentStatus:   string(booking.PaymentStatus),
		OccurredAt:      time.Now(),
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.BookingID, &event); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.Publish(ctx, s.notificationsTopic, booking.BookingID, &event)
	}
	return nil
}

var _ BookingUseCase = (*BookingService)(nil)
