package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rapidlab/labbooking/internal/repository"
	"github.com/rapidlab/labbooking/internal/slots"
)

type AvailabilityUseCase interface {
	// BookedSlots returns every taken slot value for a lab on a date
	// ("return all slots" mode).
	BookedSlots(ctx context.Context, labName, date string) ([]string, error)
	// IsSlotAvailable is the single-slot check used just before a lock or a
	// reschedule submit.
	IsSlotAvailable(ctx context.Context, labName, date, slot string) (bool, error)
}

type AvailabilityService struct {
	bookings repository.BookingRepository
}

func NewAvailabilityService(bookings repository.BookingRepository) *AvailabilityService {
	return &AvailabilityService{bookings: bookings}
}

func (s *AvailabilityService) BookedSlots(ctx context.Context, labName, date string) ([]string, error) {
	if err := validate(labName, date); err != nil {
		return nil, err
	}
	return s.bookings.BookedSlots(ctx, labName, date)
}

func (s *AvailabilityService) IsSlotAvailable(ctx context.Context, labName, date, slot string) (bool, error) {
	if err := validate(labName, date); err != nil {
		return false, err
	}
	if slot == "" {
		return false, errors.New("time is required")
	}
	booked, err := s.bookings.IsSlotBooked(ctx, labName, date, slot, "")
	if err != nil {
		return false, err
	}
	return !booked, nil
}

func validate(labName, date string) error {
	if labName == "" {
		return errors.New("lab is required")
	}
	if _, err := time.Parse(slots.DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	return nil
}

var _ AvailabilityUseCase = (*AvailabilityService)(nil)
