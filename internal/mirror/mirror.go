// Package mirror keeps a local, best-effort copy of confirmed bookings for
// fast rendering. One write-through store keyed by booking ID feeds two read
// projections (the patient's "my bookings" list and the lab operator's
// list), so the two views can never diverge from each other. The mirror is
// never the source of truth: dashboards reload from the authority.
package mirror

import (
	"sort"
	"sync"

	"github.com/rapidlab/labbooking/internal/client"
)

// PatientBooking is the patient-facing projection of a mirrored booking.
type PatientBooking struct {
	BookingID       string
	TestName        string
	PatientName     string
	LabName         string
	LabAddress      string
	Price           string
	AppointmentDate string
	AppointmentTime string
	CouponCode      string
	Status          string
	PaymentStatus   string
}

// VendorBooking is the lab-operator projection.
type VendorBooking struct {
	BookingID       string
	TestName        string
	PatientName     string
	ContactNumber   string
	AppointmentDate string
	AppointmentTime string
	Status          string
	PaymentStatus   string
}

type Store struct {
	mu   sync.RWMutex
	byID map[string]client.Booking
}

func NewStore() *Store {
	return &Store{byID: make(map[string]client.Booking)}
}

// Put records a confirmed booking, replacing any previous copy with the same
// booking ID.
func (s *Store) Put(b client.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[b.BookingID] = b
	return nil
}

// PatientView lists the user's mirrored bookings ordered by appointment.
func (s *Store) PatientView(userID string) []PatientBooking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []PatientBooking
	for _, b := range s.byID {
		if b.UserID != userID {
			continue
		}
		name := b.Patient.PatientName
		if name == "" {
			name = "self"
		}
		out = append(out, PatientBooking{
			BookingID:       b.BookingID,
			TestName:        b.TestName,
			PatientName:     name,
			LabName:         b.LabName,
			LabAddress:      b.LabAddress,
			Price:           b.Price,
			AppointmentDate: b.AppointmentDate,
			AppointmentTime: b.AppointmentTime,
			CouponCode:      b.CouponCode,
			Status:          b.Status,
			PaymentStatus:   b.PaymentStatus,
		})
	}
	sortByAppointment(out, func(p PatientBooking) (string, string) { return p.AppointmentDate, p.AppointmentTime })
	return out
}

// VendorView lists mirrored bookings for a lab ordered by appointment.
func (s *Store) VendorView(labName string) []VendorBooking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []VendorBooking
	for _, b := range s.byID {
		if b.LabName != labName {
			continue
		}
		out = append(out, VendorBooking{
			BookingID:       b.BookingID,
			TestName:        b.TestName,
			PatientName:     b.Patient.PatientName,
			ContactNumber:   b.Patient.ContactNumber,
			AppointmentDate: b.AppointmentDate,
			AppointmentTime: b.AppointmentTime,
			Status:          b.Status,
			PaymentStatus:   b.PaymentStatus,
		})
	}
	sortByAppointment(out, func(v VendorBooking) (string, string) { return v.AppointmentDate, v.AppointmentTime })
	return out
}

// Get returns the mirrored booking, if present.
func (s *Store) Get(bookingID string) (client.Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byID[bookingID]
	return b, ok
}

func sortByAppointment[T any](items []T, key func(T) (string, string)) {
	sort.Slice(items, func(i, j int) bool {
		di, ti := key(items[i])
		dj, tj := key(items[j])
		if di != dj {
			return di < dj
		}
		return ti < tj
	})
}
