package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidlab/labbooking/internal/client"
	"github.com/rapidlab/labbooking/internal/domain"
)

func sample(bookingID, userID, labName, date, tm string) client.Booking {
	return client.Booking{
		BookingID:       bookingID,
		CouponCode:      "K2P9X",
		UserID:          userID,
		TestName:        "CBC",
		LabName:         labName,
		LabAddress:      "12 Main St",
		Price:           "290",
		AppointmentDate: date,
		AppointmentTime: tm,
		Patient: domain.PatientDetails{
			PatientName:   "Asha",
			ContactNumber: "9876543210",
		},
		Status:        string(domain.BookingStatusConfirmed),
		PaymentStatus: string(domain.PaymentStatusPending),
	}
}

func TestStore_PutAndGet(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(sample("RL-1", "user-1", "Acme Lab", "2025-06-10", "10:00")))

	got, ok := s.Get("RL-1")
	require.True(t, ok)
	assert.Equal(t, "CBC", got.TestName)

	_, ok = s.Get("RL-2")
	assert.False(t, ok)
}

func TestStore_PutReplacesSameBookingID(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(sample("RL-1", "user-1", "Acme Lab", "2025-06-10", "10:00")))

	updated := sample("RL-1", "user-1", "Acme Lab", "2025-06-12", "09:30")
	updated.Status = string(domain.BookingStatusRescheduled)
	require.NoError(t, s.Put(updated))

	got, ok := s.Get("RL-1")
	require.True(t, ok)
	assert.Equal(t, "2025-06-12", got.AppointmentDate)
	assert.Equal(t, string(domain.BookingStatusRescheduled), got.Status)
	assert.Len(t, s.PatientView("user-1"), 1)
}

func TestStore_ProjectionsShareOneWrite(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(sample("RL-1", "user-1", "Acme Lab", "2025-06-10", "10:00")))

	patient := s.PatientView("user-1")
	vendor := s.VendorView("Acme Lab")
	require.Len(t, patient, 1)
	require.Len(t, vendor, 1)

	// Both projections come from the same record, so they agree on every
	// shared field.
	assert.Equal(t, patient[0].BookingID, vendor[0].BookingID)
	assert.Equal(t, patient[0].AppointmentDate, vendor[0].AppointmentDate)
	assert.Equal(t, patient[0].AppointmentTime, vendor[0].AppointmentTime)
	assert.Equal(t, patient[0].Status, vendor[0].Status)

	assert.Equal(t, "K2P9X", patient[0].CouponCode)
	assert.Equal(t, "9876543210", vendor[0].ContactNumber)
}

func TestStore_ViewsFilterAndSort(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(sample("RL-3", "user-1", "Acme Lab", "2025-06-11", "08:30")))
	require.NoError(t, s.Put(sample("RL-1", "user-1", "Acme Lab", "2025-06-10", "14:00")))
	require.NoError(t, s.Put(sample("RL-2", "user-1", "Acme Lab", "2025-06-10", "09:00")))
	require.NoError(t, s.Put(sample("RL-9", "user-2", "Other Lab", "2025-06-10", "09:00")))

	patient := s.PatientView("user-1")
	require.Len(t, patient, 3)
	assert.Equal(t, []string{"RL-2", "RL-1", "RL-3"},
		[]string{patient[0].BookingID, patient[1].BookingID, patient[2].BookingID})

	vendor := s.VendorView("Acme Lab")
	require.Len(t, vendor, 3)
	assert.Equal(t, "RL-2", vendor[0].BookingID)

	assert.Empty(t, s.PatientView("nobody"))
	assert.Empty(t, s.VendorView("No Such Lab"))
}

func TestStore_PatientNameDefaultsToSelf(t *testing.T) {
	s := NewStore()
	b := sample("RL-1", "user-1", "Acme Lab", "2025-06-10", "10:00")
	b.Patient.PatientName = ""
	require.NoError(t, s.Put(b))

	patient := s.PatientView("user-1")
	require.Len(t, patient, 1)
	assert.Equal(t, "self", patient[0].PatientName)
}
