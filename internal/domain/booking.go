package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed   BookingStatus = "CONFIRMED"
	BookingStatusRescheduled BookingStatus = "RESCHEDULED"
	BookingStatusCancelled   BookingStatus = "CANCELLED"
	BookingStatusExpired     BookingStatus = "EXPIRED"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

type BookingFor string

const (
	BookingForSelf   BookingFor = "self"
	BookingForFamily BookingFor = "family"
)

type PatientDetails struct {
	ContactNumber       string `json:"contact_number"`
	Email               string `json:"email"`
	PatientName         string `json:"patient_name"`
	Age                 string `json:"age"`
	Relation            string `json:"relation"`
	SpecialInstructions string `json:"special_instructions"`
}

// Booking is the authoritative record of a confirmed lab appointment.
// BookingID and CouponCode are generated client-side before submission and
// act as the idempotency key for create.
type Booking struct {
	ID              int64
	BookingID       string
	CouponCode      string
	UserID          string
	TestID          string
	TestName        string
	LabName         string
	LabAddress      string
	Price           string
	AppointmentDate string
	AppointmentTime string
	BookingFor      BookingFor
	Patient         PatientDetails
	Status          BookingStatus
	PaymentStatus   PaymentStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BookingUpdate carries the partial fields a PUT may change. Nil means
// "leave as is".
type BookingUpdate struct {
	AppointmentDate *string
	AppointmentTime *string
	Status          *BookingStatus
	PaymentStatus   *PaymentStatus
}
