package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rapidlab/labbooking/internal/domain"
)

type BookingRepository interface {
	// CreateIdempotent inserts a booking keyed by its client-generated
	// booking_id. A replayed ID is not an error: the stored row is returned
	// and created is false.
	CreateIdempotent(ctx context.Context, booking *domain.Booking) (created bool, err error)
	GetByBookingID(ctx context.Context, bookingID string) (*domain.Booking, error)
	Update(ctx context.Context, bookingID string, upd domain.BookingUpdate) (*domain.Booking, error)
	BookedSlots(ctx context.Context, labName, date string) ([]string, error)
	// IsSlotBooked reports whether an active booking holds (lab, date, slot).
	// excludeBookingID ignores that booking's own row, so a replayed create
	// or a same-slot reschedule does not count itself as a conflict; pass ""
	// to count every booking.
	IsSlotBooked(ctx context.Context, labName, date, slot, excludeBookingID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	ListByLab(ctx context.Context, labName string) ([]domain.Booking, error)
	ExpireUnpaidBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, booking_id, coupon_code, user_id, test_id, test_name, lab_name, lab_address, price,
	appointment_date, appointment_time, booking_for, contact_number, email, patient_name, age, relation,
	special_instructions, status, payment_status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.BookingID, &b.CouponCode, &b.UserID, &b.TestID, &b.TestName, &b.LabName,
		&b.LabAddress, &b.Price, &b.AppointmentDate, &b.AppointmentTime, &b.BookingFor,
		&b.Patient.ContactNumber, &b.Patient.Email, &b.Patient.PatientName, &b.Patient.Age,
		&b.Patient.Relation, &b.Patient.SpecialInstructions, &b.Status, &b.PaymentStatus,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) CreateIdempotent(ctx context.Context, booking *domain.Booking) (bool, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO bookings (booking_id, coupon_code, user_id, test_id, test_name,
		lab_name, lab_address, price, appointment_date, appointment_time, booking_for, contact_number,
		email, patient_name, age, relation, special_instructions, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (booking_id) DO NOTHING
		RETURNING id, created_at, updated_at`,
		booking.BookingID, booking.CouponCode, booking.UserID, booking.TestID, booking.TestName,
		booking.LabName, booking.LabAddress, booking.Price, booking.AppointmentDate, booking.AppointmentTime,
		booking.BookingFor, booking.Patient.ContactNumber, booking.Patient.Email, booking.Patient.PatientName,
		booking.Patient.Age, booking.Patient.Relation, booking.Patient.SpecialInstructions,
		booking.Status, booking.PaymentStatus)

	err := row.Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	// Conflict: the same booking_id was already persisted (a retried submit).
	existing, err := r.GetByBookingID(ctx, booking.BookingID)
	if err != nil {
		return false, err
	}
	*booking = *existing
	return false, nil
}

func (r *PGBookingRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_id=$1`, bookingID)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	return b, err
}

func (r *PGBookingRepository) Update(ctx context.Context, bookingID string, upd domain.BookingUpdate) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET
		appointment_date = COALESCE($2, appointment_date),
		appointment_time = COALESCE($3, appointment_time),
		status           = COALESCE($4, status),
		payment_status   = COALESCE($5, payment_status),
		updated_at       = now()
		WHERE booking_id=$1
		RETURNING `+bookingColumns,
		bookingID, upd.AppointmentDate, upd.AppointmentTime, upd.Status, upd.PaymentStatus)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	return b, err
}

func (r *PGBookingRepository) BookedSlots(ctx context.Context, labName, date string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT appointment_time FROM bookings
		WHERE lab_name=$1 AND appointment_date=$2 AND status IN ($3, $4)
		ORDER BY appointment_time`,
		labName, date, domain.BookingStatusConfirmed, domain.BookingStatusRescheduled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	booked := make([]string, 0)
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		booked = append(booked, slot)
	}
	return booked, rows.Err()
}

func (r *PGBookingRepository) IsSlotBooked(ctx context.Context, labName, date, slot, excludeBookingID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings
		WHERE lab_name=$1 AND appointment_date=$2 AND appointment_time=$3 AND status IN ($4, $5)
		AND booking_id <> $6)`,
		labName, date, slot, domain.BookingStatusConfirmed, domain.BookingStatusRescheduled,
		excludeBookingID).Scan(&exists)
	return exists, err
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY appointment_date, appointment_time`, userID)
}

func (r *PGBookingRepository) ListByLab(ctx context.Context, labName string) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE lab_name=$1 ORDER BY appointment_date, appointment_time`, labName)
}

func (r *PGBookingRepository) list(ctx context.Context, query string, arg any) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) ExpireUnpaidBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `UPDATE bookings SET status=$1, updated_at=now()
		WHERE status=$2 AND payment_status=$3 AND created_at <= $4
		RETURNING `+bookingColumns,
		domain.BookingStatusExpired, domain.BookingStatusConfirmed, domain.PaymentStatusPending, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *b)
	}
	return expired, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
