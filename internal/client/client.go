// Package client is the patient-side HTTP client for the booking authority.
// Availability reads are advisory and degrade softly; locking and booking
// writes return typed errors the workflow can branch on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rapidlab/labbooking/internal/domain"
	"github.com/rapidlab/labbooking/internal/service/booking"
)

const defaultTimeout = 10 * time.Second

// Booking is the wire form of a persisted booking as the API returns it.
type Booking struct {
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
	BookingFor      string                `json:"booking_for"`
	Patient         domain.PatientDetails `json:"patient"`
	Status          string                `json:"status"`
	PaymentStatus   string                `json:"payment_status"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func New(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// FetchBooked returns the set of taken slot values for (lab, date). The set
// is advisory: on any transport or decode failure it degrades to empty and
// only logs, because the authoritative checks happen at lock time and at
// submit time. Callers must re-fetch on every lab/date change rather than
// cache the result.
func (c *Client) FetchBooked(ctx context.Context, labName, date string) map[string]struct{} {
	q := url.Values{}
	q.Set("lab", labName)
	q.Set("date", date)

	var out struct {
		BookedSlots []string `json:"booked_slots"`
	}
	if err := c.get(ctx, "/api/v1/slots/?"+q.Encode(), &out); err != nil {
		c.logger.Warn("fetch booked slots failed, treating day as open",
			zap.String("lab", labName), zap.String("date", date), zap.Error(err))
		return map[string]struct{}{}
	}

	booked := make(map[string]struct{}, len(out.BookedSlots))
	for _, s := range out.BookedSlots {
		booked[s] = struct{}{}
	}
	return booked
}

// CheckSlot is the strict single-slot availability check. Unlike FetchBooked
// a transport failure here is an error, since callers use it to gate a
// submit.
func (c *Client) CheckSlot(ctx context.Context, labName, date, slot string) (bool, error) {
	q := url.Values{}
	q.Set("lab", labName)
	q.Set("date", date)
	q.Set("time", slot)

	var out struct {
		Available bool `json:"available"`
	}
	if err := c.get(ctx, "/api/v1/slots/check?"+q.Encode(), &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

// TryLock requests a short-lived hold on the slot. Returns ErrSlotTaken when
// another user holds or has booked it; any other error is transport-level.
func (c *Client) TryLock(ctx context.Context, labName, date, slot, userID string) error {
	body := booking.LockSlotInput{
		LabName:         labName,
		AppointmentDate: date,
		AppointmentTime: slot,
		UserID:          userID,
	}

	var out struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	status, err := c.send(ctx, http.MethodPost, "/api/v1/slots/lock", body, &out)
	if err != nil {
		return err
	}
	if status == http.StatusConflict {
		return fmt.Errorf("%w: %s", domain.ErrSlotTaken, out.Error)
	}
	if !out.Success {
		return fmt.Errorf("lock slot: %s", out.Error)
	}
	return nil
}

// CreateBooking submits the finalized draft. The payload's BookingID is the
// idempotency key: replaying it after a transport failure is safe.
func (c *Client) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*Booking, error) {
	var out Booking
	status, err := c.send(ctx, http.MethodPost, "/api/v1/bookings/", input, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusConflict {
		return nil, domain.ErrSlotUnavailable
	}
	if status != http.StatusCreated {
		return nil, fmt.Errorf("create booking: unexpected status %d", status)
	}
	return &out, nil
}

// UpdateBooking applies a reschedule or payment update to an existing
// booking.
func (c *Client) UpdateBooking(ctx context.Context, bookingID string, input booking.UpdateBookingInput) (*Booking, error) {
	var out Booking
	status, err := c.send(ctx, http.MethodPut, "/api/v1/bookings/"+url.PathEscape(bookingID), input, &out)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return &out, nil
	case http.StatusConflict:
		return nil, domain.ErrSlotUnavailable
	case http.StatusNotFound:
		return nil, domain.ErrBookingNotFound
	default:
		return nil, fmt.Errorf("update booking: unexpected status %d", status)
	}
}

// ListUserBookings reloads the authoritative booking list for a user; the
// dashboard trusts this over any local mirror.
func (c *Client) ListUserBookings(ctx context.Context, userID string) ([]Booking, error) {
	q := url.Values{}
	q.Set("user_id", userID)

	var out struct {
		Bookings []Booking `json:"bookings"`
	}
	if err := c.get(ctx, "/api/v1/bookings/?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Bookings, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// send posts the JSON body and decodes the response regardless of status,
// so callers can branch on well-known statuses with the decoded payload.
func (c *Client) send(ctx context.Context, method, path string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}
