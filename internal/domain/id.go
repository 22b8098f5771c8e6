package domain

import (
	"fmt"
	"math/rand"
	"time"
)

const bookingIDMaxLen = 15

const couponAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewBookingID builds a client-side booking identifier of the form
// "RL-<unix-ms><3 random digits>", truncated to 15 characters. The ID is the
// idempotency key for booking creation, so a retry after a transport failure
// must reuse the value from the first attempt rather than call this again.
func NewBookingID(now time.Time) string {
	id := fmt.Sprintf("RL-%d%03d", now.UnixMilli(), rand.Intn(1000))
	if len(id) > bookingIDMaxLen {
		id = id[:bookingIDMaxLen]
	}
	return id
}

// NewCouponCode returns a 5-character uppercase alphanumeric coupon code.
func NewCouponCode() string {
	b := make([]byte, 5)
	for i := range b {
		b[i] = couponAlphabet[rand.Intn(len(couponAlphabet))]
	}
	return string(b)
}
