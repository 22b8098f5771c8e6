package domain

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewBookingID(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 50; i++ {
		id := NewBookingID(now)
		assert.Regexp(t, regexp.MustCompile(`^RL-\d+$`), id)
		assert.LessOrEqual(t, len(id), 15)
	}
}

func TestNewCouponCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{5}$`)
	for i := 0; i < 50; i++ {
		assert.Regexp(t, pattern, NewCouponCode())
	}
}
