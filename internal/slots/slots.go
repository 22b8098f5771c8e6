// Package slots generates the bookable half-hour slots for a calendar day.
// Generation is pure: "now" is passed in, never read from the wall clock, so
// output for a given (date, now) pair is deterministic.
package slots

import (
	"fmt"
	"time"
)

const (
	openingHour = 8
	closingHour = 20

	// DateLayout is the calendar-date format used across the booking API.
	DateLayout = "2006-01-02"
)

// Blackout ticks never appear in the generated buckets, independent of what
// is booked: the lab's lunch break and a late-afternoon maintenance block.
var blackoutTicks = map[string]struct{}{
	"13:00": {},
	"13:30": {},
	"17:30": {},
}

// Slot is one bookable half-hour tick.
type Slot struct {
	Value  string `json:"value"` // 24h "HH:MM"
	Label  string `json:"label"` // 12h "h:mm AM/PM"
	IsPast bool   `json:"is_past"`
}

// Buckets partitions a day's slots into display periods, each ordered by
// time ascending.
type Buckets struct {
	Morning   []Slot `json:"morning"`
	Afternoon []Slot `json:"afternoon"`
	Evening   []Slot `json:"evening"`
}

// All returns every slot in time order.
func (b Buckets) All() []Slot {
	out := make([]Slot, 0, len(b.Morning)+len(b.Afternoon)+len(b.Evening))
	out = append(out, b.Morning...)
	out = append(out, b.Afternoon...)
	return append(out, b.Evening...)
}

// Generate produces the day's slots for selectedDate ("YYYY-MM-DD").
// Ticks run every 30 minutes from 08:00 through 20:00 inclusive; the 20:30
// tick is never emitted. IsPast is computed against now only when
// selectedDate equals now's calendar date; for any other date it is false.
// An empty selectedDate yields empty buckets.
func Generate(selectedDate string, now NowInfo) Buckets {
	var b Buckets
	if selectedDate == "" {
		return b
	}

	isToday := selectedDate == now.Date

	for hour := openingHour; hour <= closingHour; hour++ {
		for _, minute := range []int{0, 30} {
			if hour == closingHour && minute != 0 {
				continue
			}
			value := fmt.Sprintf("%02d:%02d", hour, minute)
			if _, blocked := blackoutTicks[value]; blocked {
				continue
			}

			slot := Slot{
				Value:  value,
				Label:  label(hour, minute),
				IsPast: isToday && value < now.Clock,
			}
			switch {
			case hour < 12:
				b.Morning = append(b.Morning, slot)
			case hour < 17:
				b.Afternoon = append(b.Afternoon, slot)
			default:
				b.Evening = append(b.Evening, slot)
			}
		}
	}
	return b
}

// NowInfo is the injected current instant, pre-split into the string forms
// the generator compares against.
type NowInfo struct {
	Date  string // "YYYY-MM-DD"
	Clock string // "HH:MM"
}

// At converts a time.Time into the generator's injected form.
func At(t time.Time) NowInfo {
	return NowInfo{Date: t.Format(DateLayout), Clock: t.Format("15:04")}
}

func label(hour, minute int) string {
	period := "AM"
	display := hour
	switch {
	case hour == 12:
		period = "PM"
	case hour > 12:
		period = "PM"
		display = hour - 12
	case hour == 0:
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, minute, period)
}
