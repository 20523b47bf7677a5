package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for stay dates.
const DateLayout = "2006-01-02"

var roomNumberRe = regexp.MustCompile(`^\d{3}[A-Z]?$`)

// Date parses a YYYY-MM-DD string into UTC midnight.
func Date(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// Stay parses a check-in/check-out pair and requires check-in < check-out.
func Stay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := Date(checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("checkin: %w", err)
	}
	out, err := Date(checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("checkout: %w", err)
	}
	if !out.After(in) {
		return time.Time{}, time.Time{}, fmt.Errorf("checkout must be after checkin")
	}
	return in, out, nil
}

// ID parses a positive integer identifier.
func ID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// RoomNumber reports whether s is a valid room number: three digits and an
// optional uppercase wing letter, e.g. "101" or "201A".
func RoomNumber(s string) bool {
	return roomNumberRe.MatchString(s)
}

// Cents converts a decimal currency amount to integer cents.
func Cents(amount float64) int64 {
	if amount < 0 {
		return -int64(-amount*100 + 0.5)
	}
	return int64(amount*100 + 0.5)
}
