package coupon

import "time"

// DateLayout is the calendar-date form accepted for window and range bounds.
const DateLayout = "2006-01-02"

// StartOfDay returns 00:00:00.000 UTC of t's UTC calendar day.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns 23:59:59.999 UTC of t's UTC calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Millisecond)
}

// IsWithinInstant reports whether now lies in the inclusive window
// [ValidFrom, ValidUntil].
func IsWithinInstant(c *Coupon, now time.Time) bool {
	return !now.Before(c.ValidFrom) && !now.After(c.ValidUntil)
}

// CoversRange reports whether the coupon window fully contains the range
// [start, end] at day granularity. Partial overlap does not count.
func CoversRange(c *Coupon, start, end time.Time) bool {
	return !StartOfDay(c.ValidFrom).After(StartOfDay(start)) &&
		!EndOfDay(c.ValidUntil).Before(EndOfDay(end))
}

func validateWindow(from, until time.Time) error {
	if from.IsZero() {
		return invalid("validFrom", "is required")
	}
	if until.IsZero() {
		return invalid("validUntil", "is required")
	}
	if !until.After(from) {
		return invalid("validUntil", "must be after validFrom")
	}
	return nil
}

// ParseTime accepts a calendar date, read as UTC midnight, or an RFC 3339
// timestamp.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
