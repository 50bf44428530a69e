// Package interval converts booking dates and times of day into instants and
// compares the resulting windows.
package interval

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const dateLayout = "2006-01-02"

var timeOfDayRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

// Date is a calendar date without a zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, errors.Wrapf(err, "invalid date %q", raw)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// MustDate is ParseDate for literals known to be valid.
func MustDate(raw string) Date {
	d, err := ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar date of t in its own location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Today returns the calendar date of now as seen from loc.
func Today(now time.Time, loc *time.Location) Date {
	return DateOf(now.In(loc))
}

func (d Date) midnightUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days later (earlier when n is negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.midnightUTC().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.midnightUTC().Before(other.midnightUTC())
}

// IsZero reports whether d was never set.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) String() string {
	return d.midnightUTC().Format(dateLayout)
}

// TimeOfDay counts minutes since midnight. 24:00 is valid as an end bound.
type TimeOfDay int

const (
	DayStart TimeOfDay = 0
	DayEnd   TimeOfDay = 24 * 60
)

// ParseTimeOfDay parses HH:MM or HH:MM:SS. Seconds are truncated.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	m := timeOfDayRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, errors.Newf("invalid time of day %q", raw)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec := 0
	if m[3] != "" {
		sec, _ = strconv.Atoi(m[3])
	}
	if min > 59 || sec > 59 {
		return 0, errors.Newf("invalid time of day %q", raw)
	}
	tod := TimeOfDay(h*60 + min)
	if tod > DayEnd || (tod == DayEnd && sec > 0) {
		return 0, errors.Newf("time of day %q is past midnight", raw)
	}
	return tod, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// FixedZone builds the venue location from a constant UTC offset.
func FixedZone(offsetMinutes int) *time.Location {
	sign := "+"
	abs := offsetMinutes
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, abs/60, abs%60)
	return time.FixedZone(name, offsetMinutes*60)
}

// ToInstant combines a date and a time of day in loc.
func ToInstant(loc *time.Location, d Date, t TimeOfDay) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc).Add(time.Duration(t) * time.Minute)
}

// Overlaps is the half-open interval test. Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// DateWithinSpan reports whether d lies in [start, end], both ends inclusive.
func DateWithinSpan(d, start, end Date) bool {
	return !d.Before(start) && !end.Before(d)
}

// DaysUntil is the number of whole calendar days from today to event.
func DaysUntil(today, event Date) int {
	return int(event.midnightUTC().Sub(today.midnightUTC()).Hours() / 24)
}
