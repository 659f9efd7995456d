package utils

import (
	"time"
)

// LocalTime converts epoch seconds to local time in loc.
func LocalTime(sec int64, loc *time.Location) time.Time {
	return time.Unix(sec, 0).In(loc)
}

// IsNewServiceDay reports whether curSec starts a new service day relative
// to prevSec. A service day rolls over when the calendar date changes AND
// the local hour has reached resetAtHour (03:00 in the reference setup, so
// trips running past midnight stay on the previous service day).
// prevSec <= 0 means no prior observation; that is never a new service day.
func IsNewServiceDay(prevSec, curSec int64, resetAtHour int, loc *time.Location) bool {
	if prevSec <= 0 {
		return false
	}
	prev := LocalTime(prevSec, loc)
	cur := LocalTime(curSec, loc)
	sameDate := prev.Year() == cur.Year() && prev.YearDay() == cur.YearDay()
	return !sameDate && cur.Hour() >= resetAtHour
}

// ServiceDay returns the service-day date for sec, shifting times before
// resetAtHour back onto the previous calendar day.
func ServiceDay(sec int64, resetAtHour int, loc *time.Location) time.Time {
	t := LocalTime(sec, loc)
	if t.Hour() < resetAtHour {
		t = t.AddDate(0, 0, -1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Iso8601FromUnixSeconds converts Unix timestamp to ISO8601 format
func Iso8601FromUnixSeconds(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
