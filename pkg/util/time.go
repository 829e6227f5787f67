package util

import (
	"time"
)

const ClockTimeLayout = "15:04"

func AddTimeToDate(date time.Time, sourceTime time.Time) time.Time {
	newDateTime := time.Date(date.Year(), date.Month(), date.Day(), sourceTime.Hour(), sourceTime.Minute(), sourceTime.Second(), sourceTime.Nanosecond(), date.Location())

	return newDateTime
}

// ParseClockTime parses a "HH:MM" time of day. The date part of the result is meaningless.
func ParseClockTime(value string) (time.Time, error) {
	return time.Parse(ClockTimeLayout, value)
}
