package aggregate

import (
	"errors"
	"fmt"
	"time"

	"github.com/jwulff/glucoscape/internal/bloodsugar"
)

// SecondsPerDay is the length of a calendar day used for interval tiling.
const SecondsPerDay = 24 * 60 * 60

// DefaultIntervalSeconds is one hour, giving 24 slots per day.
const DefaultIntervalSeconds = 3600

// ErrInvalidInterval is returned when an interval width does not tile a day.
var ErrInvalidInterval = errors.New("interval must evenly divide one day")

// ValidateInterval checks that intervalSeconds is positive and divides 86400.
func ValidateInterval(intervalSeconds int) error {
	if intervalSeconds <= 0 || SecondsPerDay%intervalSeconds != 0 {
		return fmt.Errorf("%w: %d seconds", ErrInvalidInterval, intervalSeconds)
	}
	return nil
}

// SlotCount returns how many intervals of intervalSeconds make up a day.
func SlotCount(intervalSeconds int) int {
	if intervalSeconds <= 0 {
		return 0
	}
	return SecondsPerDay / intervalSeconds
}

var weekdayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// DayKey identifies a local calendar day without the year.
// Days exactly a year apart would share a key; windows are far shorter than that.
type DayKey struct {
	Weekday time.Weekday
	Day     int
	Month   time.Month
}

// DayKeyOf returns the key for t in loc.
func DayKeyOf(t time.Time, loc *time.Location) DayKey {
	local := t.In(location(loc))
	return DayKey{
		Weekday: local.Weekday(),
		Day:     local.Day(),
		Month:   local.Month(),
	}
}

// String formats the key as "Mon 22/1" (day/month).
func (k DayKey) String() string {
	return fmt.Sprintf("%s %d/%d", weekdayNames[k.Weekday], k.Day, int(k.Month))
}

// SecondsSinceMidnight returns the local time of day of t in whole seconds.
func SecondsSinceMidnight(t time.Time, loc *time.Location) int {
	local := t.In(location(loc))
	return local.Hour()*3600 + local.Minute()*60 + local.Second()
}

// IntervalOf returns the time-of-day interval index of t.
func IntervalOf(t time.Time, intervalSeconds int, loc *time.Location) int {
	return SecondsSinceMidnight(t, loc) / intervalSeconds
}

// GroupByDay buckets samples by local calendar day in first-occurrence order.
func GroupByDay(samples []bloodsugar.Sample, loc *time.Location) *Buckets[DayKey] {
	b := newBuckets[DayKey]()
	for _, s := range samples {
		b.add(DayKeyOf(s.Timestamp, loc), s)
	}
	return b
}

// GroupByInterval buckets samples by time-of-day interval across all days.
// Keys iterate in ascending order. intervalSeconds must be positive; callers
// that need a tiled day must also ensure it divides 86400 (see ValidateInterval).
func GroupByInterval(samples []bloodsugar.Sample, intervalSeconds int, loc *time.Location) *Buckets[int] {
	b := newBuckets[int]()
	if intervalSeconds <= 0 {
		return b
	}
	for _, s := range samples {
		b.add(IntervalOf(s.Timestamp, intervalSeconds, loc), s)
	}
	sortKeys(b)
	return b
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
