// Copyright © 2018 One Concern

package instant

import (
	"strings"
	"time"

	"github.com/oneconcern/timestream/pkg/status"
)

const day = 24 * time.Hour

// TimeFilter selects instants within an inclusive date range and an inclusive time-of-day range.
//
// Every bound is optional. A nil *TimeFilter matches everything.
type TimeFilter struct {
	startDate, endDate time.Time
	startTime, endTime time.Duration
	hasStartTime       bool
	hasEndTime         bool
}

// FilterOption is a functor to build a time filter with some options
type FilterOption func(*TimeFilter)

// StartDate sets the first date (inclusive). Only the date part of t is retained.
func StartDate(t time.Time) FilterOption {
	return func(f *TimeFilter) {
		f.startDate = dateOf(t)
	}
}

// EndDate sets the last date (inclusive). Only the date part of t is retained.
func EndDate(t time.Time) FilterOption {
	return func(f *TimeFilter) {
		f.endDate = dateOf(t)
	}
}

// StartTime sets the earliest time of day (inclusive), as an offset from midnight
func StartTime(d time.Duration) FilterOption {
	return func(f *TimeFilter) {
		f.startTime = d
		f.hasStartTime = true
	}
}

// EndTime sets the latest time of day (inclusive), as an offset from midnight
func EndTime(d time.Duration) FilterOption {
	return func(f *TimeFilter) {
		f.endTime = d
		f.hasEndTime = true
	}
}

// NewTimeFilter builds a time filter. It fails with ErrInvalidRange when a range starts after it ends.
func NewTimeFilter(opts ...FilterOption) (*TimeFilter, error) {
	f := &TimeFilter{}
	for _, apply := range opts {
		apply(f)
	}
	if !f.startDate.IsZero() && !f.endDate.IsZero() && f.startDate.After(f.endDate) {
		return nil, status.ErrInvalidRange.Wrapf("start date %s is after end date %s",
			f.startDate.Format("2006-01-02"), f.endDate.Format("2006-01-02"))
	}
	for _, d := range []struct {
		set bool
		v   time.Duration
	}{{f.hasStartTime, f.startTime}, {f.hasEndTime, f.endTime}} {
		if d.set && (d.v < 0 || d.v >= day) {
			return nil, status.ErrInvalidRange.Wrapf("time of day out of bounds: %v", d.v)
		}
	}
	if f.hasStartTime && f.hasEndTime && f.startTime > f.endTime {
		return nil, status.ErrInvalidRange.Wrapf("start time %v is after end time %v", f.startTime, f.endTime)
	}
	return f, nil
}

// ParseTimeFilter builds a time filter from strings, as given on a command line.
//
// Empty strings leave the corresponding bound open. Dates are parsed with ParseDate,
// times of day with ParseTimeOfDay.
func ParseTimeFilter(startDate, endDate, startTime, endTime string) (*TimeFilter, error) {
	var opts []FilterOption
	if startDate != "" {
		d, err := ParseDate(startDate)
		if err != nil {
			return nil, err
		}
		opts = append(opts, StartDate(d))
	}
	if endDate != "" {
		d, err := ParseDate(endDate)
		if err != nil {
			return nil, err
		}
		opts = append(opts, EndDate(d))
	}
	if startTime != "" {
		t, err := ParseTimeOfDay(startTime)
		if err != nil {
			return nil, err
		}
		opts = append(opts, StartTime(t))
	}
	if endTime != "" {
		t, err := ParseTimeOfDay(endTime)
		if err != nil {
			return nil, err
		}
		opts = append(opts, EndTime(t))
	}
	return NewTimeFilter(opts...)
}

// ParseDate parses a date as YYYY-MM-DD, YYYY_MM_DD or any ISO-8601 date-time
func ParseDate(text string) (time.Time, error) {
	if t, err := time.Parse("2006_01_02", text); err == nil {
		return t, nil
	}
	t, err := ParseTime(text)
	if err != nil {
		return time.Time{}, status.ErrInvalidRange.Wrapf("invalid date %q", text)
	}
	return dateOf(t), nil
}

// ParseTimeOfDay parses HH:MM, HH:MM:SS or HH_MM_SS as an offset from midnight
func ParseTimeOfDay(text string) (time.Duration, error) {
	layouts := []string{"15:04:05", "15:04", "15_04_05", "15_04"}
	if strings.Contains(text, "T") {
		if t, err := ParseTime(text); err == nil {
			return timeOfDay(t), nil
		}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, text); err == nil {
			return timeOfDay(t), nil
		}
	}
	return 0, status.ErrInvalidRange.Wrapf("invalid time of day %q", text)
}

// Match tells if an instant falls within the filter
func (f *TimeFilter) Match(i Instant) bool {
	if f == nil {
		return true
	}
	d := dateOf(i.t)
	if !f.startDate.IsZero() && d.Before(f.startDate) {
		return false
	}
	if !f.endDate.IsZero() && d.After(f.endDate) {
		return false
	}
	tod := timeOfDay(i.t)
	if f.hasStartTime && tod < f.startTime {
		return false
	}
	if f.hasEndTime && tod > f.endTime {
		return false
	}
	return true
}

// IsOpen tells if the filter has no bound at all
func (f *TimeFilter) IsOpen() bool {
	return f == nil || (f.startDate.IsZero() && f.endDate.IsZero() && !f.hasStartTime && !f.hasEndTime)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func timeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
}
