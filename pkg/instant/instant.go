// Copyright © 2018 One Concern

package instant

import (
	"fmt"
	"strings"
	"time"
)

const (
	// Layout is the date-time token used in timestream names
	Layout = "2006_01_02_15_04_05"

	// ISOLayout is the ISO-8601 form of an instant, with no time zone
	ISOLayout = "2006-01-02T15:04:05"
)

// Instant is an immutable, ordered moment in a timestream
type Instant struct {
	t         time.Time
	subsecond uint
	index     string
	indexed   bool
}

// New instant from a time. The time zone is dropped and the wall clock is
// kept, truncated to the second.
func New(t time.Time, subsecond uint) Instant {
	return Instant{t: civil(t), subsecond: subsecond}
}

// Now builds an instant from the current wall clock
func Now() Instant {
	return New(time.Now(), 0)
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// WithIndex returns a copy of this instant carrying an index
func (i Instant) WithIndex(index string) Instant {
	i.index = index
	i.indexed = true
	return i
}

// WithoutIndex returns a copy of this instant with no index
func (i Instant) WithoutIndex() Instant {
	i.index = ""
	i.indexed = false
	return i
}

// Time of this instant, as a naive time in the UTC location
func (i Instant) Time() time.Time { return i.t }

// Subsecond slot of this instant
func (i Instant) Subsecond() uint { return i.subsecond }

// Index of this instant, if any
func (i Instant) Index() (string, bool) { return i.index, i.indexed }

// IsZero tells if this instant has never been set
func (i Instant) IsZero() bool {
	return i.t.IsZero() && i.subsecond == 0 && !i.indexed
}

// Truncate the time of this instant down to a multiple of d.
//
// The sub-second slot is reset, the index is retained.
func (i Instant) Truncate(d time.Duration) Instant {
	i.t = i.t.Truncate(d)
	i.subsecond = 0
	return i
}

// Compare returns -1, 0 or +1 as a sorts before, with or after b.
//
// The index only participates when both instants carry one: an indexed and an
// unindexed instant with the same time and subsecond compare equal, although
// they are not Equal.
func Compare(a, b Instant) int {
	switch {
	case a.t.Before(b.t):
		return -1
	case a.t.After(b.t):
		return 1
	case a.subsecond < b.subsecond:
		return -1
	case a.subsecond > b.subsecond:
		return 1
	case a.indexed && b.indexed:
		return strings.Compare(a.index, b.index)
	default:
		return 0
	}
}

// Before tells if i sorts strictly before o
func (i Instant) Before(o Instant) bool { return Compare(i, o) < 0 }

// After tells if i sorts strictly after o
func (i Instant) After(o Instant) bool { return Compare(i, o) > 0 }

// Equal requires time, subsecond and index to be equal
func (i Instant) Equal(o Instant) bool {
	return i.t.Equal(o.t) && i.subsecond == o.subsecond && i.indexed == o.indexed && i.index == o.index
}

// String formats this instant, see Format
func (i Instant) String() string {
	return Format(i)
}

// Format an instant as YYYY_MM_DD_HH_MM_SS_SS, followed by _INDEX when an index is set.
func Format(i Instant) string {
	var b strings.Builder
	b.WriteString(i.t.Format(Layout))
	fmt.Fprintf(&b, "_%02d", i.subsecond)
	if i.indexed {
		b.WriteByte('_')
		b.WriteString(i.index)
	}
	return b.String()
}

// ISO8601 formats the time of this instant as YYYY-MM-DDTHH:MM:SS
func (i Instant) ISO8601() string {
	return i.t.Format(ISOLayout)
}
