// Copyright © 2018 One Concern

package instant

import (
	"path"
	"path/filepath"
	"regexp"
	"time"

	"github.com/oneconcern/timestream/pkg/status"
)

var (
	tokenRe = regexp.MustCompile(`\d{4}_[0-1]\d_[0-3]\d_[0-2]\d_[0-5]\d_[0-5]\d`)

	isoLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		ISOLayout,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04",
		"2006-01-02",
		"20060102T150405",
	}
)

// FromName extracts an instant from a file or entry name.
//
// The date-time token is searched for in the base name, ignoring any prefix.
// It returns false when no valid token is present.
func FromName(name string) (Instant, bool) {
	base := path.Base(filepath.ToSlash(name))
	i, _, ok := search(base)
	return i, ok
}

// Token returns the part of a name that holds the instant (date-time, subsecond and index),
// or the base name itself when no instant is found.
//
// Tokens sort in chronological order, whatever the prefix of the name.
func Token(name string) string {
	base := path.Base(filepath.ToSlash(name))
	_, tok, ok := search(base)
	if !ok {
		return base
	}
	return tok
}

// IsTimestreamName tells if a name carries a valid instant
func IsTimestreamName(name string) bool {
	_, ok := FromName(name)
	return ok
}

// Parse an instant from a name or an ISO-8601 string.
//
// Time zones in ISO-8601 strings are dropped: the wall clock is retained.
func Parse(text string) (Instant, error) {
	if i, ok := FromName(text); ok {
		return i, nil
	}
	if t, ok := parseISO(text); ok {
		return New(t, 0), nil
	}
	return Instant{}, status.ErrNoTimestampFound.Wrapf("%q", text)
}

// MustParse is like Parse but panics on error
func MustParse(text string) Instant {
	i, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return i
}

// ParseTime parses an ISO-8601 string or a date-time token as a naive time
func ParseTime(text string) (time.Time, error) {
	if t, ok := parseISO(text); ok {
		return civil(t), nil
	}
	if t, err := time.Parse(Layout, text); err == nil {
		return t, nil
	}
	return time.Time{}, status.ErrNoTimestampFound.Wrapf("%q", text)
}

func parseISO(text string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// search for the first valid date-time token in a base name, then decode the suffix.
func search(base string) (Instant, string, bool) {
	for _, loc := range tokenRe.FindAllStringIndex(base, -1) {
		t, err := time.Parse(Layout, base[loc[0]:loc[1]])
		if err != nil {
			// e.g. 2001_02_30: keep looking
			continue
		}
		subsecond, index, indexed, n := suffix(base[loc[1]:])
		i := Instant{t: t, subsecond: subsecond, index: index, indexed: indexed}
		return i, base[loc[0] : loc[1]+n], true
	}
	return Instant{}, "", false
}

// suffix decodes [_SS][_INDEX] and reports how many bytes were consumed.
//
// A two-digit numeric group right after the date-time is the subsecond.
// The index is the following run of word characters.
func suffix(rest string) (subsecond uint, index string, indexed bool, n int) {
	if len(rest) < 2 || rest[0] != '_' {
		return 0, "", false, 0
	}
	if len(rest) >= 3 && isDigit(rest[1]) && isDigit(rest[2]) && (len(rest) == 3 || !isWord(rest[3]) || rest[3] == '_') {
		subsecond = uint(rest[1]-'0')*10 + uint(rest[2]-'0')
		n = 3
		if len(rest) < 5 || rest[3] != '_' {
			return subsecond, "", false, n
		}
	}
	j := n + 1
	for j < len(rest) && isWord(rest[j]) {
		j++
	}
	if j == n+1 {
		return subsecond, "", false, n
	}
	return subsecond, rest[n+1 : j], true, j
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isWord(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}
