// Copyright © 2018 One Concern

// Package layout maps instants to their location in a bundled timestream.
//
// Loose files live under a YYYY/YYYY_MM/YYYY_MM_DD/YYYY_MM_DD_HH/ skeleton.
// Bundled files use the same relative path as their entry name inside a zip
// archive, placed at the skeleton prefix truncated to the bundle granularity:
// extracting an archive in place reconstructs the loose layout.
package layout

import (
	"path"
	"strings"

	"github.com/oneconcern/timestream/pkg/instant"
	"github.com/oneconcern/timestream/pkg/status"
)

// ArchiveExt is appended to the format extension of bundle archives
const ArchiveExt = ".zip"

// Granularity is the time unit at which files are grouped into one archive
type Granularity uint8

// Granularities, from the finest to the coarsest
const (
	None Granularity = iota
	Hour
	Day
	Month
	Year
	Root
)

var granularityNames = [...]string{
	None:  "none",
	Hour:  "hour",
	Day:   "day",
	Month: "month",
	Year:  "year",
	Root:  "root",
}

func (g Granularity) String() string {
	if int(g) < len(granularityNames) {
		return granularityNames[g]
	}
	return "invalid"
}

// Coarser tells if g groups more files per archive than o
func (g Granularity) Coarser(o Granularity) bool { return g > o }

// Bundled tells if files are written into archives
func (g Granularity) Bundled() bool { return g != None }

// Set implements pflag.Value
func (g *Granularity) Set(s string) error {
	v, err := ParseGranularity(s)
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// Type implements pflag.Value
func (g *Granularity) Type() string { return "granularity" }

// ParseGranularity parses one of none, root, year, month, day or hour
func ParseGranularity(s string) (Granularity, error) {
	for g, name := range granularityNames {
		if strings.EqualFold(s, name) {
			return Granularity(g), nil
		}
	}
	return None, status.ErrInvalidGranularity.Wrapf("%q: expected one of %s",
		s, strings.Join(granularityNames[:], "|"))
}

// Target locates a record in an output timestream, relative to the output root.
//
// Archive is empty for loose files, and Entry is then the relative file path.
type Target struct {
	Archive string
	Entry   string
}

// Bundled tells if the target is an entry in an archive
func (t Target) Bundled() bool { return t.Archive != "" }

// Path returns the file that holds the target: the archive, or the loose file
func (t Target) Path() string {
	if t.Bundled() {
		return t.Archive
	}
	return t.Entry
}

// Plan computes where a record lands for a given base name, instant, format extension
// and granularity. The format must not include a leading dot.
func Plan(base string, i instant.Instant, format string, g Granularity) Target {
	ext := strings.TrimPrefix(format, ".")
	dirs := Skeleton(i)
	entry := path.Join(path.Join(dirs[:]...), FileName(base, i, ext))

	suffix := ArchiveExt
	if ext != "" {
		suffix = "." + ext + ArchiveExt
	}
	var archive string
	switch g {
	case None:
	case Root:
		archive = base + suffix
	default:
		depth, stamp := g.scope(i)
		if base != "" {
			stamp = base + "_" + stamp
		}
		archive = path.Join(path.Join(dirs[:depth]...), stamp+suffix)
	}
	return Target{Archive: archive, Entry: entry}
}

// FileName of a loose file or archive entry: {base}_{instant}.{ext}
func FileName(base string, i instant.Instant, ext string) string {
	name := instant.Format(i)
	if base != "" {
		name = base + "_" + name
	}
	if ext != "" {
		name += "." + strings.TrimPrefix(ext, ".")
	}
	return name
}

// Skeleton returns the four directory levels of an instant: year, month, day and hour
func Skeleton(i instant.Instant) [4]string {
	t := i.Time()
	return [4]string{
		t.Format("2006"),
		t.Format("2006_01"),
		t.Format("2006_01_02"),
		t.Format("2006_01_02_15"),
	}
}

// scope returns how many skeleton levels hold the archive, and its time stamp
func (g Granularity) scope(i instant.Instant) (int, string) {
	t := i.Time()
	switch g {
	case Year:
		return 0, t.Format("2006")
	case Month:
		return 1, t.Format("2006_01")
	case Day:
		return 2, t.Format("2006_01_02")
	default:
		return 3, t.Format("2006_01_02_15")
	}
}

// BaseName derives a timestream base name from the last element of a path,
// stripping archive and format extensions, e.g. "out/cam1.jpg.zip" gives "cam1".
func BaseName(p string) string {
	base := path.Base(strings.TrimRight(strings.ReplaceAll(p, "\\", "/"), "/"))
	if base == "." || base == "/" {
		return ""
	}
	for {
		ext := path.Ext(base)
		if ext == "" || ext == base {
			return base
		}
		base = strings.TrimSuffix(base, ext)
	}
}
