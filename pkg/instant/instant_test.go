// Copyright © 2018 One Concern

package instant

import (
	"sort"
	"testing"
	"time"

	"github.com/oneconcern/timestream/pkg/errors"
	"github.com/oneconcern/timestream/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parseFixture struct {
	name      string
	text      string
	wantsErr  bool
	time      time.Time
	subsecond uint
	index     string
	indexed   bool
}

func parseTestCases() []parseFixture {
	ref := time.Date(2001, 2, 1, 9, 14, 15, 0, time.UTC)
	return []parseFixture{
		{name: "bare date-time", text: "2001_02_01_09_14_15", time: ref},
		{name: "with subsecond", text: "2001_02_01_09_14_15_00.tif", time: ref},
		{name: "nonzero subsecond", text: "2001_02_01_09_14_15_42.tif", time: ref, subsecond: 42},
		{name: "camera prefix", text: "GC37L~320_2001_02_01_09_14_15.jpg", time: ref},
		{name: "with directories", text: "a/2001/2001_02_01_09_14_15_00.jpg", time: ref},
		{name: "subsecond and index", text: "2001_02_01_09_14_15_00_01.jpg", time: ref, index: "01", indexed: true},
		{name: "non-numeric suffix is an index", text: "2001_02_01_09_14_15_ab.tif", time: ref, index: "ab", indexed: true},
		{name: "long numeric suffix is an index", text: "2001_02_01_09_14_15_123.tif", time: ref, index: "123", indexed: true},
		{name: "index with underscores", text: "2001_02_01_09_14_15_05_cam_2.tif", time: ref, subsecond: 5, index: "cam_2", indexed: true},
		{name: "prefix and index", text: "output_2001_02_01_09_14_15_00_x1.png", time: ref, index: "x1", indexed: true},
		{name: "iso8601", text: "2001-02-01T09:14:15", time: ref},
		{name: "iso8601 with zone is naive", text: "2001-02-01T09:14:15+10:00", time: ref},
		{name: "iso8601 fraction is truncated", text: "2001-02-01T09:14:15.250Z", time: ref},
		{name: "iso8601 date", text: "2001-02-01", time: time.Date(2001, 2, 1, 0, 0, 0, 0, time.UTC)},
		{name: "invalid calendar date", text: "2001_02_30_09_14_15_00.tif", wantsErr: true},
		{name: "not a timestream name", text: "not-a-timestream.jpg", wantsErr: true},
		{name: "date only token", text: "output_2001_02_01.tif.zip", wantsErr: true},
	}
}

func TestParse(t *testing.T) {
	for _, toPin := range parseTestCases() {
		testCase := toPin
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			i, err := Parse(testCase.text)
			if testCase.wantsErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, status.ErrNoTimestampFound))
				return
			}
			require.NoError(t, err)
			assert.True(t, testCase.time.Equal(i.Time()), "got %v", i.Time())
			assert.Equal(t, testCase.subsecond, i.Subsecond())
			index, indexed := i.Index()
			assert.Equal(t, testCase.indexed, indexed)
			assert.Equal(t, testCase.index, index)
		})
	}
}

func TestFormat(t *testing.T) {
	ref := time.Date(2017, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "2017_01_02_03_04_05_00", New(ref, 0).String())
	assert.Equal(t, "2017_01_02_03_04_05_00_0011", New(ref, 0).WithIndex("0011").String())
	assert.Equal(t, "2017_01_02_03_04_05_07", New(ref, 7).String())
	assert.Equal(t, "2017-01-02T03:04:05", New(ref, 7).ISO8601())

	for _, text := range []string{
		"2001_02_01_09_14_15_00",
		"2001_02_01_09_14_15_00_ab",
		"2001_02_01_09_14_15_42_123",
		"2001_02_01_09_14_15_00__x",
	} {
		i := MustParse(text)
		assert.Equal(t, text, Format(i))
		assert.True(t, i.Equal(MustParse(Format(i))))
	}
}

func TestNewDropsZone(t *testing.T) {
	loc := time.FixedZone("AEST", 10*3600)
	i := New(time.Date(2001, 2, 1, 9, 14, 15, 999, loc), 0)
	assert.Equal(t, "2001_02_01_09_14_15_00", i.String())
	assert.Equal(t, time.UTC, i.Time().Location())
}

func TestCompare(t *testing.T) {
	base := MustParse("2001_02_01_09_14_15")
	later := MustParse("2001_02_01_09_14_16")
	sub := MustParse("2001_02_01_09_14_15_01")

	assert.True(t, base.Before(later))
	assert.True(t, later.After(base))
	assert.True(t, base.Before(sub))
	assert.Equal(t, 0, Compare(base, base))

	a := base.WithIndex("a")
	b := base.WithIndex("b")
	assert.True(t, a.Before(b))
	assert.Equal(t, 1, Compare(b, a))

	// mixed presence of an index: ordering falls back on (time, subsecond),
	// so the two instants tie without being equal
	assert.Equal(t, 0, Compare(a, base))
	assert.Equal(t, 0, Compare(base, b))
	assert.False(t, a.Equal(base))
	assert.False(t, base.WithIndex("").Equal(base))
	assert.True(t, a.Equal(MustParse("2001_02_01_09_14_15_00_a")))
}

func TestToken(t *testing.T) {
	names := []string{
		"zcam_2001_02_01_10_14_15_00.jpg",
		"acam_2001_02_01_11_14_15_00.jpg",
		"2001_02_01_09_14_15_00.jpg",
	}
	sort.Slice(names, func(i, j int) bool { return Token(names[i]) < Token(names[j]) })
	assert.Equal(t, []string{
		"2001_02_01_09_14_15_00.jpg",
		"zcam_2001_02_01_10_14_15_00.jpg",
		"acam_2001_02_01_11_14_15_00.jpg",
	}, names)
	assert.Equal(t, "2001_02_01_09_14_15_00_01", Token("x/cam_2001_02_01_09_14_15_00_01.jpg"))
	assert.Equal(t, "README.txt", Token("docs/README.txt"))
	assert.True(t, IsTimestreamName("cam_2001_02_01_09_14_15.CR2"))
	assert.False(t, IsTimestreamName("2001_02_01_09/notes.txt"))
}

func TestTruncate(t *testing.T) {
	i := MustParse("2001_02_01_09_14_15_03_x")
	aligned := i.Truncate(5 * time.Minute)
	assert.Equal(t, "2001_02_01_09_10_00_00_x", aligned.String())
}
