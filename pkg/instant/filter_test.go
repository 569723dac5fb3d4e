// Copyright © 2018 One Concern

package instant

import (
	"testing"
	"time"

	"github.com/oneconcern/timestream/pkg/errors"
	"github.com/oneconcern/timestream/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeFilter(t *testing.T) {
	f, err := ParseTimeFilter("2001-02-01", "2001_02_02", "10:00", "12:14:15")
	require.NoError(t, err)
	require.False(t, f.IsOpen())

	for text, expected := range map[string]bool{
		"2001_02_01_09_14_15": false, // too early in the day
		"2001_02_01_10_00_00": true,  // inclusive start
		"2001_02_02_12_14_15": true,  // inclusive end
		"2001_02_02_12_14_16": false,
		"2001_01_31_11_00_00": false,
		"2001_02_03_11_00_00": false,
	} {
		assert.Equal(t, expected, f.Match(MustParse(text)), text)
	}

	var open *TimeFilter
	assert.True(t, open.Match(MustParse("1999_12_31_23_59_59")))
	assert.True(t, open.IsOpen())
}

func TestTimeFilterInvalidRange(t *testing.T) {
	_, err := NewTimeFilter(
		StartDate(time.Date(2001, 2, 2, 0, 0, 0, 0, time.UTC)),
		EndDate(time.Date(2001, 2, 1, 23, 0, 0, 0, time.UTC)),
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidRange))

	_, err = NewTimeFilter(StartTime(13*time.Hour), EndTime(12*time.Hour))
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidRange))

	_, err = NewTimeFilter(EndTime(25 * time.Hour))
	require.Error(t, err)

	_, err = ParseTimeFilter("yesterday", "", "", "")
	require.Error(t, err)

	// same day is a valid range
	f, err := NewTimeFilter(
		StartDate(time.Date(2001, 2, 1, 18, 0, 0, 0, time.UTC)),
		EndDate(time.Date(2001, 2, 1, 6, 0, 0, 0, time.UTC)),
	)
	require.NoError(t, err)
	assert.True(t, f.Match(MustParse("2001_02_01_00_00_00")))
}
