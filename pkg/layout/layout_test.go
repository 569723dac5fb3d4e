// Copyright © 2018 One Concern

package layout

import (
	"testing"

	"github.com/oneconcern/timestream/pkg/errors"
	"github.com/oneconcern/timestream/pkg/instant"
	"github.com/oneconcern/timestream/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan(t *testing.T) {
	i := instant.MustParse("2001_02_01_09_14_15_00")
	const entry = "2001/2001_02/2001_02_01/2001_02_01_09/output_2001_02_01_09_14_15_00.tif"

	for _, toPin := range []struct {
		g       Granularity
		archive string
	}{
		{g: None},
		{g: Root, archive: "output.tif.zip"},
		{g: Year, archive: "output_2001.tif.zip"},
		{g: Month, archive: "2001/output_2001_02.tif.zip"},
		{g: Day, archive: "2001/2001_02/output_2001_02_01.tif.zip"},
		{g: Hour, archive: "2001/2001_02/2001_02_01/output_2001_02_01_09.tif.zip"},
	} {
		testCase := toPin
		t.Run(testCase.g.String(), func(t *testing.T) {
			t.Parallel()
			target := Plan("output", i, "tif", testCase.g)
			assert.Equal(t, entry, target.Entry)
			assert.Equal(t, testCase.archive, target.Archive)
			assert.Equal(t, testCase.g.Bundled(), target.Bundled())
			if target.Bundled() {
				assert.Equal(t, testCase.archive, target.Path())
			} else {
				assert.Equal(t, entry, target.Path())
			}
			// pure: the same inputs always give the same paths
			assert.Equal(t, target, Plan("output", i, ".tif", testCase.g))
		})
	}
}

func TestPlanIndex(t *testing.T) {
	i := instant.MustParse("cam_2001_02_01_09_14_15_00_07.jpg")
	target := Plan("gv", i, "jpg", Day)
	assert.Equal(t, "2001/2001_02/2001_02_01/2001_02_01_09/gv_2001_02_01_09_14_15_00_07.jpg", target.Entry)
	assert.Equal(t, "2001/2001_02/gv_2001_02_01.jpg.zip", target.Archive)

	parsed, ok := instant.FromName(target.Entry)
	require.True(t, ok)
	assert.True(t, i.Equal(parsed))
}

func TestParseGranularity(t *testing.T) {
	for _, name := range []string{"none", "root", "year", "month", "day", "hour"} {
		g, err := ParseGranularity(name)
		require.NoError(t, err)
		assert.Equal(t, name, g.String())
	}

	g, err := ParseGranularity("DAY")
	require.NoError(t, err)
	assert.Equal(t, Day, g)
	assert.True(t, Root.Coarser(Year))
	assert.True(t, Hour.Coarser(None))

	_, err = ParseGranularity("week")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidGranularity))

	var flag Granularity
	require.NoError(t, flag.Set("month"))
	assert.Equal(t, Month, flag)
	assert.Equal(t, "granularity", flag.Type())
}

func TestBaseName(t *testing.T) {
	for p, expected := range map[string]string{
		"output":           "output",
		"out/cam1.jpg.zip": "cam1",
		"/data/gvlike/":    "gvlike",
		"ts.tar":           "ts",
		"":                 "",
		"/":                "",
	} {
		assert.Equal(t, expected, BaseName(p), p)
	}
}
