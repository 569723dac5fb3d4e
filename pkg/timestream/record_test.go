// Copyright © 2018 One Concern

package timestream

import (
	"context"
	"testing"

	"github.com/oneconcern/timestream/pkg/errors"
	"github.com/oneconcern/timestream/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	rec, err := FromBytes("some/dir/cam1_2001_02_01_09_14_15_00.JPG", []byte("pixels"))
	require.NoError(t, err)
	assert.Equal(t, "cam1_2001_02_01_09_14_15_00.JPG", rec.Name)
	assert.Equal(t, "jpg", rec.Ext())
	assert.Equal(t, "2001_02_01_09_14_15_00", rec.Instant.String())

	rec.Set("size", 6)
	derived := rec.Derive()
	derived.Set("size", 7)
	derived.Set("mean", 0.5)
	assert.Equal(t, 6, rec.Report["size"], "derived reports are not shared")
	assert.NotContains(t, rec.Report, "mean")
	assert.Same(t, rec.Content, derived.Content)

	data, err := derived.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))

	var bare Record
	bare.Set("ok", true)
	assert.Equal(t, true, bare.Report["ok"])

	_, err = FromBytes("README.md", nil)
	assert.True(t, errors.Is(err, status.ErrNoTimestampFound))
}
