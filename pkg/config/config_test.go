// Copyright © 2018 One Concern

package config

import (
	"bytes"
	"context"
	"testing"

	"github.com/oneconcern/timestream/internal/fixture"
	"github.com/oneconcern/timestream/pkg/errors"
	"github.com/oneconcern/timestream/pkg/layout"
	"github.com/oneconcern/timestream/pkg/pipeline"
	"github.com/oneconcern/timestream/pkg/status"
	"github.com/oneconcern/timestream/pkg/timestream"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sample = `
input: /input
output: /output
bundle: day
workers: 2
on_error: skip
start_date: "2001-02-02"
start_time: "10:00"
results: /results.csv
flush_every: 4
`

func load(t *testing.T, text string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(text)))
	return Load(v)
}

func TestLoad(t *testing.T) {
	c, err := load(t, sample)
	require.NoError(t, err)
	assert.Equal(t, "/input", c.Input)
	assert.Equal(t, layout.Day, c.Granularity())
	assert.Equal(t, 2, c.Workers)
	assert.Equal(t, "fail", c.Duplicates, "defaults fill the blanks")
	assert.Equal(t, "info", c.LogLevel)
	assert.False(t, c.TimeFilter().IsOpen())

	c, err = load(t, "input: /input\n")
	require.NoError(t, err)
	assert.Equal(t, layout.None, c.Granularity())
	assert.True(t, c.TimeFilter().IsOpen())
}

func TestValidate(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	c = Default()
	c.Bundle = "week"
	c.OnError = "ignore"
	c.Duplicates = "keep"
	c.Workers = 0
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidGranularity))
	assert.True(t, errors.Is(err, status.ErrInvalidPolicy))
	assert.Contains(t, err.Error(), "workers")
	assert.Panics(t, func() { c.Granularity() })

	c = Default()
	c.StartDate = "2001-02-03"
	c.EndDate = "2001-02-01"
	assert.True(t, errors.Is(c.Validate(), status.ErrInvalidRange), "the time filter is checked eagerly")

	c = Default()
	c.LogLevel = "chatty"
	assert.Error(t, c.Validate())
}

// the options built from a config drive a complete run
func TestOptions(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fixture.WriteNested(fs, "/input", fixture.Small("tif")))
	c, err := load(t, sample)
	require.NoError(t, err)
	c.Compress = true
	c.Name = "cam"

	r, err := timestream.Open(c.Input, c.ReaderOptions(fs, zap.NewNop())...)
	require.NoError(t, err)
	w, err := timestream.NewWriter(c.Output, c.WriterOptions(fs, zap.NewNop())...)
	require.NoError(t, err)
	e := pipeline.NewEngine(pipeline.FileStats(), c.EngineOptions(fs, zap.NewNop())...)

	summary, err := e.RunTo(context.Background(), r, w)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, int64(4), summary.Emitted, "from 10:00 on the second day")

	exists, err := afero.Exists(fs, "/output/2001/2001_02/cam_2001_02_02.tif.zip")
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := afero.ReadFile(fs, "/results.csv")
	require.NoError(t, err)
	assert.Contains(t, string(data), "instant,file_name,file_size\n")
}
