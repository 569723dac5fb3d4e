// Copyright © 2018 One Concern

// Package config holds the settings of a timestream processing run, as read from
// a config file, the environment and command line flags.
package config

import (
	"github.com/klauspost/compress/zip"
	"github.com/oneconcern/timestream/pkg/dlogger"
	"github.com/oneconcern/timestream/pkg/instant"
	"github.com/oneconcern/timestream/pkg/layout"
	"github.com/oneconcern/timestream/pkg/pipeline"
	"github.com/oneconcern/timestream/pkg/results"
	"github.com/oneconcern/timestream/pkg/status"
	"github.com/oneconcern/timestream/pkg/timestream"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Config of a run
type Config struct {
	Input        string `mapstructure:"input" json:"input,omitempty" yaml:"input,omitempty"`
	Output       string `mapstructure:"output" json:"output,omitempty" yaml:"output,omitempty"`
	Format       string `mapstructure:"format" json:"format,omitempty" yaml:"format,omitempty"`
	OutputFormat string `mapstructure:"output_format" json:"output_format,omitempty" yaml:"output_format,omitempty"`
	Name         string `mapstructure:"name" json:"name,omitempty" yaml:"name,omitempty"`
	Bundle       string `mapstructure:"bundle" json:"bundle" yaml:"bundle"`
	Compress     bool   `mapstructure:"compress" json:"compress,omitempty" yaml:"compress,omitempty"`
	Workers      int    `mapstructure:"workers" json:"workers" yaml:"workers"`
	OnError      string `mapstructure:"on_error" json:"on_error" yaml:"on_error"`
	Duplicates   string `mapstructure:"duplicates" json:"duplicates" yaml:"duplicates"`
	StartDate    string `mapstructure:"start_date" json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate      string `mapstructure:"end_date" json:"end_date,omitempty" yaml:"end_date,omitempty"`
	StartTime    string `mapstructure:"start_time" json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime      string `mapstructure:"end_time" json:"end_time,omitempty" yaml:"end_time,omitempty"`
	LogLevel     string `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	FlushEvery   int    `mapstructure:"flush_every" json:"flush_every,omitempty" yaml:"flush_every,omitempty"`
	Results      string `mapstructure:"results" json:"results,omitempty" yaml:"results,omitempty"`

	granularity layout.Granularity
	onError     pipeline.ErrorPolicy
	duplicates  results.Policy
	filter      *instant.TimeFilter
	validated   bool
}

// Defaults for the settings of a run
var Defaults = map[string]interface{}{
	"bundle":     layout.None.String(),
	"workers":    1,
	"on_error":   pipeline.Warn.String(),
	"duplicates": results.Fail.String(),
	"log_level":  "info",
}

// Default config
func Default() *Config {
	return &Config{
		Bundle:     layout.None.String(),
		Workers:    1,
		OnError:    pipeline.Warn.String(),
		Duplicates: results.Fail.String(),
		LogLevel:   "info",
	}
}

// SetDefaults registers the defaults with viper
func SetDefaults(v *viper.Viper) {
	for key, value := range Defaults {
		v.SetDefault(key, value)
	}
}

// Load the config known to viper, and validate it
func Load(v *viper.Viper) (*Config, error) {
	c := Default()
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate the enumerated settings, and the time filter.
//
// All problems are reported at once.
func (c *Config) Validate() error {
	var errs error
	var err error

	if c.granularity, err = layout.ParseGranularity(c.Bundle); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.onError, err = pipeline.ParseErrorPolicy(c.OnError); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.duplicates, err = results.ParsePolicy(c.Duplicates); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.filter, err = instant.ParseTimeFilter(c.StartDate, c.EndDate, c.StartTime, c.EndTime); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err = dlogger.ValidateLevel(c.LogLevel); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.Workers < 1 {
		errs = multierr.Append(errs, status.ErrInvalidPolicy.Wrapf("workers: %d: expected at least 1", c.Workers))
	}
	if c.FlushEvery < 0 {
		errs = multierr.Append(errs, status.ErrInvalidPolicy.Wrapf("flush every: %d: expected 0 or more", c.FlushEvery))
	}
	c.validated = errs == nil
	return errs
}

func (c *Config) mustBeValid() {
	if !c.validated {
		panic("config used before a successful Validate")
	}
}

// Granularity of output bundles
func (c *Config) Granularity() layout.Granularity {
	c.mustBeValid()
	return c.granularity
}

// TimeFilter of input records
func (c *Config) TimeFilter() *instant.TimeFilter {
	c.mustBeValid()
	return c.filter
}

// ReaderOptions to open the input
func (c *Config) ReaderOptions(fs afero.Fs, l *zap.Logger) []timestream.ReaderOption {
	c.mustBeValid()
	opts := []timestream.ReaderOption{timestream.ReaderFs(fs), timestream.ReaderLogger(l)}
	if c.Format != "" {
		opts = append(opts, timestream.FormatFilter(c.Format))
	}
	if !c.filter.IsOpen() {
		opts = append(opts, timestream.TimeFilter(c.filter))
	}
	return opts
}

// WriterOptions to create the output
func (c *Config) WriterOptions(fs afero.Fs, l *zap.Logger) []timestream.WriterOption {
	c.mustBeValid()
	opts := []timestream.WriterOption{
		timestream.WriterFs(fs),
		timestream.WriterLogger(l),
		timestream.Bundle(c.granularity),
	}
	if c.Name != "" {
		opts = append(opts, timestream.Name(c.Name))
	}
	if c.OutputFormat != "" {
		opts = append(opts, timestream.OutputFormat(c.OutputFormat))
	}
	if c.Compress {
		opts = append(opts, timestream.Compression(zip.Deflate))
	}
	return opts
}

// EngineOptions to run a pipeline. Results are flushed to the results file, if any.
func (c *Config) EngineOptions(fs afero.Fs, l *zap.Logger) []pipeline.EngineOption {
	c.mustBeValid()
	opts := []pipeline.EngineOption{
		pipeline.Workers(c.Workers),
		pipeline.OnError(c.onError),
		pipeline.Results(results.NewTable(results.Duplicates(c.duplicates))),
		pipeline.Logger(l),
	}
	if c.Results != "" {
		name := c.Results
		opts = append(opts, pipeline.FlushEvery(c.FlushEvery, func(t *results.Table) error {
			return t.SaveFile(fs, name)
		}))
	}
	return opts
}
