// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	units "github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/oneconcern/timestream/pkg/config"
	"github.com/oneconcern/timestream/pkg/dlogger"
	"github.com/oneconcern/timestream/pkg/pipeline"
	"github.com/oneconcern/timestream/pkg/timestream"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// used to patch over the filesystem during test
var appFs = afero.NewOsFs()

// loadConfig binds the flags of a command, sets the positional arguments, then loads the config.
//
// keys name the config keys taken from the positional arguments, in order.
func loadConfig(cmd *cobra.Command, args []string, keys ...string) (*config.Config, *zap.Logger) {
	if err := bindFlags(cmd); err != nil {
		wrapFatalln("bind flags", err)
		return nil, nil
	}
	for i, key := range keys {
		if i < len(args) {
			viper.Set(key, args[i])
		}
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		wrapFatalln("invalid configuration", err)
		return nil, nil
	}
	logger, err := dlogger.GetLogger(cfg.LogLevel)
	if err != nil {
		wrapFatalln("failed to set log level", err)
		return nil, nil
	}
	return cfg, logger
}

// signalContext is cancelled on SIGINT or SIGTERM: records in flight are completed,
// no new record is started.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func openInput(cfg *config.Config, logger *zap.Logger) *timestream.Reader {
	r, err := timestream.Open(cfg.Input, cfg.ReaderOptions(appFs, logger)...)
	if err != nil {
		wrapFatalln("open input timestream "+cfg.Input, err)
		return nil
	}
	return r
}

// openOutput refuses an existing output, unless forced
func openOutput(cfg *config.Config, logger *zap.Logger) *timestream.Writer {
	exists, err := afero.Exists(appFs, cfg.Output)
	if err != nil {
		wrapFatalln("check output "+cfg.Output, err)
		return nil
	}
	if exists && !params.bundle.force {
		wrapFatalWithCodef(1, "ERROR: output exists: %s. Use --force to write to it anyway", cfg.Output)
		return nil
	}
	w, err := timestream.NewWriter(cfg.Output, cfg.WriterOptions(appFs, logger)...)
	if err != nil {
		wrapFatalln("create output timestream "+cfg.Output, err)
		return nil
	}
	return w
}

func printSummary(out io.Writer, summary pipeline.Summary, stats *timestream.WriterStats) {
	state := color.GreenString(summary.Status.String())
	switch summary.Status {
	case pipeline.Cancelled:
		state = color.YellowString(summary.Status.String())
	case pipeline.Aborted:
		state = color.RedString(summary.Status.String())
	}
	_, _ = fmt.Fprintf(out, "run %s %s in %s: %d processed, %d emitted, %d dropped, %d failed\n",
		summary.RunID, state, units.HumanDuration(summary.Elapsed),
		summary.Processed, summary.Emitted, summary.Dropped, summary.Failed)
	if stats != nil {
		_, _ = fmt.Fprintf(out, "%d written (%s), %d unchanged\n",
			stats.Written, units.HumanSize(float64(stats.Bytes)), stats.Unchanged)
	}
}
