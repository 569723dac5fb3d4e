// Copyright © 2018 One Concern

package cmd

import (
	"github.com/oneconcern/timestream/pkg/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// bundleCmd copies a timestream, possibly bundling its files in archives
var bundleCmd = &cobra.Command{
	Use:   "bundle INPUT OUTPUT",
	Short: "Bundle a timestream",
	Long: `Copy the timestream found in INPUT to OUTPUT, bundling files in zip archives at the requested level.

INPUT may be a directory of loose files or archives, a zip or a tar archive.
Files are written in input order. Re-running a bundle is a no-op for files already written.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig(cmd, args, "input", "output")
		if cfg == nil {
			return
		}
		r := openInput(cfg, logger)
		if r == nil {
			return
		}
		w := openOutput(cfg, logger)
		if w == nil {
			return
		}
		ctx, stop := signalContext()
		defer stop()

		engine := pipeline.NewEngine(pipeline.Copy(), cfg.EngineOptions(appFs, logger)...)
		summary, err := engine.RunTo(ctx, r, w)
		err = multierr.Append(err, w.Close())
		stats := w.Stats()
		printSummary(cmd.OutOrStdout(), summary, &stats)
		if err != nil {
			wrapFatalln("bundle "+cfg.Input, err)
			return
		}
	},
}

func init() {
	addForceFlag(bundleCmd)
	addInputFormatFlag(bundleCmd)
	addOutputFormatFlag(bundleCmd)
	addNameFlag(bundleCmd)
	addBundleFlag(bundleCmd)
	addCompressFlag(bundleCmd)
	addWorkersFlag(bundleCmd)
	addOnErrorFlag(bundleCmd)
	addDuplicatesFlag(bundleCmd)
	addTimeFilterFlags(bundleCmd)

	rootCmd.AddCommand(bundleCmd)
}
