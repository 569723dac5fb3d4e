// Copyright © 2018 One Concern

package cmd

import (
	"bufio"

	"github.com/oneconcern/timestream/pkg/legacy"
	"github.com/oneconcern/timestream/pkg/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var legacyCmd = &cobra.Command{
	Use:   "legacy",
	Short: "Commands to convert from and to legacy msgpack streams",
	Long: `Commands to convert timestreams from and to the legacy format: a single file holding
a stream of msgpack messages, one per capture.`,
}

var legacyExportCmd = &cobra.Command{
	Use:   "export INPUT FILE",
	Short: "Export a timestream to a legacy stream",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig(cmd, args, "input", "output")
		if cfg == nil {
			return
		}
		r := openInput(cfg, logger)
		if r == nil {
			return
		}
		f, err := appFs.Create(cfg.Output)
		if err != nil {
			wrapFatalln("create legacy stream "+cfg.Output, err)
			return
		}
		buf := bufio.NewWriter(f)
		enc := legacy.NewEncoder(buf, legacy.EncoderLogger(logger))
		ctx, stop := signalContext()
		defer stop()

		// one worker keeps the stream in input order
		engine := pipeline.NewEngine(pipeline.Copy(),
			append(cfg.EngineOptions(appFs, logger), pipeline.Workers(1))...)
		summary, err := engine.RunTo(ctx, r, enc)
		err = multierr.Combine(err, enc.Close(), buf.Flush(), f.Close())
		printSummary(cmd.OutOrStdout(), summary, nil)
		if err != nil {
			wrapFatalln("export "+cfg.Input, err)
			return
		}
	},
}

var legacyImportCmd = &cobra.Command{
	Use:   "import FILE OUTPUT",
	Short: "Import a legacy stream as a timestream",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig(cmd, args, "input", "output")
		if cfg == nil {
			return
		}
		f, err := appFs.Open(cfg.Input)
		if err != nil {
			wrapFatalln("open legacy stream "+cfg.Input, err)
			return
		}
		defer f.Close()
		w := openOutput(cfg, logger)
		if w == nil {
			return
		}
		dec := legacy.NewDecoder(bufio.NewReader(f), legacy.DecoderLogger(logger))
		ctx, stop := signalContext()
		defer stop()

		steps := pipeline.New()
		if filter := cfg.TimeFilter(); !filter.IsOpen() {
			steps.Add(pipeline.TimeFilter(filter))
		}
		engine := pipeline.NewEngine(steps, cfg.EngineOptions(appFs, logger)...)
		summary, err := engine.RunTo(ctx, dec, w)
		err = multierr.Append(err, w.Close())
		stats := w.Stats()
		printSummary(cmd.OutOrStdout(), summary, &stats)
		if err != nil {
			wrapFatalln("import "+cfg.Input, err)
			return
		}
	},
}

func init() {
	addInputFormatFlag(legacyExportCmd)
	addTimeFilterFlags(legacyExportCmd)
	legacyCmd.AddCommand(legacyExportCmd)

	addForceFlag(legacyImportCmd)
	addOutputFormatFlag(legacyImportCmd)
	addNameFlag(legacyImportCmd)
	addBundleFlag(legacyImportCmd)
	addCompressFlag(legacyImportCmd)
	addWorkersFlag(legacyImportCmd)
	addOnErrorFlag(legacyImportCmd)
	addDuplicatesFlag(legacyImportCmd)
	addTimeFilterFlags(legacyImportCmd)
	legacyCmd.AddCommand(legacyImportCmd)

	rootCmd.AddCommand(legacyCmd)
}
