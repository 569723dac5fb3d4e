// Copyright © 2018 One Concern

package cmd

import (
	"github.com/oneconcern/timestream/pkg/content"
	"github.com/oneconcern/timestream/pkg/pipeline"
	"github.com/spf13/cobra"
)

// statsCmd reports the size and checksums of the files of a timestream
var statsCmd = &cobra.Command{
	Use:   "stats INPUT",
	Short: "Report file statistics on a timestream",
	Long: `Report the name, size and checksums of each file of the timestream found in INPUT,
as a table with one row per instant.

The table is written to the results file if set, or as tab separated values on stdout.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig(cmd, args, "input")
		if cfg == nil {
			return
		}
		algs := make([]content.Algorithm, 0, len(params.stats.checksums))
		for _, name := range params.stats.checksums {
			alg, err := content.ParseAlgorithm(name)
			if err != nil {
				wrapFatalln("checksum", err)
				return
			}
			algs = append(algs, alg)
		}
		r := openInput(cfg, logger)
		if r == nil {
			return
		}
		ctx, stop := signalContext()
		defer stop()

		engine := pipeline.NewEngine(pipeline.FileStats(algs...), cfg.EngineOptions(appFs, logger)...)
		summary, err := engine.Run(ctx, r)
		if err != nil {
			wrapFatalln("stats "+cfg.Input, err)
			return
		}
		if cfg.Results == "" {
			if err := engine.Table().WriteDelimited(cmd.OutOrStdout(), '\t'); err != nil {
				wrapFatalln("write results", err)
				return
			}
			return
		}
		printSummary(cmd.OutOrStdout(), summary, nil)
	},
}

func init() {
	addInputFormatFlag(statsCmd)
	addTimeFilterFlags(statsCmd)
	addWorkersFlag(statsCmd)
	addOnErrorFlag(statsCmd)
	addDuplicatesFlag(statsCmd)
	addResultsFlag(statsCmd)
	addFlushEveryFlag(statsCmd)
	addChecksumFlag(statsCmd)

	rootCmd.AddCommand(statsCmd)
}
