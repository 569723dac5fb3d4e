// Copyright © 2018 One Concern

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// listCmd lists the records of a timestream
var listCmd = &cobra.Command{
	Use:   "list INPUT",
	Short: "List the files of a timestream",
	Long: `List the files of the timestream found in INPUT, one per line, with their instant and location.

Files are listed in stream order: for tar archives, this is the order of the archive.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig(cmd, args, "input")
		if cfg == nil {
			return
		}
		r := openInput(cfg, logger)
		if r == nil {
			return
		}
		ctx, stop := signalContext()
		defer stop()

		out := cmd.OutOrStdout()
		for rec, err := range r.All(ctx) {
			if err != nil {
				wrapFatalln("list "+cfg.Input, err)
				return
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\t%s\n", rec.Instant, rec.Name, rec.Content)
		}
		if !r.Sorted() {
			infoLogger.Println("warning: timestream is not sorted")
		}
	},
}

func init() {
	addInputFormatFlag(listCmd)
	addTimeFilterFlags(listCmd)

	rootCmd.AddCommand(listCmd)
}
