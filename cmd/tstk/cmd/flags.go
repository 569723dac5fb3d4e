// Copyright © 2018 One Concern

package cmd

import (
	"strings"

	"github.com/oneconcern/timestream/pkg/layout"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type flagsT struct {
	root struct {
		cpuProf bool
	}
	bundle struct {
		force bool
		level layout.Granularity
	}
	stats struct {
		checksums []string
	}
}

var params = flagsT{}

// flagKeys maps flags to config keys. Several commands share a key, so flags
// are bound to viper when a command runs.
var flagKeys = make(map[string]string)

func bind(name, key string) string {
	flagKeys[name] = key
	return name
}

func bindFlags(cmd *cobra.Command) error {
	var err error
	visit := func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && err == nil {
			err = viper.BindPFlag(key, f)
		}
	}
	cmd.InheritedFlags().VisitAll(visit)
	cmd.Flags().VisitAll(visit)
	return err
}

func addLogLevelFlag(cmd *cobra.Command) string {
	c := "loglevel"
	cmd.PersistentFlags().String(c, "info", "The logging level. Levels by increasing order of verbosity: none, error, warn, info, debug")
	return bind(c, "log_level")
}

func addCPUProfFlag(cmd *cobra.Command) string {
	c := "cpuprof"
	cmd.PersistentFlags().BoolVar(&params.root.cpuProf, c, false, "Toggle runtime profiling")
	return c
}

func addForceFlag(cmd *cobra.Command) string {
	c := "force"
	cmd.Flags().BoolVar(&params.bundle.force, c, false, "Force writing to an existing timestream")
	return c
}

func addInputFormatFlag(cmd *cobra.Command) string {
	c := "informat"
	cmd.Flags().StringP(c, "F", "", "Only read input files with this extension, e.g. jpg")
	return bind(c, "format")
}

func addOutputFormatFlag(cmd *cobra.Command) string {
	c := "format"
	cmd.Flags().StringP(c, "f", "", "Extension of output files (defaults to the extension of input files)")
	return bind(c, "output_format")
}

func addNameFlag(cmd *cobra.Command) string {
	c := "name"
	cmd.Flags().String(c, "", "Base name of output files and archives (defaults to the name of the output directory)")
	return bind(c, "name")
}

func addBundleFlag(cmd *cobra.Command) string {
	c := "level"
	cmd.Flags().VarP(&params.bundle.level, c, "l", "Level at which to bundle files: none, hour, day, month, year or root")
	return bind(c, "bundle")
}

func addCompressFlag(cmd *cobra.Command) string {
	c := "compress"
	cmd.Flags().Bool(c, false, "Deflate archive entries, instead of storing them")
	return bind(c, "compress")
}

func addWorkersFlag(cmd *cobra.Command) string {
	c := "workers"
	cmd.Flags().IntP(c, "j", 1, "Number of records processed in parallel. Output order is only preserved with 1")
	return bind(c, "workers")
}

func addOnErrorFlag(cmd *cobra.Command) string {
	c := "on-error"
	cmd.Flags().String(c, "warn", "What to do when a record fails: raise, skip or warn")
	return bind(c, "on_error")
}

func addDuplicatesFlag(cmd *cobra.Command) string {
	c := "duplicates"
	cmd.Flags().String(c, "fail", "What to do when two records share an instant: fail or overwrite")
	return bind(c, "duplicates")
}

func addTimeFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("start-date", "", "Skip records before this date (YYYY-MM-DD)")
	cmd.Flags().String("end-date", "", "Skip records after this date (YYYY-MM-DD)")
	cmd.Flags().String("start-time", "", "Skip records before this time of day (HH:MM)")
	cmd.Flags().String("end-time", "", "Skip records after this time of day (HH:MM)")
	for _, c := range []string{"start-date", "end-date", "start-time", "end-time"} {
		bind(c, strings.ReplaceAll(c, "-", "_"))
	}
}

func addResultsFlag(cmd *cobra.Command) string {
	c := "results"
	cmd.Flags().StringP(c, "o", "", "Results file (.tsv, .csv or .jsonl). Defaults to tab separated values on stdout")
	return bind(c, "results")
}

func addFlushEveryFlag(cmd *cobra.Command) string {
	c := "flush-every"
	cmd.Flags().Int(c, 0, "Save the results file every so many records")
	return bind(c, "flush_every")
}

func addChecksumFlag(cmd *cobra.Command) string {
	c := "checksum"
	cmd.Flags().StringSliceVar(&params.stats.checksums, c, []string{"md5"}, "Checksums of file content to report: md5, sha1, sha256, blake2b, blake3")
	return c
}
