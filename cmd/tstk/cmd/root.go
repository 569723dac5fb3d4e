// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/oneconcern/timestream/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tstk",
	Short: "tstk manipulates timestreams",
	Long: `tstk manipulates timestreams: time-ordered sequences of files, typically images
captured by a camera, named after their capture time.

A timestream may be stored as loose files in a directory tree, as zip or tar archives,
or as a mix of those. tstk reads any of these forms, and writes timestreams
bundled in zip archives per hour, day, month or year.
`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if params.root.cpuProf {
			f, err := os.Create("cpu.prof")
			if err != nil {
				wrapFatalln("create cpu profile", err)
				return
			}
			_ = pprof.StartCPUProfile(f)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if params.root.cpuProf {
			pprof.StopCPUProfile()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		osExit(1)
	}
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)

	addLogLevelFlag(rootCmd)
	addCPUProfFlag(rootCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())
	if os.Getenv("TSTK_CONFIG") != "" {
		viper.SetConfigFile(os.Getenv("TSTK_CONFIG"))
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.tstk")
		viper.AddConfigPath("/etc/tstk")
		viper.SetConfigName("tstk")
	}

	viper.SetEnvPrefix("tstk")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		infoLogger.Println("Using config file:", viper.ConfigFileUsed())
	}
}
