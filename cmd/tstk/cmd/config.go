// Copyright © 2018 One Concern

package cmd

import (
	"github.com/oneconcern/timestream/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// configCmd represents the config related commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Commands to manage the tstk config",
	Long: `Commands to manage the tstk config.

Settings are read from a tstk.yaml file (in ., $HOME/.tstk or /etc/tstk, or as set by TSTK_CONFIG),
then from TSTK_* environment variables, then from command line flags.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective config",
	Run: func(cmd *cobra.Command, args []string) {
		if err := bindFlags(cmd); err != nil {
			wrapFatalln("bind flags", err)
			return
		}
		cfg := config.Default()
		if err := viper.Unmarshal(cfg); err != nil {
			wrapFatalln("read config", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			infoLogger.Println("warning: invalid config:", err)
		}
		o, err := yaml.Marshal(cfg)
		if err != nil {
			wrapFatalln("serialize config to yaml", err)
			return
		}
		_, _ = cmd.OutOrStdout().Write(o)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
