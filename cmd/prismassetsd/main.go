// Command prismassetsd hosts the Command/Event Gateway: a long-running
// "serve" mode for UI clients, plus "scan"/"export" one-shot subcommands for
// scripting against an instance without starting the HTTP surface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prismassets/core/log"
)

var rootConfiguration struct {
	configPath string
	verbose    bool
}

var rootCommand = &cobra.Command{
	Use:   "prismassetsd",
	Short: "Asset index/scan/export engine for modded Minecraft instances",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	flags := rootCommand.PersistentFlags()
	flags.StringVar(&rootConfiguration.configPath, "config", "", "Path to a YAML config file")
	flags.BoolVarP(&rootConfiguration.verbose, "verbose", "v", false, "Enable debug logging")

	cobra.EnableCommandSorting = false
	rootCommand.AddCommand(serveCommand, scanCommand, exportCommand)
}

// mustLoadConfig loads the YAML config (if any) and applies it under the
// command's flags: an explicit --verbose always wins, otherwise the config
// file's logVerbose setting decides.
func mustLoadConfig(cmd *cobra.Command) config {
	cfg, err := loadConfig(rootConfiguration.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "prismassetsd: loading config: %v\n", err)
		os.Exit(1)
	}

	verbose := cfg.LogVerbose
	if cmd.Flags().Changed("verbose") {
		verbose = rootConfiguration.verbose
	}
	if verbose {
		log.SetLogger(&log.DefaultLogger{Verbose: true})
	}
	return cfg
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
