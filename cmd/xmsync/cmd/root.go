package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.1.0-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile  string
	envFile  string
	logLevel string
	threads  int
	noColor  bool
)

var rootCmd = &cobra.Command{
	Use:   "xmsync",
	Short: "xMatters batch synchronisation jobs",
	Long: `Batch jobs that keep an xMatters instance in step with external data.

Jobs:
  activate-devices  Activate every inactive device of one type
  import-users      Create people from a CSV export
  device-fields     Maintain the has-app/has-sms/has-voice custom fields
  team-regions      Store each person's dynamic team in a custom field
  responses         Report today's responses to flagged events

Every job lists records page by page with a bounded worker pool and keeps
going when a single page or record fails.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "xmsync.yaml",
		"Path to configuration file")

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "",
		"Load environment variables (e.g. credentials for ${VAR} references) from this file")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&threads, "threads", 0,
		"Override the worker count of every job")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored console output")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel string
	Threads  int
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel: logLevel,
		Threads:  threads,
	}
}
