package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tablemateio/airlink/internal/render"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile            string
	logLevel           string
	logFormat          string
	maxDepth           int
	includeOriginalIDs bool
	noColor            bool
)

var rootCmd = &cobra.Command{
	Use:   "airlink",
	Short: "Airtable Linked Record Expander",
	Long: `A CLI tool for resolving linked record references in Airtable bases
into nested JSON documents.

Features:
  - Schema-driven link discovery (no per-field configuration)
  - Depth-bounded recursive expansion with cycle breaking
  - Per-record failure isolation (a dead link never kills the run)
  - Duplicate references kept as placeholder ids
  - json and jsonl output to stdout or file`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			render.DisableColor()
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "airlink.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Expansion overrides
	rootCmd.PersistentFlags().IntVar(&maxDepth, "max-depth", 0,
		"Override expansion depth (link hops, 1-5)")
	rootCmd.PersistentFlags().BoolVar(&includeOriginalIDs, "include-original-ids", false,
		"Keep the raw linked ids next to each expanded field")

	// Display
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored terminal output")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel           string
	LogFormat          string
	MaxDepth           int
	IncludeOriginalIDs bool
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:           logLevel,
		LogFormat:          logFormat,
		MaxDepth:           maxDepth,
		IncludeOriginalIDs: includeOriginalIDs,
	}
}
