package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Persistent flags available to all subcommands
	logLevel   string
	logFormat  string
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "gqlprobe",
	Short: "gqlprobe maps and probes GraphQL endpoints",
	Long: `gqlprobe introspects a GraphQL endpoint, synthesizes a plausible query or
mutation for every operation it exposes, sends them under bounded concurrency
and reports which ones work, which fail and which return personal data.

Configuration can be provided via flags, GQLPROBE_* environment variables, or
a gqlprobe.yaml file in the working directory.`,
	SilenceUsage:  true,
	SilenceErrors: true, // Main prints errors
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Write machine-readable JSON to stdout")
}

// Main runs the command line and returns the process exit code.
func Main() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
