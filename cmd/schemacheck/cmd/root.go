package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/schemacheck/internal/config"
	"github.com/dbsmedya/schemacheck/internal/logger"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// cfgFile is the optional YAML configuration file.
var cfgFile string

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

var rootCmd = &cobra.Command{
	Use:   "schemacheck",
	Short: "PostgreSQL schema snapshot checker",
	Long: `schemacheck extracts a deterministic snapshot of a PostgreSQL database's
system catalog, submits it to a schema analysis service and turns the
service's verdict into a pass or fail exit status for CI pipelines.

Running schemacheck without a subcommand performs a check.

Configuration is resolved from flags, then environment variables, then the
optional config file, then defaults.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runCheck,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&cfgFile, "config", "c", "",
		"Path to an optional YAML configuration file")

	flags.String("token", "", "Analysis service token (SCHEMACHECK_TOKEN)")
	flags.String("project", "", "Project identifier (INPUT_PROJECT, SCHEMACHECK_PROJECT)")
	flags.String("database-url", "", "PostgreSQL connection string (DATABASE_URL)")
	flags.String("endpoint", "", "Analysis service upload URL")
	flags.String("output-file", "", "File that receives status=<TAG> (GITHUB_OUTPUT)")

	flags.Bool("pass-on-no-token", false, "Skip checks instead of failing when no token is set")
	flags.Bool("pass-on-timeout", false, "Pass when the service times out or cannot be reached")
	flags.Bool("pass-on-fail", false, "Pass even when the schema has check errors")

	flags.String("log-level", "", "Override log level (debug, info, warn, error)")
	flags.String("log-format", "", "Override log format (json, text)")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig resolves the configuration for cmd and builds its logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(GetConfigFile(), cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}
