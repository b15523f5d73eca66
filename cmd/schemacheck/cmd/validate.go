package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/schemacheck/internal/config"
	"github.com/dbsmedya/schemacheck/internal/database"
)

var validateOffline bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and database connectivity",
	Long: `Validate resolves the configuration and checks it the same way check
would, without uploading anything.

Checks performed:
  - Required fields (project, database url)
  - Service endpoint, timeout and redirect limit
  - Token presence and the pass-on-no-token override
  - Database connectivity (skipped with --offline)

Example:
  schemacheck validate --project acme --database-url postgres://localhost/app`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateOffline, "offline", false,
		"Skip the database connectivity check")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting validation checks...")

	printConfigSummary(cfg)

	hasErrors := false

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(outputWriter, "❌ Configuration invalid: %v\n", err)
		hasErrors = true
	} else {
		fmt.Fprintln(outputWriter, "✅ Configuration valid")
	}

	switch {
	case cfg.HasToken():
		fmt.Fprintln(outputWriter, "✅ Token configured")
	case cfg.Overrides.PassOnNoToken:
		fmt.Fprintln(outputWriter, "⚠️  No token configured, checks will be skipped (pass-on-no-token)")
	default:
		fmt.Fprintln(outputWriter, "❌ No token configured, set --token or SCHEMACHECK_TOKEN")
		hasErrors = true
	}

	if validateOffline {
		fmt.Fprintln(outputWriter, "⚠️  Database connectivity not checked (--offline)")
	} else if cfg.DatabaseURL != "" {
		mgr := database.NewManager(cfg.DatabaseURL)
		if err := mgr.Connect(cmdContext(cmd)); err != nil {
			fmt.Fprintf(outputWriter, "❌ Database unreachable: %v\n", err)
			hasErrors = true
		} else {
			fmt.Fprintf(outputWriter, "✅ Connected to %s\n", mgr.Censored())
			if err := mgr.Close(); err != nil {
				log.Warnw("Failed to close database connection", "error", err)
			}
		}
	}

	if hasErrors {
		return fmt.Errorf("validation failed")
	}

	fmt.Fprintln(outputWriter, "=== Validation Complete ===")
	return nil
}

func printConfigSummary(cfg *config.Config) {
	fmt.Fprintf(outputWriter, "\n=== Configuration Validation ===\n")
	if cfgFile != "" {
		fmt.Fprintf(outputWriter, "Config file: %s\n", cfgFile)
	}
	fmt.Fprintf(outputWriter, "Project: %s\n", cfg.Project)
	fmt.Fprintf(outputWriter, "Database: %s\n", database.CensorDSN(cfg.DatabaseURL))
	fmt.Fprintf(outputWriter, "Endpoint: %s\n", cfg.Service.Endpoint)
	if cfg.Git.Branch != "" || cfg.Git.Hash != "" {
		fmt.Fprintf(outputWriter, "Git: %s %s\n", cfg.Git.Branch, cfg.Git.Hash)
	}
	fmt.Fprintf(outputWriter, "Overrides: pass-on-no-token=%t pass-on-timeout=%t pass-on-fail=%t\n\n",
		cfg.Overrides.PassOnNoToken, cfg.Overrides.PassOnTimeout, cfg.Overrides.PassOnFail)
}
