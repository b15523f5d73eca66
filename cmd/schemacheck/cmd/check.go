package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/schemacheck/internal/catalog"
	"github.com/dbsmedya/schemacheck/internal/checker"
	"github.com/dbsmedya/schemacheck/internal/config"
	"github.com/dbsmedya/schemacheck/internal/database"
	"github.com/dbsmedya/schemacheck/internal/logger"
	"github.com/dbsmedya/schemacheck/internal/transport"
	"github.com/dbsmedya/schemacheck/internal/verifier"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Extract the catalog snapshot and submit it for checking",
	Long: `Check runs a full schema check:
  1. Verify an authentication token is configured (or skip with --pass-on-no-token)
  2. Read the system catalog inside a read-only transaction
  3. Assemble, serialize and gzip the snapshot document
  4. Upload it to the analysis service
  5. Interpret the service's verdict and apply the pass-on overrides

The parsed status tag is appended to --output-file as status=<TAG>.

Example:
  SCHEMACHECK_TOKEN=... schemacheck check --project acme --database-url postgres://localhost/app`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	c, err := newChecker(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := database.SetupSignalHandler(cmdContext(cmd), func(sig os.Signal) {
		log.Warnw("Received shutdown signal, cancelling check", "signal", sig.String())
	})
	defer cancel()

	result, err := c.Run(ctx)
	if result != nil {
		printOutcome(result)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("check cancelled")
		}
		return err
	}
	return nil
}

func newChecker(cfg *config.Config, log *logger.Logger) (*checker.Checker, error) {
	plan, err := catalog.DefaultPlan()
	if err != nil {
		return nil, err
	}

	extractor := checker.NewDatabaseExtractor(cfg.DatabaseURL, plan, log)
	client := transport.NewClient(transport.Options{
		Endpoint:     cfg.Service.Endpoint,
		Token:        cfg.Token,
		Timeout:      cfg.Service.Timeout,
		MaxRedirects: cfg.Service.MaxRedirects,
	}, log)

	return checker.New(cfg, extractor, client, log)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printOutcome(result *checker.Result) {
	out := result.Outcome

	var label string
	switch {
	case out.Skipped:
		label = color.Yellow.Sprint("SKIPPED")
	case out.Passed && out.Overridden:
		label = color.Yellow.Sprint("PASSED (overridden)")
	case out.Passed:
		label = color.Green.Sprint("PASSED")
	default:
		label = color.Red.Sprint("FAILED")
	}

	fmt.Fprintf(outputWriter, "Result: %s\n", label)
	fmt.Fprintf(outputWriter, "Status: %s\n", outcomeStatus(out))
	if out.Message != "" {
		fmt.Fprintf(outputWriter, "Message: %s\n", out.Message)
	}
	if result.Digest != "" {
		fmt.Fprintf(outputWriter, "Snapshot: sha256:%s (%d bytes, %d compressed)\n",
			result.Digest, result.DocumentBytes, result.PayloadBytes)
	}
	fmt.Fprintf(outputWriter, "Duration: %s\n", result.Duration)
}

// outcomeStatus returns the tag printed for a verifier outcome.
func outcomeStatus(out verifier.Outcome) string {
	if out.Status == "" {
		return "-"
	}
	return string(out.Status)
}
