package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/schemacheck/internal/database"
	"github.com/dbsmedya/schemacheck/internal/lock"
	"github.com/dbsmedya/schemacheck/internal/logger"
)

var loadCmd = &cobra.Command{
	Use:   "load <schema.sql>",
	Short: "Apply a SQL schema file to the target database",
	Long: `Load executes a SQL script against --database-url, typically to create the
schema of a fresh CI database before running check.

Example:
  schemacheck load db/schema.sql --database-url postgres://localhost/app_ci`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	script, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	ctx, cancel := database.SetupSignalHandler(cmdContext(cmd), func(sig os.Signal) {
		log.Warnw("Received shutdown signal, cancelling load", "signal", sig.String())
	})
	defer cancel()

	mgr := database.NewManager(cfg.DatabaseURL)
	if err := mgr.Connect(ctx); err != nil {
		return err
	}

	err = loadSchema(ctx, mgr, args[0], string(script), log)
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("load cancelled")
	}
	return err
}

// loadSchema applies script under the load lock and closes mgr.
func loadSchema(ctx context.Context, mgr *database.Manager, path, script string, log *logger.Logger) error {
	defer func() {
		if err := mgr.Close(); err != nil {
			log.Warnw("Failed to close database connection", "error", err)
		}
	}()

	log.Infow("Loading schema", "file", path, "database", mgr.Censored())

	// Serialize concurrent loads into the same database.
	jobLock := lock.NewJobLock(mgr.DB, "load")
	err := jobLock.WithLock(ctx, lock.TimeoutMedium, func(conn *sql.Conn) error {
		return database.ApplySchema(ctx, conn, script)
	})
	if errors.Is(err, lock.ErrLockTimeout) {
		return fmt.Errorf("another schemacheck load is running against %s", mgr.Censored())
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(outputWriter, "Loaded %s into %s\n", path, mgr.Censored())
	return nil
}
