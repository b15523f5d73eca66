package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/schemacheck/internal/catalog"
	"github.com/dbsmedya/schemacheck/internal/checker"
	"github.com/dbsmedya/schemacheck/internal/database"
	"github.com/dbsmedya/schemacheck/internal/logger"
	"github.com/dbsmedya/schemacheck/internal/snapshot"
)

var (
	snapshotOutput string
	snapshotGzip   bool
	snapshotFrom   string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write the catalog snapshot without uploading it",
	Long: `Snapshot extracts the catalog snapshot and writes the serialized document
to stdout or to --output. Nothing is sent to the analysis service and no
token is needed.

With --from, the snapshot is rebuilt from a saved query result or document
(plain or gzip) instead of a live database. Rebuilding an existing snapshot
yields the same bytes.

Examples:
  schemacheck snapshot --database-url postgres://localhost/app -o schema.json
  schemacheck snapshot --from schema.json.gz --gzip -o schema.json.gz`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "",
		"Write the document to this file instead of stdout")
	snapshotCmd.Flags().BoolVar(&snapshotGzip, "gzip", false,
		"Compress the document the same way check uploads it")
	snapshotCmd.Flags().StringVar(&snapshotFrom, "from", "",
		"Rebuild from a saved query result or document instead of connecting")

	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	plan, err := catalog.DefaultPlan()
	if err != nil {
		return err
	}

	var doc *snapshot.Document
	if snapshotFrom != "" {
		doc, err = rebuildSnapshot(snapshotFrom, plan, log)
	} else {
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("database url cannot be empty")
		}
		ctx, cancel := database.SetupSignalHandler(cmdContext(cmd), func(sig os.Signal) {
			log.Warnw("Received shutdown signal, cancelling extraction", "signal", sig.String())
		})
		defer cancel()
		doc, err = checker.NewDatabaseExtractor(cfg.DatabaseURL, plan, log).Extract(ctx)
	}
	if err != nil {
		return err
	}

	data, err := doc.Bytes()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	digest := snapshot.DigestBytes(data)

	if snapshotGzip {
		if data, err = snapshot.Compress(data); err != nil {
			return err
		}
	}

	if snapshotOutput == "" {
		if _, err := outputWriter.Write(data); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		if !snapshotGzip {
			fmt.Fprintln(outputWriter)
		}
	} else if err := os.WriteFile(snapshotOutput, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	log.Infow("Snapshot written",
		"digest", digest,
		"bytes", len(data),
		"gzip", snapshotGzip,
		"output", outputName(snapshotOutput))
	return nil
}

func rebuildSnapshot(path string, plan *catalog.Plan, log *logger.Logger) (*snapshot.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if snapshot.IsGzip(raw) {
		if raw, err = snapshot.Decompress(raw); err != nil {
			return nil, err
		}
	}
	return snapshot.NewAssembler(plan, log).Build(raw)
}

func outputName(path string) string {
	if path == "" {
		return "stdout"
	}
	return path
}
