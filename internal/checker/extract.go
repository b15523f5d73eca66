package checker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dbsmedya/schemacheck/internal/catalog"
	"github.com/dbsmedya/schemacheck/internal/database"
	"github.com/dbsmedya/schemacheck/internal/logger"
	"github.com/dbsmedya/schemacheck/internal/snapshot"
)

// Extractor produces one snapshot document.
type Extractor interface {
	Extract(ctx context.Context) (*snapshot.Document, error)
}

// DatabaseExtractor reads the catalog of a live database. Each Extract call
// opens one connection and closes it before returning.
type DatabaseExtractor struct {
	dsn    string
	plan   *catalog.Plan
	logger *logger.Logger
}

// NewDatabaseExtractor creates an extractor for the given connection string.
func NewDatabaseExtractor(dsn string, plan *catalog.Plan, log *logger.Logger) *DatabaseExtractor {
	if log == nil {
		log = logger.NewNop()
	}
	return &DatabaseExtractor{dsn: dsn, plan: plan, logger: log}
}

// Extract connects, reads and assembles the snapshot.
func (e *DatabaseExtractor) Extract(ctx context.Context) (*snapshot.Document, error) {
	mgr := database.NewManager(e.dsn)
	e.logger.Infow("Running database checks", "database", mgr.Censored())

	if err := mgr.Connect(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			e.logger.Warnw("Failed to close database connection", "error", err)
		}
	}()

	return e.ExtractFrom(ctx, mgr.DB)
}

// ExtractFrom reads and assembles the snapshot using an open handle.
func (e *DatabaseExtractor) ExtractFrom(ctx context.Context, db *sql.DB) (*snapshot.Document, error) {
	raw, err := catalog.NewReader(db, e.plan, e.logger).Read(ctx)
	if err != nil {
		var extErr *catalog.ExtractionError
		if errors.As(err, &extErr) && extErr.IsPermissionDenied() {
			return nil, fmt.Errorf("the database role is not allowed to read the system catalogs: %w", err)
		}
		return nil, err
	}

	doc, err := snapshot.NewAssembler(e.plan, e.logger).Build(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble snapshot: %w", err)
	}
	return doc, nil
}
