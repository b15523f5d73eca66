package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/dbsmedya/schemacheck/internal/logger"
)

// Extraction phases reported in ExtractionError.
const (
	OpBegin = "begin"
	OpQuery = "query"
)

// ExtractionError reports a failed catalog read. No partial document is
// ever produced alongside it.
type ExtractionError struct {
	Op   string
	Code string // SQLSTATE when the server reported one
	Err  error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("catalog extraction failed (%s, SQLSTATE %s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("catalog extraction failed (%s): %v", e.Op, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsPermissionDenied reports whether the server refused access to a catalog.
func (e *ExtractionError) IsPermissionDenied() bool {
	return e.Code == "42501"
}

func newExtractionError(op string, err error) *ExtractionError {
	extErr := &ExtractionError{Op: op, Err: err}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		extErr.Code = string(pqErr.Code)
	}
	return extErr
}

// Reader runs the extraction query against one database.
type Reader struct {
	db     *sql.DB
	query  string
	logger *logger.Logger
}

// NewReader creates a reader for the given plan.
func NewReader(db *sql.DB, plan *Plan, log *logger.Logger) *Reader {
	if log == nil {
		log = logger.NewNop()
	}
	return &Reader{
		db:     db,
		query:  plan.Query(),
		logger: log,
	}
}

// Query returns the SQL the reader runs.
func (r *Reader) Query() string {
	return r.query
}

// Read runs the query inside a read-only repeatable-read transaction and
// returns the raw JSON document. The transaction is always rolled back.
func (r *Reader) Read(ctx context.Context) ([]byte, error) {
	start := time.Now()

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return nil, newExtractionError(OpBegin, err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.logger.Warnw("Failed to roll back catalog transaction", "error", rbErr)
		}
	}()

	var raw []byte
	if err := tx.QueryRowContext(ctx, r.query).Scan(&raw); err != nil {
		return nil, newExtractionError(OpQuery, err)
	}
	if len(raw) == 0 {
		return nil, newExtractionError(OpQuery, errors.New("query returned an empty document"))
	}

	r.logger.Debugw("Catalog query completed",
		"bytes", len(raw),
		"duration", time.Since(start))

	return raw, nil
}
