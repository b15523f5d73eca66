// Package lock provides PostgreSQL session advisory locks so that two
// schemacheck processes never modify the same database at once.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrLockTimeout is returned when lock acquisition times out because
// another instance is holding the lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Common timeout values for lock acquisition.
const (
	// TimeoutImmediate makes a single attempt.
	TimeoutImmediate time.Duration = 0

	// TimeoutShort is suitable for fast-failing duplicate detection.
	TimeoutShort = time.Second

	// TimeoutMedium waits behind a concurrent run for a while.
	TimeoutMedium = 10 * time.Second
)

// DefaultPollInterval is the delay between acquisition attempts.
const DefaultPollInterval = 100 * time.Millisecond

const (
	tryLockQuery = "SELECT pg_try_advisory_lock(hashtext($1))"
	unlockQuery  = "SELECT pg_advisory_unlock(hashtext($1))"
)

// AdvisoryLock is a named session-level advisory lock. Session locks belong
// to one backend connection, so the lock pins a dedicated *sql.Conn from
// acquisition until release; work that must run under the lock uses it.
type AdvisoryLock struct {
	db           *sql.DB
	conn         *sql.Conn
	lockName     string
	pollInterval time.Duration
}

// NewAdvisoryLock creates a new advisory lock with the given name.
// The lock is not acquired until AcquireLock is called.
func NewAdvisoryLock(db *sql.DB, lockName string) *AdvisoryLock {
	return &AdvisoryLock{
		db:           db,
		lockName:     lockName,
		pollInterval: DefaultPollInterval,
	}
}

// AcquireLock polls pg_try_advisory_lock until it succeeds or timeout
// elapses. Returns false without error when another session holds the lock.
func (a *AdvisoryLock) AcquireLock(ctx context.Context, timeout time.Duration) (bool, error) {
	if a.conn != nil {
		return true, nil
	}

	conn, err := a.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reserve connection for lock %q: %w", a.lockName, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		var acquired bool
		if err := conn.QueryRowContext(ctx, tryLockQuery, a.lockName).Scan(&acquired); err != nil {
			_ = conn.Close()
			return false, fmt.Errorf("failed to execute pg_try_advisory_lock: %w", err)
		}
		if acquired {
			a.conn = conn
			return true, nil
		}
		if !time.Now().Before(deadline) {
			_ = conn.Close()
			return false, nil
		}

		select {
		case <-ctx.Done():
			_ = conn.Close()
			return false, ctx.Err()
		case <-time.After(a.pollInterval):
		}
	}
}

// ReleaseLock releases the lock and returns its connection to the pool.
// Returns false when the lock was not held.
func (a *AdvisoryLock) ReleaseLock(ctx context.Context) (bool, error) {
	if a.conn == nil {
		return false, nil
	}
	conn := a.conn
	a.conn = nil
	defer func() { _ = conn.Close() }()

	var released bool
	if err := conn.QueryRowContext(ctx, unlockQuery, a.lockName).Scan(&released); err != nil {
		return false, fmt.Errorf("failed to execute pg_advisory_unlock: %w", err)
	}
	return released, nil
}

// IsHeld returns true if this lock is currently held by this instance.
func (a *AdvisoryLock) IsHeld() bool {
	return a.conn != nil
}

// LockName returns the name of the advisory lock.
func (a *AdvisoryLock) LockName() string {
	return a.lockName
}

// Conn returns the connection holding the lock, or nil.
func (a *AdvisoryLock) Conn() *sql.Conn {
	return a.conn
}

// TryAcquire makes a single acquisition attempt.
func (a *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	return a.AcquireLock(ctx, TimeoutImmediate)
}

// AcquireOrFail acquires the lock within timeout and returns ErrLockTimeout
// if another instance is still holding it.
func (a *AdvisoryLock) AcquireOrFail(ctx context.Context, timeout time.Duration) error {
	acquired, err := a.AcquireLock(ctx, timeout)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, a.lockName)
	}
	return nil
}

// WithLock runs fn on the locked connection and releases the lock afterwards,
// also when fn panics.
func (a *AdvisoryLock) WithLock(ctx context.Context, timeout time.Duration, fn func(conn *sql.Conn) error) error {
	if err := a.AcquireOrFail(ctx, timeout); err != nil {
		return err
	}

	defer func() {
		// The caller's context may already be cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = a.ReleaseLock(releaseCtx)
	}()

	return fn(a.conn)
}

// GenerateJobLockName creates a consistent lock name for a schemacheck job.
// Example: GenerateJobLockName("load") -> "schemacheck:job:load"
func GenerateJobLockName(jobName string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, jobName)

	return fmt.Sprintf("schemacheck:job:%s", sanitized)
}

// NewJobLock creates an advisory lock named after a job.
func NewJobLock(db *sql.DB, jobName string) *AdvisoryLock {
	return NewAdvisoryLock(db, GenerateJobLockName(jobName))
}
