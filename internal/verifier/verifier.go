// Package verifier interprets the analysis service's response into a run
// outcome, applying the configured pass-on overrides.
package verifier

import (
	"errors"
	"fmt"

	"github.com/dbsmedya/schemacheck/internal/config"
	"github.com/dbsmedya/schemacheck/internal/logger"
	"github.com/dbsmedya/schemacheck/internal/transport"
)

// Status is the tag the service puts before the first ':' of its response.
type Status string

const (
	// StatusPass means every check passed
	StatusPass Status = "PASS"
	// StatusFail means the schema has check errors
	StatusFail Status = "FAIL"
	// StatusError means the service could not run the checks
	StatusError Status = "ERROR"
	// StatusTimeout means the service gave up waiting for results
	StatusTimeout Status = "TIMEOUT"
)

// Known reports whether s is one of the four recognized tags.
func (s Status) Known() bool {
	switch s {
	case StatusPass, StatusFail, StatusError, StatusTimeout:
		return true
	}
	return false
}

// Failure messages.
const (
	MsgTimeout  = "A timeout occurred waiting for results from the analysis service."
	MsgError    = "An error occurred when trying to run checks against your database."
	MsgFail     = "Your database schema has some check errors."
	MsgNoToken  = "No authentication token was set, so schema checks cannot be performed."
	msgUnknown  = "Result status not understood: '%s'"
	msgSkipped  = "No authentication token was set and pass-on-no-token is set; skipping checks."
	msgFailPass = "Database schema has check errors, but pass-on-fail is set; passing."
	msgTimePass = "Timed out, but pass-on-timeout is set; passing."
	msgNetPass  = "Failed to get results from the analysis service, but pass-on-timeout is set; passing."
)

var (
	// ErrUnparseableResult is returned when the response has no status tag.
	ErrUnparseableResult = errors.New("could not process result from server")
	// ErrNoToken is returned by Preflight when no token is configured and
	// pass-on-no-token is off.
	ErrNoToken = errors.New(MsgNoToken)
)

// ServiceError carries the message of a structured error response.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Outcome is the interpreted result of a run.
type Outcome struct {
	Status     Status // empty when no response was parsed
	Passed     bool
	Overridden bool // a failure was turned into a pass by an override
	Skipped    bool // checks never ran
	Message    string
}

// Err returns nil for a passing outcome and an *OutcomeError otherwise.
func (o Outcome) Err() error {
	if o.Passed {
		return nil
	}
	return &OutcomeError{Status: o.Status, Message: o.Message}
}

// OutcomeError is a business-level failure such as FAIL or ERROR.
type OutcomeError struct {
	Status  Status
	Message string
}

func (e *OutcomeError) Error() string {
	return e.Message
}

// Interpreter applies the override policy.
type Interpreter struct {
	overrides config.OverridesConfig
	logger    *logger.Logger
}

// NewInterpreter creates an interpreter for the given overrides.
func NewInterpreter(overrides config.OverridesConfig, log *logger.Logger) *Interpreter {
	if log == nil {
		log = logger.NewNop()
	}
	return &Interpreter{overrides: overrides, logger: log}
}

// Preflight decides whether a run may proceed. It returns (nil, nil) when a
// token is present, a skipped outcome when pass-on-no-token is set, and
// ErrNoToken otherwise.
func (i *Interpreter) Preflight(hasToken bool) (*Outcome, error) {
	if hasToken {
		return nil, nil
	}
	if !i.overrides.PassOnNoToken {
		return nil, ErrNoToken
	}
	i.logger.Warn(msgSkipped)
	return &Outcome{Passed: true, Skipped: true, Overridden: true, Message: msgSkipped}, nil
}

// Interpret turns a parsed response into an outcome. Structured errors and
// unparseable responses are returned as errors and ignore every override.
func (i *Interpreter) Interpret(p Parsed) (Outcome, error) {
	switch r := p.(type) {
	case ParsedError:
		i.logger.Errorw("Analysis service returned an error", "body", r.Raw)
		return Outcome{}, &ServiceError{Message: r.Message}
	case Unparseable:
		i.logger.Errorw("Analysis service response has no status", "body", r.Raw)
		return Outcome{}, ErrUnparseableResult
	case ParsedOK:
		if !r.Status.Known() {
			i.logger.Warnw("Analysis service returned an unrecognized status", "status", string(r.Status), "body", r.Raw)
		} else {
			i.logger.Infow("Analysis service responded", "status", string(r.Status), "message", r.Message)
		}
		return i.decide(r.Status), nil
	default:
		return Outcome{}, fmt.Errorf("unexpected parse result %T", p)
	}
}

func (i *Interpreter) decide(status Status) Outcome {
	out := Outcome{Status: status}

	switch status {
	case StatusPass:
		out.Passed = true
	case StatusTimeout:
		if i.overrides.PassOnTimeout {
			i.logger.Warn(msgTimePass)
			out.Passed, out.Overridden, out.Message = true, true, msgTimePass
		} else {
			out.Message = MsgTimeout
		}
	case StatusError:
		out.Message = MsgError
	case StatusFail:
		if i.overrides.PassOnFail {
			i.logger.Warn(msgFailPass)
			out.Passed, out.Overridden, out.Message = true, true, msgFailPass
		} else {
			out.Message = MsgFail
		}
	default:
		out.Message = fmt.Sprintf(msgUnknown, status)
	}
	return out
}

// TransportFailure handles a failed submission. With pass-on-timeout set, a
// connectivity or timeout failure becomes a passing outcome; anything else
// is returned unchanged.
func (i *Interpreter) TransportFailure(err error) (Outcome, error) {
	if i.overrides.PassOnTimeout && transport.IsConnectivityError(err) {
		i.logger.Warnw(msgNetPass, "error", err)
		return Outcome{Passed: true, Overridden: true, Message: msgNetPass}, nil
	}
	return Outcome{}, err
}
