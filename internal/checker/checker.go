// Package checker runs one schema check: extract the catalog snapshot,
// submit it and interpret the response.
package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/dbsmedya/schemacheck/internal/config"
	"github.com/dbsmedya/schemacheck/internal/logger"
	"github.com/dbsmedya/schemacheck/internal/snapshot"
	"github.com/dbsmedya/schemacheck/internal/transport"
	"github.com/dbsmedya/schemacheck/internal/verifier"
)

// OutputName is the pipeline output that receives the status tag.
const OutputName = "status"

// Submitter uploads a compressed snapshot and returns the response body.
type Submitter interface {
	Submit(ctx context.Context, sub transport.Submission) (string, error)
}

// Result contains the outcome and statistics of a run.
type Result struct {
	Outcome       verifier.Outcome
	Digest        string
	DocumentBytes int
	PayloadBytes  int
	StartedAt     time.Time
	CompletedAt   time.Time
	Duration      time.Duration
}

// Checker coordinates a single run.
type Checker struct {
	config      *config.Config
	extractor   Extractor
	submitter   Submitter
	interpreter *verifier.Interpreter
	logger      *logger.Logger
}

// New creates a checker. The extractor and submitter are only used after the
// token pre-flight and configuration validation pass.
func New(cfg *config.Config, extractor Extractor, submitter Submitter, log *logger.Logger) (*Checker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor is nil")
	}
	if submitter == nil {
		return nil, fmt.Errorf("submitter is nil")
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Checker{
		config:      cfg,
		extractor:   extractor,
		submitter:   submitter,
		interpreter: verifier.NewInterpreter(cfg.Overrides, log),
		logger:      log,
	}, nil
}

// Run performs the check. The returned error is nil exactly when the run
// passes, including passes granted by an override. The result is non-nil
// whenever a response was interpreted or the run was skipped.
func (c *Checker) Run(ctx context.Context) (*Result, error) {
	result := &Result{StartedAt: time.Now()}
	defer func() {
		result.CompletedAt = time.Now()
		result.Duration = result.CompletedAt.Sub(result.StartedAt)
	}()

	skipped, err := c.interpreter.Preflight(c.config.HasToken())
	if err != nil {
		return nil, err
	}
	if skipped != nil {
		result.Outcome = *skipped
		return result, nil
	}

	if err := c.config.Validate(); err != nil {
		return nil, err
	}

	log := c.logger.WithProject(c.config.Project)

	doc, err := c.extractor.Extract(ctx)
	if err != nil {
		return nil, err
	}

	data, err := doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	payload, err := snapshot.Compress(data)
	if err != nil {
		return nil, err
	}
	result.Digest = snapshot.DigestBytes(data)
	result.DocumentBytes = len(data)
	result.PayloadBytes = len(payload)

	log.WithFields(map[string]interface{}{
		"digest":           result.Digest,
		"bytes":            result.DocumentBytes,
		"compressed_bytes": result.PayloadBytes,
	}).Info("Snapshot extracted")

	text, err := c.submitter.Submit(ctx, transport.Submission{
		Project:   c.config.Project,
		GitBranch: c.config.Git.Branch,
		GitHash:   c.config.Git.Hash,
		Payload:   payload,
	})
	if err != nil {
		outcome, err := c.interpreter.TransportFailure(err)
		if err != nil {
			return nil, err
		}
		result.Outcome = outcome
		return result, nil
	}

	outcome, err := c.interpreter.Interpret(verifier.ParseResponse(text))
	if err != nil {
		return nil, err
	}
	result.Outcome = outcome

	if c.config.OutputFile != "" {
		if err := WriteOutput(c.config.OutputFile, OutputName, string(outcome.Status)); err != nil {
			return result, err
		}
	}

	return result, outcome.Err()
}
