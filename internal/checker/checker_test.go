package checker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/schemacheck/internal/catalog"
	"github.com/dbsmedya/schemacheck/internal/config"
	"github.com/dbsmedya/schemacheck/internal/logger"
	"github.com/dbsmedya/schemacheck/internal/snapshot"
	"github.com/dbsmedya/schemacheck/internal/transport"
	"github.com/dbsmedya/schemacheck/internal/verifier"
)

const fixturePath = "../snapshot/testdata/query_output.json"

type fakeExtractor struct {
	calls int
	doc   *snapshot.Document
	err   error
}

func (f *fakeExtractor) Extract(ctx context.Context) (*snapshot.Document, error) {
	f.calls++
	return f.doc, f.err
}

type fakeSubmitter struct {
	calls    int
	last     transport.Submission
	response string
	err      error
}

func (f *fakeSubmitter) Submit(ctx context.Context, sub transport.Submission) (string, error) {
	f.calls++
	f.last = sub
	return f.response, f.err
}

func fixtureDocument(t *testing.T) *snapshot.Document {
	t.Helper()
	raw, err := os.ReadFile(fixturePath)
	require.NoError(t, err)
	plan, err := catalog.DefaultPlan()
	require.NoError(t, err)
	doc, err := snapshot.NewAssembler(plan, logger.NewNop()).Build(raw)
	require.NoError(t, err)
	return doc
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Token = "token"
	cfg.Project = "acme"
	cfg.Git = config.GitConfig{Branch: "main", Hash: "deadbeef"}
	cfg.OutputFile = filepath.Join(t.TempDir(), "output")
	return cfg
}

func newTestChecker(t *testing.T, cfg *config.Config, ext *fakeExtractor, sub *fakeSubmitter) *Checker {
	t.Helper()
	c, err := New(cfg, ext, sub, logger.NewNop())
	require.NoError(t, err)
	return c
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func TestNew_Validation(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := New(nil, &fakeExtractor{}, &fakeSubmitter{}, nil)
	assert.Error(t, err)
	_, err = New(cfg, nil, &fakeSubmitter{}, nil)
	assert.Error(t, err)
	_, err = New(cfg, &fakeExtractor{}, nil, nil)
	assert.Error(t, err)
}

func TestRun_Pass(t *testing.T) {
	cfg := testConfig(t)
	doc := fixtureDocument(t)
	ext := &fakeExtractor{doc: doc}
	sub := &fakeSubmitter{response: "PASS:all good"}

	result, err := newTestChecker(t, cfg, ext, sub).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, verifier.StatusPass, result.Outcome.Status)
	assert.True(t, result.Outcome.Passed)
	assert.Equal(t, 1, ext.calls)
	assert.Equal(t, 1, sub.calls)
	assert.Equal(t, "status=PASS\n", readOutput(t, cfg.OutputFile))

	assert.Equal(t, "acme", sub.last.Project)
	assert.Equal(t, "main", sub.last.GitBranch)
	assert.Equal(t, "deadbeef", sub.last.GitHash)

	// The payload is the gzip of the canonical document.
	plain, err := snapshot.Decompress(sub.last.Payload)
	require.NoError(t, err)
	want, err := doc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, want, plain)
	assert.Equal(t, snapshot.DigestBytes(want), result.Digest)
	assert.Equal(t, len(sub.last.Payload), result.PayloadBytes)
	assert.Equal(t, len(want), result.DocumentBytes)
}

func TestRun_FailureOutcomes(t *testing.T) {
	tests := []struct {
		response string
		status   string
		message  string
	}{
		{"FAIL:3 issues", "FAIL", verifier.MsgFail},
		{"ERROR:internal", "ERROR", verifier.MsgError},
		{"TIMEOUT:slow", "TIMEOUT", verifier.MsgTimeout},
		{"HUH:what", "HUH", "Result status not understood: 'HUH'"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			cfg := testConfig(t)
			ext := &fakeExtractor{doc: fixtureDocument(t)}
			sub := &fakeSubmitter{response: tt.response}

			result, err := newTestChecker(t, cfg, ext, sub).Run(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.message, err.Error())

			var outcomeErr *verifier.OutcomeError
			assert.True(t, errors.As(err, &outcomeErr))
			require.NotNil(t, result)
			assert.False(t, result.Outcome.Passed)
			assert.Equal(t, "status="+tt.status+"\n", readOutput(t, cfg.OutputFile))
		})
	}
}

func TestRun_FailOverridden(t *testing.T) {
	cfg := testConfig(t)
	cfg.Overrides.PassOnFail = true
	sub := &fakeSubmitter{response: "FAIL:3 issues"}

	result, err := newTestChecker(t, cfg, &fakeExtractor{doc: fixtureDocument(t)}, sub).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Outcome.Overridden)
	assert.Equal(t, "status=FAIL\n", readOutput(t, cfg.OutputFile))
}

func TestRun_PreflightMakesNoCalls(t *testing.T) {
	t.Run("no token fails", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Token = ""
		ext, sub := &fakeExtractor{}, &fakeSubmitter{}

		result, err := newTestChecker(t, cfg, ext, sub).Run(context.Background())
		assert.ErrorIs(t, err, verifier.ErrNoToken)
		assert.Nil(t, result)
		assert.Zero(t, ext.calls)
		assert.Zero(t, sub.calls)
		assert.Empty(t, readOutput(t, cfg.OutputFile))
	})

	t.Run("no token skipped", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Token = ""
		cfg.Project = ""
		cfg.Overrides.PassOnNoToken = true
		ext, sub := &fakeExtractor{}, &fakeSubmitter{}

		result, err := newTestChecker(t, cfg, ext, sub).Run(context.Background())
		require.NoError(t, err)
		assert.True(t, result.Outcome.Skipped)
		assert.Zero(t, ext.calls)
		assert.Zero(t, sub.calls)
		assert.Empty(t, readOutput(t, cfg.OutputFile))
	})

	t.Run("missing project", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Project = " "
		ext, sub := &fakeExtractor{}, &fakeSubmitter{}

		_, err := newTestChecker(t, cfg, ext, sub).Run(context.Background())
		var verrs config.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Contains(t, err.Error(), "no project was specified")
		assert.Zero(t, ext.calls)
		assert.Zero(t, sub.calls)
	})
}

func TestRun_ExtractionErrorStopsRun(t *testing.T) {
	cfg := testConfig(t)
	extErr := &catalog.ExtractionError{Op: catalog.OpQuery, Code: "42501", Err: errors.New("permission denied")}
	ext, sub := &fakeExtractor{err: extErr}, &fakeSubmitter{}

	_, err := newTestChecker(t, cfg, ext, sub).Run(context.Background())
	assert.Same(t, extErr, err)
	assert.Zero(t, sub.calls)
}

func TestRun_TransportFailures(t *testing.T) {
	timeout := fmt.Errorf("post: %w", context.DeadlineExceeded)

	t.Run("timeout without override", func(t *testing.T) {
		cfg := testConfig(t)
		sub := &fakeSubmitter{err: timeout}
		_, err := newTestChecker(t, cfg, &fakeExtractor{doc: fixtureDocument(t)}, sub).Run(context.Background())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Empty(t, readOutput(t, cfg.OutputFile))
	})

	t.Run("timeout with pass-on-timeout", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Overrides.PassOnTimeout = true
		sub := &fakeSubmitter{err: timeout}
		result, err := newTestChecker(t, cfg, &fakeExtractor{doc: fixtureDocument(t)}, sub).Run(context.Background())
		require.NoError(t, err)
		assert.True(t, result.Outcome.Passed)
		assert.True(t, result.Outcome.Overridden)
		assert.Empty(t, result.Outcome.Status)
	})

	t.Run("status error with pass-on-timeout", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Overrides.PassOnTimeout = true
		sub := &fakeSubmitter{err: &transport.StatusError{StatusCode: 503}}
		_, err := newTestChecker(t, cfg, &fakeExtractor{doc: fixtureDocument(t)}, sub).Run(context.Background())
		assert.EqualError(t, err, "request failed with status '503'")
	})
}

func TestRun_ProcessingErrors(t *testing.T) {
	t.Run("structured error", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Overrides = config.OverridesConfig{PassOnFail: true, PassOnTimeout: true}
		sub := &fakeSubmitter{response: `{"error":"Invalid token"}`}
		_, err := newTestChecker(t, cfg, &fakeExtractor{doc: fixtureDocument(t)}, sub).Run(context.Background())

		var svcErr *verifier.ServiceError
		require.True(t, errors.As(err, &svcErr))
		assert.Equal(t, "Invalid token", err.Error())
		assert.Empty(t, readOutput(t, cfg.OutputFile))
	})

	t.Run("unparseable", func(t *testing.T) {
		cfg := testConfig(t)
		sub := &fakeSubmitter{response: "no delimiter here"}
		_, err := newTestChecker(t, cfg, &fakeExtractor{doc: fixtureDocument(t)}, sub).Run(context.Background())
		assert.ErrorIs(t, err, verifier.ErrUnparseableResult)
	})
}

func TestRun_NoOutputFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputFile = ""
	sub := &fakeSubmitter{response: "PASS:ok"}

	_, err := newTestChecker(t, cfg, &fakeExtractor{doc: fixtureDocument(t)}, sub).Run(context.Background())
	assert.NoError(t, err)
}
