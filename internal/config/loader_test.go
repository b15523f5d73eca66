package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// clearEnv blanks every variable the loader reads so the host environment
// (for example a CI runner) cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, names := range envBindings {
		for _, name := range names {
			t.Setenv(name, "")
		}
	}
}

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("token", "", "")
	fs.String("project", "", "")
	fs.String("database-url", "", "")
	fs.Bool("pass-on-no-token", false, "")
	fs.Bool("pass-on-timeout", false, "")
	fs.Bool("pass-on-fail", false, "")
	fs.String("endpoint", "", "")
	fs.String("output-file", "", "")
	fs.String("log-level", "", "")
	fs.String("log-format", "", "")
	if err := fs.Parse(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return fs
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.DatabaseURL != DefaultDatabaseURL {
		t.Errorf("expected default database url, got %s", cfg.DatabaseURL)
	}
	if cfg.Service.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %s", cfg.Service.Timeout)
	}
	if cfg.Token != "" || cfg.Project != "" {
		t.Errorf("expected empty token and project, got %q / %q", cfg.Token, cfg.Project)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCHEMACHECK_TOKEN", "tok-123")
	t.Setenv("SCHEMACHECK_PROJECT", "acme/app")
	t.Setenv("DATABASE_URL", "postgres://ci@db/app")
	t.Setenv("SCHEMACHECK_PASS_ON_TIMEOUT", "true")
	t.Setenv("GITHUB_REF", "refs/heads/feature/x")
	t.Setenv("GITHUB_SHA", "abc123")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Token != "tok-123" {
		t.Errorf("expected token from env, got %q", cfg.Token)
	}
	if cfg.Project != "acme/app" {
		t.Errorf("expected project from env, got %q", cfg.Project)
	}
	if cfg.DatabaseURL != "postgres://ci@db/app" {
		t.Errorf("expected database url from env, got %q", cfg.DatabaseURL)
	}
	if !cfg.Overrides.PassOnTimeout {
		t.Error("expected pass_on_timeout from env")
	}
	if cfg.Overrides.PassOnFail {
		t.Error("expected pass_on_fail to stay false")
	}
	if cfg.Git.Branch != "feature/x" {
		t.Errorf("expected branch 'feature/x', got %q", cfg.Git.Branch)
	}
	if cfg.Git.Hash != "abc123" {
		t.Errorf("expected hash 'abc123', got %q", cfg.Git.Hash)
	}
}

func TestLoadActionInputsWinOverPlainEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("INPUT_PROJECT", "from-input")
	t.Setenv("SCHEMACHECK_PROJECT", "from-env")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Project != "from-input" {
		t.Errorf("expected action input to win, got %q", cfg.Project)
	}
}

func TestLoadFlagsWinOverEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCHEMACHECK_PROJECT", "from-env")
	t.Setenv("DATABASE_URL", "postgres://env/db")

	fs := newFlagSet(t, "--project=from-flag", "--pass-on-fail")

	cfg, err := Load("", fs)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Project != "from-flag" {
		t.Errorf("expected flag value, got %q", cfg.Project)
	}
	if cfg.DatabaseURL != "postgres://env/db" {
		t.Errorf("unset flag must not shadow env, got %q", cfg.DatabaseURL)
	}
	if !cfg.Overrides.PassOnFail {
		t.Error("expected pass_on_fail from flag")
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_DB_PASSWORD", "s3cret")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "schemacheck.yaml")

	configContent := `
project: acme/app
database_url: postgres://app:${APP_DB_PASSWORD}@db/app
overrides:
  pass_on_no_token: true
service:
  endpoint: https://analysis.example.com/upload
  timeout: 5s
  max_redirects: 3
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath, nil)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Project != "acme/app" {
		t.Errorf("expected project from file, got %q", cfg.Project)
	}
	if cfg.DatabaseURL != "postgres://app:s3cret@db/app" {
		t.Errorf("expected expanded database url, got %q", cfg.DatabaseURL)
	}
	if !cfg.Overrides.PassOnNoToken {
		t.Error("expected pass_on_no_token from file")
	}
	if cfg.Service.Endpoint != "https://analysis.example.com/upload" {
		t.Errorf("unexpected endpoint %q", cfg.Service.Endpoint)
	}
	if cfg.Service.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %s", cfg.Service.Timeout)
	}
	if cfg.Service.MaxRedirects != 3 {
		t.Errorf("expected 3 redirects, got %d", cfg.Service.MaxRedirects)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestBranchFromRef(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"refs/heads/main", "main"},
		{"refs/heads/feature/login", "feature/login"},
		{"refs/tags/v1.0.0", "refs/tags/v1.0.0"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			if got := BranchFromRef(tt.ref); got != tt.want {
				t.Errorf("BranchFromRef(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("SCHEMACHECK_TEST_VAR", "value")

	tests := []struct {
		input string
		want  string
	}{
		{"${SCHEMACHECK_TEST_VAR}", "value"},
		{"$SCHEMACHECK_TEST_VAR/x", "value/x"},
		{"${SCHEMACHECK_UNSET_VAR}", "${SCHEMACHECK_UNSET_VAR}"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := expandEnvVar(tt.input); got != tt.want {
				t.Errorf("expandEnvVar(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
