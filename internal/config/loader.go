package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envBindings maps configuration keys to the environment variables that may
// carry them. Earlier names win. The INPUT_* names are the ones a CI runner
// sets for action inputs.
var envBindings = map[string][]string{
	"token":                      {"SCHEMACHECK_TOKEN"},
	"project":                    {"INPUT_PROJECT", "SCHEMACHECK_PROJECT"},
	"database_url":               {"INPUT_DATABASE-URL", "DATABASE_URL"},
	"overrides.pass_on_no_token": {"INPUT_PASS-ON-NO-TOKEN", "SCHEMACHECK_PASS_ON_NO_TOKEN"},
	"overrides.pass_on_timeout":  {"INPUT_PASS-ON-TIMEOUT", "SCHEMACHECK_PASS_ON_TIMEOUT"},
	"overrides.pass_on_fail":     {"INPUT_PASS-ON-FAIL", "SCHEMACHECK_PASS_ON_FAIL"},
	"git.branch":                 {"GITHUB_REF"},
	"git.hash":                   {"GITHUB_SHA"},
	"service.endpoint":           {"SCHEMACHECK_ENDPOINT"},
	"output_file":                {"GITHUB_OUTPUT"},
}

// flagBindings maps configuration keys to CLI flag names.
var flagBindings = map[string]string{
	"token":                      "token",
	"project":                    "project",
	"database_url":               "database-url",
	"overrides.pass_on_no_token": "pass-on-no-token",
	"overrides.pass_on_timeout":  "pass-on-timeout",
	"overrides.pass_on_fail":     "pass-on-fail",
	"service.endpoint":           "endpoint",
	"output_file":                "output-file",
	"logging.level":              "log-level",
	"logging.format":             "log-format",
}

// Load resolves the configuration. Values come from, in order of precedence:
// explicitly set flags, environment variables, the optional YAML file at
// configPath, and finally DefaultConfig.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for key, name := range flagBindings {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	substituteEnvVars(cfg)
	cfg.Git.Branch = BranchFromRef(cfg.Git.Branch)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("token", "")
	v.SetDefault("project", "")
	v.SetDefault("database_url", d.DatabaseURL)
	v.SetDefault("overrides.pass_on_no_token", false)
	v.SetDefault("overrides.pass_on_timeout", false)
	v.SetDefault("overrides.pass_on_fail", false)
	v.SetDefault("git.branch", "")
	v.SetDefault("git.hash", "")
	v.SetDefault("service.endpoint", d.Service.Endpoint)
	v.SetDefault("service.timeout", d.Service.Timeout)
	v.SetDefault("service.max_redirects", d.Service.MaxRedirects)
	v.SetDefault("output_file", "")
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
}

// BranchFromRef turns a git ref such as "refs/heads/main" into a branch name.
// Other refs are returned unchanged.
func BranchFromRef(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars expands ${VAR} references in values that are commonly
// templated in config files.
func substituteEnvVars(cfg *Config) {
	cfg.Project = expandEnvVar(cfg.Project)
	cfg.DatabaseURL = expandEnvVar(cfg.DatabaseURL)
	cfg.Service.Endpoint = expandEnvVar(cfg.Service.Endpoint)
	cfg.OutputFile = expandEnvVar(cfg.OutputFile)
	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}
