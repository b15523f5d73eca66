// Package config provides configuration structures and loading for schemacheck.
package config

import "time"

// DefaultEndpoint is the upload URL of the schema analysis service.
const DefaultEndpoint = "https://pgrita.com/api/upload"

// DefaultDatabaseURL points at the local default database.
const DefaultDatabaseURL = "postgres:///"

// Config represents the complete application configuration.
type Config struct {
	Token       string          `yaml:"token" mapstructure:"token"`
	Project     string          `yaml:"project" mapstructure:"project"`
	DatabaseURL string          `yaml:"database_url" mapstructure:"database_url"`
	Overrides   OverridesConfig `yaml:"overrides" mapstructure:"overrides"`
	Git         GitConfig       `yaml:"git" mapstructure:"git"`
	Service     ServiceConfig   `yaml:"service" mapstructure:"service"`
	OutputFile  string          `yaml:"output_file" mapstructure:"output_file"`
	Logging     LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// OverridesConfig holds the switches that turn selected failures into passes.
type OverridesConfig struct {
	PassOnNoToken bool `yaml:"pass_on_no_token" mapstructure:"pass_on_no_token"`
	PassOnTimeout bool `yaml:"pass_on_timeout" mapstructure:"pass_on_timeout"`
	PassOnFail    bool `yaml:"pass_on_fail" mapstructure:"pass_on_fail"`
}

// GitConfig describes the revision being checked. Both fields are optional.
type GitConfig struct {
	Branch string `yaml:"branch" mapstructure:"branch"`
	Hash   string `yaml:"hash" mapstructure:"hash"`
}

// ServiceConfig represents the remote analysis service settings.
type ServiceConfig struct {
	Endpoint     string        `yaml:"endpoint" mapstructure:"endpoint"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRedirects int           `yaml:"max_redirects" mapstructure:"max_redirects"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		DatabaseURL: DefaultDatabaseURL,
		Service: ServiceConfig{
			Endpoint:     DefaultEndpoint,
			Timeout:      30 * time.Second,
			MaxRedirects: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// HasToken reports whether an authentication token is configured.
func (c *Config) HasToken() bool {
	return c.Token != ""
}
