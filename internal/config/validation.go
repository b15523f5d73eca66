package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
// The token is deliberately not checked here: whether a missing token is an
// error depends on the pass-on-no-token override and is decided before
// validation runs.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if strings.TrimSpace(c.Project) == "" {
		errors = append(errors, ValidationError{
			Field:   "project",
			Message: "no project was specified, please set --project or SCHEMACHECK_PROJECT",
		})
	}

	if c.DatabaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "database_url",
			Message: "database url cannot be empty",
		})
	}

	errors = append(errors, c.validateService()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateService() ValidationErrors {
	var errors ValidationErrors

	u, err := url.Parse(c.Service.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "service.endpoint",
			Message: "endpoint must be an absolute http or https URL",
		})
	}

	if c.Service.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "service.timeout",
			Message: "timeout must be positive",
		})
	}

	if c.Service.MaxRedirects < 0 {
		errors = append(errors, ValidationError{
			Field:   "service.max_redirects",
			Message: "max_redirects cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
