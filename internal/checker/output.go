package checker

import (
	"fmt"
	"os"
	"strings"
)

const outputDelimiter = "SCHEMACHECK_EOF"

// WriteOutput appends name=value to a CI output file. Multi-line values use
// the heredoc form.
func WriteOutput(path, name, value string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}

	var line string
	if strings.ContainsAny(value, "\r\n") {
		line = fmt.Sprintf("%s<<%s\n%s\n%s\n", name, outputDelimiter, value, outputDelimiter)
	} else {
		line = fmt.Sprintf("%s=%s\n", name, value)
	}

	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return f.Close()
}
