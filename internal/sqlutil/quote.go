// Package sqlutil provides PostgreSQL quoting helpers for the generated
// catalog query.
package sqlutil

import (
	"regexp"
	"strings"

	"github.com/lib/pq"
)

// QuoteIdentifier quotes a PostgreSQL identifier with double quotes,
// doubling any embedded double quote.
// Example: "sql_viewdef" -> "\"sql_viewdef\""
func QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// QuoteLiteral quotes a string constant with single quotes, doubling any
// embedded single quote. Backslashes are kept as is, which is correct under
// standard_conforming_strings (the default since PostgreSQL 9.1) and lets
// LIKE patterns such as 'pg\_%' pass through unchanged.
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// validIdentifierRegex matches names that PostgreSQL accepts unquoted and
// folds to themselves: lower-case letters, digits and underscores, not
// starting with a digit.
var validIdentifierRegex = regexp.MustCompile("^[a-z_][a-z0-9_]*$")

// IsValidIdentifier checks if a name can be written unquoted.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe returns the bare name after validating it.
// Returns an error if the identifier would need quoting.
func QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return name, nil
}

// CatalogRelation returns the regclass literal for a pg_catalog relation,
// e.g. 'pg_catalog.pg_class'::regclass.
func CatalogRelation(relname string) string {
	return QuoteLiteral("pg_catalog."+relname) + "::regclass"
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must be lower-case letters, digits and underscores)"
}
