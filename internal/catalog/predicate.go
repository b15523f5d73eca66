package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dbsmedya/schemacheck/internal/sqlutil"
	"github.com/dbsmedya/schemacheck/internal/types"
)

// Predicate is a membership rule for one category. The same rule renders to
// the WHERE clause of the generated query and is evaluated in Go against the
// decoded rows, so both sides select the same objects.
type Predicate interface {
	// SQL renders the condition for the category's CTE.
	SQL() string
	// Match reports whether a row is included, given the sets of the stages
	// computed so far.
	Match(row types.Row, scope *Scope) bool
	// Stages lists the stages whose included sets the rule reads.
	Stages() []string
}

// Operators accepted by Compare.
const (
	OpEqual       = "="
	OpNotEqual    = "<>"
	OpGreaterThan = ">"
)

// Compare tests a column against a constant.
type Compare struct {
	Column string
	Op     string
	Value  interface{}
}

// SQL renders "column op constant".
func (c Compare) SQL() string {
	return fmt.Sprintf("%s %s %s", c.Column, c.Op, literal(c.Value))
}

// Match follows SQL semantics: a null column never matches.
func (c Compare) Match(row types.Row, _ *Scope) bool {
	v := row[c.Column]
	if v == nil {
		return false
	}
	cmp := types.Compare(v, c.Value)
	switch c.Op {
	case OpEqual:
		return cmp == 0
	case OpNotEqual:
		return cmp != 0
	case OpGreaterThan:
		return cmp > 0
	default:
		return false
	}
}

// Stages returns nil; constants read no stage.
func (c Compare) Stages() []string { return nil }

// In tests a column against a list of constants.
type In struct {
	Column string
	Values []interface{}
}

// SQL renders "column in (a, b)".
func (p In) SQL() string {
	lits := make([]string, len(p.Values))
	for i, v := range p.Values {
		lits[i] = literal(v)
	}
	return fmt.Sprintf("%s in (%s)", p.Column, strings.Join(lits, ", "))
}

// Match reports whether the column equals one of the values.
func (p In) Match(row types.Row, _ *Scope) bool {
	v := row[p.Column]
	if v == nil {
		return false
	}
	for _, want := range p.Values {
		if types.Compare(v, want) == 0 {
			return true
		}
	}
	return false
}

// Stages returns nil.
func (p In) Stages() []string { return nil }

// NotLike tests a text column against a LIKE pattern with backslash escapes.
type NotLike struct {
	Column  string
	Pattern string
}

// SQL renders "column not like 'pattern'".
func (p NotLike) SQL() string {
	return fmt.Sprintf("%s not like %s", p.Column, sqlutil.QuoteLiteral(p.Pattern))
}

// Match reports whether the column is text that does not match the pattern.
func (p NotLike) Match(row types.Row, _ *Scope) bool {
	s, ok := row[p.Column].(string)
	if !ok {
		return false
	}
	return !likeMatch(s, p.Pattern)
}

// Stages returns nil.
func (p NotLike) Stages() []string { return nil }

// MemberOf requires a column to reference an included row of another stage.
type MemberOf struct {
	Column string
	Stage  string
	Key    string // column of the referenced stage, "_id" when empty
}

func (p MemberOf) key() string {
	if p.Key == "" {
		return IdentityColumn
	}
	return p.Key
}

// SQL renders "column in (select stage.key from stage)".
func (p MemberOf) SQL() string {
	return fmt.Sprintf("%s in (select %s.%s from %s)", p.Column, p.Stage, p.key(), p.Stage)
}

// Match looks the column value up in the stage's included set.
func (p MemberOf) Match(row types.Row, scope *Scope) bool {
	return scope.Set(p.Stage, p.key()).Has(row[p.Column])
}

// Stages returns the referenced stage.
func (p MemberOf) Stages() []string { return []string{p.Stage} }

// TupleMemberOf requires a composite reference, such as (adrelid, adnum),
// to match an included row of another stage.
type TupleMemberOf struct {
	Columns []string
	Stage   string
	Keys    []string
}

// SQL renders "(a, b) in (select x, y from stage)".
func (p TupleMemberOf) SQL() string {
	return fmt.Sprintf("(%s) in (select %s from %s)",
		strings.Join(p.Columns, ", "), strings.Join(p.Keys, ", "), p.Stage)
}

// Match looks the composite value up in the stage's included tuples.
func (p TupleMemberOf) Match(row types.Row, scope *Scope) bool {
	values := make([]interface{}, len(p.Columns))
	for i, c := range p.Columns {
		values[i] = row[c]
	}
	return scope.Set(p.Stage, p.Keys...).HasTuple(values...)
}

// Stages returns the referenced stage.
func (p TupleMemberOf) Stages() []string { return []string{p.Stage} }

// NamespaceNamed requires a namespace oid column to point at one fixed
// namespace, looked up by name among the included namespaces.
type NamespaceNamed struct {
	Column    string
	Namespace string
}

// SQL renders "column = 'name'::regnamespace".
func (p NamespaceNamed) SQL() string {
	return fmt.Sprintf("%s = %s::regnamespace", p.Column, sqlutil.QuoteLiteral(p.Namespace))
}

// Match resolves the namespace oid from the namespaces stage.
func (p NamespaceNamed) Match(row types.Row, scope *Scope) bool {
	oid, ok := scope.NamespaceOID(p.Namespace)
	if !ok || row[p.Column] == nil {
		return false
	}
	return types.Compare(row[p.Column], oid) == 0
}

// Stages returns the namespaces stage.
func (p NamespaceNamed) Stages() []string { return []string{StageNamespaces} }

// ServerSide is a condition only the database can evaluate, such as
// current_database(). Rows returned by the query are taken as matching.
type ServerSide struct {
	Condition string
}

// SQL returns the condition verbatim.
func (p ServerSide) SQL() string { return p.Condition }

// Match always returns true.
func (p ServerSide) Match(types.Row, *Scope) bool { return true }

// Stages returns nil.
func (p ServerSide) Stages() []string { return nil }

// AllOf is the conjunction of its terms.
type AllOf []Predicate

// SQL joins the terms with "and".
func (p AllOf) SQL() string {
	return join(p, " and ")
}

// Match reports whether every term matches.
func (p AllOf) Match(row types.Row, scope *Scope) bool {
	for _, term := range p {
		if !term.Match(row, scope) {
			return false
		}
	}
	return true
}

// Stages returns the stages of every term.
func (p AllOf) Stages() []string { return stagesOf(p) }

// AnyOf is the disjunction of its terms.
type AnyOf []Predicate

// SQL joins the parenthesised terms with "or".
func (p AnyOf) SQL() string {
	return join(p, " or ")
}

// Match reports whether at least one term matches.
func (p AnyOf) Match(row types.Row, scope *Scope) bool {
	for _, term := range p {
		if term.Match(row, scope) {
			return true
		}
	}
	return false
}

// Stages returns the stages of every term.
func (p AnyOf) Stages() []string { return stagesOf(p) }

// Tag ties a pg_catalog relation name to the stage holding its objects.
type Tag struct {
	Relation string
	Stage    string
	// SubObjects restricts the match to sub-object rows (objsubid > 0),
	// which is how columns of an included class are addressed.
	SubObjects bool
}

// Tagged filters rows of cross-cutting catalogs (pg_depend,
// pg_description) that address objects by (catalog oid, object oid). A row
// is included when its catalog is one of the tags and the object is in that
// tag's included set.
type Tagged struct {
	ClassColumn  string
	ObjectColumn string
	SubColumn    string
	Tags         []Tag
}

// SQL renders one parenthesised alternative per tag.
func (p Tagged) SQL() string {
	alts := make([]string, len(p.Tags))
	for i, tag := range p.Tags {
		s := fmt.Sprintf("(%s = %s and %s)",
			p.ClassColumn, sqlutil.CatalogRelation(tag.Relation),
			MemberOf{Column: p.ObjectColumn, Stage: tag.Stage}.SQL())
		if tag.SubObjects {
			s = s[:len(s)-1] + fmt.Sprintf(" and %s > 0)", p.SubColumn)
		}
		alts[i] = s
	}
	return "(\n      " + strings.Join(alts, "\n      or ") + "\n    )"
}

// Match resolves the catalog name through catalog_by_oid.
func (p Tagged) Match(row types.Row, scope *Scope) bool {
	relname, ok := scope.CatalogName(row[p.ClassColumn])
	if !ok {
		return false
	}
	for _, tag := range p.Tags {
		if tag.Relation != relname {
			continue
		}
		if !scope.Set(tag.Stage, IdentityColumn).Has(row[p.ObjectColumn]) {
			return false
		}
		if tag.SubObjects {
			sub := row[p.SubColumn]
			return sub != nil && types.Compare(sub, json.Number("0")) > 0
		}
		return true
	}
	return false
}

// Stages returns the stage of every tag.
func (p Tagged) Stages() []string {
	out := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		out = append(out, tag.Stage)
	}
	return out
}

func join(terms []Predicate, sep string) string {
	parts := make([]string, len(terms))
	for i, term := range terms {
		s := term.SQL()
		switch term.(type) {
		case AnyOf, AllOf:
			s = "(" + s + ")"
		}
		if sep == " or " {
			s = "(" + s + ")"
		}
		parts[i] = s
	}
	return strings.Join(parts, sep)
}

func stagesOf(terms []Predicate) []string {
	var out []string
	for _, term := range terms {
		out = append(out, term.Stages()...)
	}
	return out
}

func literal(v interface{}) string {
	switch x := v.(type) {
	case string:
		return sqlutil.QuoteLiteral(x)
	case nil:
		return "null"
	default:
		return fmt.Sprint(x)
	}
}

// likeMatch implements SQL LIKE: % matches any run of characters, _ matches
// exactly one, and a backslash makes the next character literal.
func likeMatch(s, pattern string) bool {
	for len(pattern) > 0 {
		p, size := utf8.DecodeRuneInString(pattern)
		switch p {
		case '%':
			rest := pattern[size:]
			for {
				if likeMatch(s, rest) {
					return true
				}
				if len(s) == 0 {
					return false
				}
				_, n := utf8.DecodeRuneInString(s)
				s = s[n:]
			}
		case '_':
			if len(s) == 0 {
				return false
			}
			_, n := utf8.DecodeRuneInString(s)
			s = s[n:]
			pattern = pattern[size:]
		default:
			if p == '\\' && len(pattern) > size {
				pattern = pattern[size:]
				p, size = utf8.DecodeRuneInString(pattern)
			}
			c, n := utf8.DecodeRuneInString(s)
			if len(s) == 0 || c != p {
				return false
			}
			s = s[n:]
			pattern = pattern[size:]
		}
	}
	return len(s) == 0
}
