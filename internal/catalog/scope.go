package catalog

import (
	"strings"

	"github.com/dbsmedya/schemacheck/internal/types"
)

// Scope holds the rows each stage has included so far. A stage's rows are
// recorded once and never changed afterwards; derived id sets are cached.
type Scope struct {
	rows         map[string][]types.Row
	sets         map[string]types.IDSet
	catalogByOID map[string]string
}

// NewScope creates an empty scope. catalogByOID maps pg_catalog relation
// oids (as decimal text) to relation names.
func NewScope(catalogByOID map[string]string) *Scope {
	byKey := make(map[string]string, len(catalogByOID))
	for oid, name := range catalogByOID {
		if k, ok := types.Key(oid); ok {
			byKey[k] = name
		}
	}
	return &Scope{
		rows:         make(map[string][]types.Row),
		sets:         make(map[string]types.IDSet),
		catalogByOID: byKey,
	}
}

// Include records the included rows of a stage. Including the same stage
// twice is ignored.
func (s *Scope) Include(stage string, rows []types.Row) {
	if _, exists := s.rows[stage]; exists {
		return
	}
	if rows == nil {
		rows = []types.Row{}
	}
	s.rows[stage] = rows
}

// Has reports whether the stage has been recorded.
func (s *Scope) Has(stage string) bool {
	_, ok := s.rows[stage]
	return ok
}

// Rows returns the included rows of a stage.
func (s *Scope) Rows(stage string) []types.Row {
	return s.rows[stage]
}

// Set returns the identifiers found in the given columns of a stage's
// included rows. A stage that has not been recorded yields an empty set.
func (s *Scope) Set(stage string, columns ...string) types.IDSet {
	cacheKey := stage + "\x00" + strings.Join(columns, "\x00")
	if set, ok := s.sets[cacheKey]; ok {
		return set
	}
	rows, ok := s.rows[stage]
	if !ok {
		return types.NewIDSet()
	}
	set := types.CollectTuples(rows, columns...)
	s.sets[cacheKey] = set
	return set
}

// CatalogName resolves a catalog relation oid to its name.
func (s *Scope) CatalogName(oid interface{}) (string, bool) {
	k, ok := types.Key(oid)
	if !ok {
		return "", false
	}
	name, found := s.catalogByOID[k]
	return name, found
}

// NamespaceOID finds the oid of an included namespace by name.
func (s *Scope) NamespaceOID(name string) (interface{}, bool) {
	for _, r := range s.rows[StageNamespaces] {
		if r["nspname"] == name {
			return r[IdentityColumn], true
		}
	}
	return nil, false
}
