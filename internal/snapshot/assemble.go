package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/dbsmedya/schemacheck/internal/catalog"
	"github.com/dbsmedya/schemacheck/internal/logger"
	"github.com/dbsmedya/schemacheck/internal/types"
)

// ErrMissingDatabase is returned when the query produced no row for the
// current database.
var ErrMissingDatabase = errors.New("document has no database record")

// StageStats describes one pipeline stage.
type StageStats struct {
	Stage    string
	Hidden   bool
	Input    int // rows offered to the stage
	Included int // rows that passed membership
	Duration time.Duration
}

// Dropped returns the number of rows the stage filtered out.
func (s StageStats) Dropped() int {
	return s.Input - s.Included
}

// Assembler runs the stage pipeline: every stage, in plan order, keeps the
// rows whose membership rule holds against its parents' included sets and
// sorts them by the category key.
type Assembler struct {
	plan   *catalog.Plan
	logger *logger.Logger
}

// NewAssembler creates an assembler for the given plan.
func NewAssembler(plan *catalog.Plan, log *logger.Logger) *Assembler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Assembler{plan: plan, logger: log}
}

// Assemble builds the document from decoded query output. The source is not
// modified.
func (a *Assembler) Assemble(src *Source) (*Document, error) {
	if src.Database == nil {
		return nil, ErrMissingDatabase
	}

	scope := catalog.NewScope(src.CatalogByOID)
	stats := make([]StageStats, 0, len(a.plan.Order()))

	for _, c := range a.plan.Order() {
		start := time.Now()

		input := a.input(c, src, scope)
		included := make([]types.Row, 0, len(input))
		for _, row := range input {
			if c.Filter == nil || c.Filter.Match(row, scope) {
				included = append(included, row)
			}
		}
		if !c.Hidden && !c.Singleton {
			SortRows(included, c.SortKey)
		}
		scope.Include(c.Name, included)

		st := StageStats{
			Stage:    c.Name,
			Hidden:   c.Hidden,
			Input:    len(input),
			Included: len(included),
			Duration: time.Since(start),
		}
		stats = append(stats, st)

		log := a.logger.WithCategory(c.Name)
		if c.Hidden {
			log = a.logger.WithStage(c.Name)
		}
		if c.Singleton && st.Included != 1 {
			return nil, fmt.Errorf("stage %s: expected exactly one row, got %d", c.Name, st.Included)
		}
		if st.Dropped() > 0 {
			log.Debugw("Stage dropped rows outside its parents", "input", st.Input, "dropped", st.Dropped())
		}
		log.Debugw("Stage completed", "rows", st.Included, "duration", st.Duration)
	}

	doc := newDocument(stats)
	for _, c := range a.plan.Visible() {
		rows := scope.Rows(c.Name)
		if c.Singleton {
			doc.fields.Set(c.Name, rows[0])
			continue
		}
		doc.fields.Set(c.Name, rows)
	}

	catalogByOID := src.CatalogByOID
	if catalogByOID == nil {
		catalogByOID = map[string]string{}
	}
	doc.fields.Set(catalog.FieldCatalogByOID, catalogByOID)
	doc.fields.Set(catalog.FieldCurrentUser, src.CurrentUser)
	doc.fields.Set(catalog.FieldPGVersion, src.PGVersion)
	doc.fields.Set(catalog.FieldIntrospectionVersion, catalog.IntrospectionVersion)

	return doc, nil
}

func (a *Assembler) input(c *catalog.Category, src *Source, scope *catalog.Scope) []types.Row {
	switch {
	case c.Hidden:
		return scope.Rows(c.Source)
	case c.Singleton:
		return []types.Row{src.Database}
	default:
		return src.Categories[c.Name]
	}
}

// Build decodes raw query output and assembles it.
func (a *Assembler) Build(raw []byte) (*Document, error) {
	src, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return a.Assemble(src)
}
