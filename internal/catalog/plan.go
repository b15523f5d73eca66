package catalog

import (
	"fmt"

	"github.com/dbsmedya/schemacheck/internal/graph"
	"github.com/dbsmedya/schemacheck/internal/sqlutil"
)

// Plan is a validated set of category declarations together with the order
// in which their stages must be computed.
type Plan struct {
	graph    *graph.Graph
	declared []*Category
	order    []*Category
	byName   map[string]*Category
}

// NewPlan validates the declarations and orders them parents first.
func NewPlan(categories []Category) (*Plan, error) {
	p := &Plan{byName: make(map[string]*Category, len(categories))}

	stages := make([]graph.Stage, 0, len(categories))
	for i := range categories {
		c := &categories[i]
		if err := validateCategory(c); err != nil {
			return nil, err
		}
		p.declared = append(p.declared, c)
		p.byName[c.Name] = c
		stages = append(stages, graph.Stage{Name: c.Name, Parents: c.Parents(), Hidden: c.Hidden})
	}

	g, err := graph.BuildFromStages(stages)
	if err != nil {
		return nil, fmt.Errorf("invalid category graph: %w", err)
	}
	p.graph = g

	names, err := g.StageOrder()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		p.order = append(p.order, p.byName[name])
	}
	return p, nil
}

// DefaultPlan returns the plan for the built-in categories.
func DefaultPlan() (*Plan, error) {
	return NewPlan(Categories())
}

// Order returns every stage, hidden ones included, in computation order.
func (p *Plan) Order() []*Category {
	return p.order
}

// Visible returns the document categories in document order.
func (p *Plan) Visible() []*Category {
	var out []*Category
	for _, c := range p.declared {
		if !c.Hidden {
			out = append(out, c)
		}
	}
	return out
}

// Category looks up a stage by name.
func (p *Plan) Category(name string) (*Category, bool) {
	c, ok := p.byName[name]
	return c, ok
}

// Graph returns the stage dependency graph.
func (p *Plan) Graph() *graph.Graph {
	return p.graph
}

// Depths returns the longest parent chain of every stage.
func (p *Plan) Depths() map[string]int {
	// The graph was validated in NewPlan, so this cannot fail.
	depths, _ := p.graph.Depths()
	return depths
}

func validateCategory(c *Category) error {
	if !sqlutil.IsValidIdentifier(c.Name) {
		return fmt.Errorf("category %q: invalid name", c.Name)
	}

	if c.Hidden {
		if c.Source == "" || c.Relation != "" {
			return fmt.Errorf("category %q: hidden stages narrow a source stage and have no relation", c.Name)
		}
		if c.Singleton {
			return fmt.Errorf("category %q: hidden stages cannot be singletons", c.Name)
		}
	} else {
		if c.Relation == "" || c.Source != "" {
			return fmt.Errorf("category %q: visible categories read a catalog relation", c.Name)
		}
		if !sqlutil.IsValidIdentifier(c.Relation) {
			return fmt.Errorf("category %q: invalid relation %q", c.Name, c.Relation)
		}
		if c.Singleton && len(c.SortKey) > 0 {
			return fmt.Errorf("category %q: singletons have no sort key", c.Name)
		}
		if !c.Singleton && len(c.SortKey) == 0 {
			return fmt.Errorf("category %q: sequences need a sort key", c.Name)
		}
	}

	names := append(append([]string{}, c.Columns...), c.SortKey...)
	for _, d := range c.Derived {
		names = append(names, d.Name)
	}
	for _, name := range names {
		if _, err := sqlutil.QuoteIdentifierSafe(name); err != nil {
			return fmt.Errorf("category %q: %w", c.Name, err)
		}
	}
	return nil
}
