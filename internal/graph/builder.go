package graph

import (
	"fmt"
)

// Stage declares one node of the graph and the stages it reads from.
type Stage struct {
	Name    string
	Parents []string
	Hidden  bool
}

// Builder constructs a dependency graph from stage declarations.
type Builder struct {
	stages []Stage
}

// NewBuilder creates a new graph builder for the given declarations.
func NewBuilder(stages []Stage) *Builder {
	return &Builder{stages: stages}
}

// Build constructs the dependency graph. Parents may be declared after their
// children; declaration order only matters as a tie-break when ordering.
func (b *Builder) Build() (*Graph, error) {
	if len(b.stages) == 0 {
		return nil, fmt.Errorf("no stages declared")
	}

	g := NewGraph()

	for _, stage := range b.stages {
		if stage.Name == "" {
			return nil, fmt.Errorf("stage name is empty")
		}
		if g.HasNode(stage.Name) {
			return nil, fmt.Errorf("duplicate stage: %q is declared more than once", stage.Name)
		}
		g.AddNode(stage.Name, stage.Hidden)
	}

	for _, stage := range b.stages {
		seen := make(map[string]bool, len(stage.Parents))
		for _, parent := range stage.Parents {
			if !g.HasNode(parent) {
				return nil, fmt.Errorf("stage %q depends on undeclared stage %q", stage.Name, parent)
			}
			if seen[parent] {
				continue
			}
			seen[parent] = true
			g.AddEdge(parent, stage.Name)
		}
	}

	// Fail fast on cycles
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("graph validation failed: %w", err)
	}

	return g, nil
}

// BuildFromStages is a convenience function that builds a graph directly from declarations.
func BuildFromStages(stages []Stage) (*Graph, error) {
	return NewBuilder(stages).Build()
}
