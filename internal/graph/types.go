// Package graph provides the stage dependency graph used to order snapshot
// assembly. Each node is a catalog category (or a hidden helper subset) and
// each edge says that the child's membership is computed from the parent's
// included set.
package graph

// Node represents a stage in the dependency graph.
type Node struct {
	Name   string // Stage name (document field for visible categories)
	Hidden bool   // True for helper subsets that never reach the document
	Index  int    // Declaration position, used as the deterministic tie-break
}

// Edge represents a dependency relationship between stages.
type Edge struct {
	From string // Parent stage name
	To   string // Child stage name
}

// Graph represents the complete dependency structure between stages.
type Graph struct {
	Nodes    map[string]*Node    // stage name -> node
	Children map[string][]string // stage name -> child stage names (outgoing edges)
	Parents  map[string][]string // stage name -> parent stage names (incoming edges)
	order    []string            // stage names in declaration order
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:    make(map[string]*Node),
		Children: make(map[string][]string),
		Parents:  make(map[string][]string),
	}
}

// AddNode adds a stage node to the graph. Re-adding an existing name updates
// the node but keeps its original declaration position.
func (g *Graph) AddNode(name string, hidden bool) *Node {
	if existing, ok := g.Nodes[name]; ok {
		existing.Hidden = hidden
		return existing
	}
	node := &Node{
		Name:   name,
		Hidden: hidden,
		Index:  len(g.order),
	}
	g.Nodes[name] = node
	g.order = append(g.order, name)
	return node
}

// AddEdge adds a parent -> child relationship to the graph.
// It also maintains the reverse mapping for efficient parent lookups.
func (g *Graph) AddEdge(parent, child string) {
	g.Children[parent] = append(g.Children[parent], child)
	g.Parents[child] = append(g.Parents[child], parent)
}

// GetChildren returns all direct children of a stage.
func (g *Graph) GetChildren(parent string) []string {
	return g.Children[parent]
}

// GetParents returns all direct parents of a stage.
func (g *Graph) GetParents(child string) []string {
	return g.Parents[child]
}

// GetNode returns the node for a given stage name, or nil if not found.
func (g *Graph) GetNode(name string) *Node {
	return g.Nodes[name]
}

// HasNode returns true if the graph contains a node with the given name.
func (g *Graph) HasNode(name string) bool {
	_, exists := g.Nodes[name]
	return exists
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.Children {
		count += len(children)
	}
	return count
}

// AllNodes returns all stage names in declaration order.
func (g *Graph) AllNodes() []string {
	nodes := make([]string, len(g.order))
	copy(nodes, g.order)
	return nodes
}

// AllEdges returns all edges, ordered by parent then child declaration order.
func (g *Graph) AllEdges() []Edge {
	var edges []Edge
	for _, parent := range g.order {
		for _, child := range g.Children[parent] {
			edges = append(edges, Edge{From: parent, To: child})
		}
	}
	return edges
}

// Roots returns all stages without parents in declaration order.
func (g *Graph) Roots() []string {
	var roots []string
	for _, name := range g.order {
		if len(g.Parents[name]) == 0 {
			roots = append(roots, name)
		}
	}
	return roots
}

// LeafNodes returns all stages without children in declaration order.
func (g *Graph) LeafNodes() []string {
	var leaves []string
	for _, name := range g.order {
		if len(g.Children[name]) == 0 {
			leaves = append(leaves, name)
		}
	}
	return leaves
}

// InDegree returns the number of incoming edges (parents) for a node.
func (g *Graph) InDegree(name string) int {
	return len(g.Parents[name])
}

// OutDegree returns the number of outgoing edges (children) for a node.
func (g *Graph) OutDegree(name string) int {
	return len(g.Children[name])
}
