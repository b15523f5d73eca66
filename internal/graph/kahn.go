package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ReadyQueue holds stages whose parents have all been processed. Dequeue
// always yields the earliest-declared ready stage, so the resulting order is
// identical on every run.
type ReadyQueue struct {
	g     *Graph
	items []string
}

// NewReadyQueue creates a new empty queue bound to the graph's declaration order.
func (g *Graph) NewReadyQueue() *ReadyQueue {
	return &ReadyQueue{g: g}
}

// InitializeQueue creates a queue populated with all stages that have an
// in-degree of 0 (no dependencies).
func (g *Graph) InitializeQueue(inDegree map[string]int) *ReadyQueue {
	q := g.NewReadyQueue()
	for _, name := range g.order {
		if inDegree[name] == 0 {
			q.Enqueue(name)
		}
	}
	return q
}

// Enqueue inserts a stage keeping the queue sorted by declaration index.
func (q *ReadyQueue) Enqueue(name string) {
	idx := q.index(name)
	pos := sort.Search(len(q.items), func(i int) bool {
		return q.index(q.items[i]) > idx
	})
	q.items = append(q.items, "")
	copy(q.items[pos+1:], q.items[pos:])
	q.items[pos] = name
}

// Dequeue removes and returns the earliest-declared ready stage.
// Returns empty string and false if queue is empty.
func (q *ReadyQueue) Dequeue() (string, bool) {
	if len(q.items) == 0 {
		return "", false
	}
	name := q.items[0]
	q.items = q.items[1:]
	return name, true
}

// Len returns the number of stages in the queue.
func (q *ReadyQueue) Len() int {
	return len(q.items)
}

// IsEmpty returns true if the queue has no stages.
func (q *ReadyQueue) IsEmpty() bool {
	return len(q.items) == 0
}

func (q *ReadyQueue) index(name string) int {
	if node := q.g.Nodes[name]; node != nil {
		return node.Index
	}
	return len(q.g.order)
}

// CalculateInDegrees computes the number of incoming edges for each node.
func (g *Graph) CalculateInDegrees() map[string]int {
	inDegree := make(map[string]int, len(g.Nodes))

	for name := range g.Nodes {
		inDegree[name] = 0
	}

	for _, children := range g.Children {
		for _, child := range children {
			inDegree[child]++
		}
	}

	return inDegree
}

// ErrCycleDetected is returned when the dependency graph contains a cycle,
// making topological sorting impossible.
var ErrCycleDetected = errors.New("cycle detected in dependency graph")

// CycleInfo contains information about incomplete processing due to cycles.
type CycleInfo struct {
	TotalNodes        int      // Total number of nodes in the graph
	ProcessedNodes    int      // Number of nodes successfully processed
	UnprocessedNodes  []string // Nodes that couldn't be processed (part of or blocked by cycle)
	CycleParticipants []string // Nodes that are actually part of a cycle (subset of UnprocessedNodes)
	CyclePath         []string // Ordered path showing the cycle (e.g., [A, B, C, A])
}

// CycleError represents a cycle detection error with detailed information about
// which stages are involved and which are blocked by the cycle.
type CycleError struct {
	Info *CycleInfo
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	msg := fmt.Sprintf("cycle detected in dependency graph: %d of %d stages could not be processed",
		len(e.Info.UnprocessedNodes), e.Info.TotalNodes)

	if len(e.Info.CyclePath) > 0 {
		msg += fmt.Sprintf("\nCycle path: %s", strings.Join(e.Info.CyclePath, " -> "))
	}

	if len(e.Info.CycleParticipants) > 0 {
		msg += fmt.Sprintf("\nStages in cycle: %s", strings.Join(e.Info.CycleParticipants, ", "))
	}

	if len(e.Info.UnprocessedNodes) > len(e.Info.CycleParticipants) {
		participantSet := make(map[string]bool)
		for _, p := range e.Info.CycleParticipants {
			participantSet[p] = true
		}

		var blocked []string
		for _, u := range e.Info.UnprocessedNodes {
			if !participantSet[u] {
				blocked = append(blocked, u)
			}
		}

		if len(blocked) > 0 {
			msg += fmt.Sprintf("\nStages blocked by cycle: %s", strings.Join(blocked, ", "))
		}
	}

	return msg
}

// Unwrap lets errors.Is match ErrCycleDetected.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// DetectIncompleteProcessing runs Kahn's algorithm and returns information
// about any nodes that couldn't be processed. Returns nil when every node was
// processed (no cycle).
func (g *Graph) DetectIncompleteProcessing() *CycleInfo {
	order, processed := g.kahn()
	if len(order) == len(g.Nodes) {
		return nil
	}

	var unprocessed []string
	unprocessedSet := make(map[string]bool)
	for _, name := range g.order {
		if !processed[name] {
			unprocessed = append(unprocessed, name)
			unprocessedSet[name] = true
		}
	}

	var cycleParticipants []string
	for _, node := range unprocessed {
		if g.canReachSelf(node, unprocessedSet) {
			cycleParticipants = append(cycleParticipants, node)
		}
	}

	var cyclePath []string
	if len(cycleParticipants) > 0 {
		cyclePath = g.FindCyclePath(cycleParticipants[0], unprocessedSet)
	}

	return &CycleInfo{
		TotalNodes:        len(g.Nodes),
		ProcessedNodes:    len(order),
		UnprocessedNodes:  unprocessed,
		CycleParticipants: cycleParticipants,
		CyclePath:         cyclePath,
	}
}

// HasCycle returns true if the dependency graph contains a cycle.
func (g *Graph) HasCycle() bool {
	return g.DetectIncompleteProcessing() != nil
}

// FindCyclePath finds the actual path that forms a cycle starting from the given node.
// Returns the ordered list of nodes forming the cycle (including the start node at both ends).
func (g *Graph) FindCyclePath(start string, allowedNodes map[string]bool) []string {
	visited := make(map[string]bool)
	path := []string{start}

	if g.dfsFindPath(start, start, visited, allowedNodes, &path) {
		return path
	}

	return nil
}

// dfsFindPath performs DFS to find a path back to the target node.
func (g *Graph) dfsFindPath(current, target string, visited, allowedNodes map[string]bool, path *[]string) bool {
	for _, child := range g.GetChildren(current) {
		if !allowedNodes[child] {
			continue
		}

		if child == target {
			*path = append(*path, target)
			return true
		}

		if visited[child] {
			continue
		}

		visited[child] = true
		*path = append(*path, child)

		if g.dfsFindPath(child, target, visited, allowedNodes, path) {
			return true
		}

		// Backtrack
		*path = (*path)[:len(*path)-1]
	}

	return false
}

// canReachSelf checks if a node can reach itself through the subgraph
// defined by the allowedNodes set.
func (g *Graph) canReachSelf(start string, allowedNodes map[string]bool) bool {
	visited := make(map[string]bool)
	return g.dfsCanReach(start, start, visited, allowedNodes, true)
}

// dfsCanReach performs DFS to check if we can reach the target node.
// isStart is true only for the initial call to avoid immediate self-match.
func (g *Graph) dfsCanReach(current, target string, visited, allowedNodes map[string]bool, isStart bool) bool {
	if current == target && !isStart {
		return true
	}

	if visited[current] || !allowedNodes[current] {
		return false
	}

	visited[current] = true

	for _, child := range g.GetChildren(current) {
		if g.dfsCanReach(child, target, visited, allowedNodes, false) {
			return true
		}
	}

	return false
}

// kahn runs the algorithm and returns the processed order plus the processed set.
func (g *Graph) kahn() ([]string, map[string]bool) {
	inDegree := g.CalculateInDegrees()
	queue := g.InitializeQueue(inDegree)

	order := make([]string, 0, len(g.Nodes))
	processed := make(map[string]bool, len(g.Nodes))

	for !queue.IsEmpty() {
		node, _ := queue.Dequeue()
		order = append(order, node)
		processed[node] = true

		for _, child := range g.GetChildren(node) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}

	return order, processed
}

// TopologicalSort returns stages in dependency order (parents first). Among
// stages that are ready at the same time the earliest-declared one goes
// first, so a declaration list that is already consistent is returned as is.
// Returns a *CycleError if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	order, _ := g.kahn()
	if len(order) != len(g.Nodes) {
		return nil, &CycleError{Info: g.DetectIncompleteProcessing()}
	}
	return order, nil
}

// StageOrder returns the order in which stages must be computed.
func (g *Graph) StageOrder() ([]string, error) {
	return g.TopologicalSort()
}

// Depths returns, for every stage, the length of the longest parent chain
// leading to it. Roots have depth 0.
func (g *Graph) Depths() (map[string]int, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	depth := make(map[string]int, len(order))
	for _, name := range order {
		depth[name] = 0
		for _, parent := range g.GetParents(name) {
			if d := depth[parent] + 1; d > depth[name] {
				depth[name] = d
			}
		}
	}
	return depth, nil
}

// Validate checks the graph for structural issues such as cycles.
// Returns a CycleError if the graph contains cycles, nil otherwise.
func (g *Graph) Validate() error {
	if cycleInfo := g.DetectIncompleteProcessing(); cycleInfo != nil {
		return &CycleError{Info: cycleInfo}
	}
	return nil
}
