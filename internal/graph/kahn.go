package graph

import (
	"container/list"
	"fmt"
	"strings"
)

// ProcessingQueue wraps a list-based queue for Kahn's algorithm processing.
// It holds nodes that are ready to be processed (have in-degree of 0).
type ProcessingQueue struct {
	queue *list.List
}

// NewProcessingQueue creates a new empty processing queue.
func NewProcessingQueue() *ProcessingQueue {
	return &ProcessingQueue{
		queue: list.New(),
	}
}

// InitializeQueue creates a processing queue populated with all nodes
// that have in-degree of 0 (no incoming links). This is step 2 of
// Kahn's algorithm.
func (g *Graph) InitializeQueue(inDegree map[string]int) *ProcessingQueue {
	pq := NewProcessingQueue()

	for _, id := range g.order {
		if inDegree[id] == 0 {
			pq.Enqueue(id)
		}
	}

	return pq
}

// Enqueue adds a node to the back of the queue.
func (pq *ProcessingQueue) Enqueue(node string) {
	pq.queue.PushBack(node)
}

// Dequeue removes and returns the node at the front of the queue.
// Returns empty string and false if queue is empty.
func (pq *ProcessingQueue) Dequeue() (string, bool) {
	if pq.queue.Len() == 0 {
		return "", false
	}
	elem := pq.queue.Front()
	pq.queue.Remove(elem)
	return elem.Value.(string), true
}

// Len returns the number of nodes in the queue.
func (pq *ProcessingQueue) Len() int {
	return pq.queue.Len()
}

// IsEmpty returns true if the queue has no nodes.
func (pq *ProcessingQueue) IsEmpty() bool {
	return pq.queue.Len() == 0
}

// CalculateInDegrees computes the number of distinct incoming links for
// each table. This is the first step of Kahn's algorithm.
// Returns a map of table id -> in-degree count.
func (g *Graph) CalculateInDegrees() map[string]int {
	inDegree := make(map[string]int)

	// Initialize all nodes with 0
	for id := range g.Nodes {
		inDegree[id] = 0
	}

	// Count incoming links by iterating through all children relationships
	for _, children := range g.Children {
		for _, child := range children {
			inDegree[child]++
		}
	}

	return inDegree
}

// GetZeroInDegreeNodes returns all tables with in-degree of 0, the
// tables no link field points at.
func (g *Graph) GetZeroInDegreeNodes(inDegree map[string]int) []string {
	var nodes []string
	for _, id := range g.order {
		if inDegree[id] == 0 {
			nodes = append(nodes, id)
		}
	}
	return nodes
}

// CycleInfo describes the link cycles of a base. Cycles are a normal
// shape for linked tables; the expansion walk breaks them with
// placeholder ids, so this exists to inform, not to reject.
type CycleInfo struct {
	TotalNodes        int      // Total number of tables in the graph
	ProcessedNodes    int      // Tables outside every cycle
	UnprocessedNodes  []string // Tables on a cycle or only reachable through one
	CycleParticipants []string // Tables that are actually part of a cycle
	CyclePath         []string // Ordered path showing one cycle (e.g., [A, B, C, A])
}

// Describe renders the cycle information as display text. resolve maps
// a table id to its display label; a nil resolve shows raw ids.
func (info *CycleInfo) Describe(resolve func(string) string) string {
	if resolve == nil {
		resolve = func(id string) string { return id }
	}

	label := func(ids []string) []string {
		out := make([]string, len(ids))
		for i, id := range ids {
			out[i] = resolve(id)
		}
		return out
	}

	msg := fmt.Sprintf("%d of %d tables sit on or behind link cycles",
		len(info.UnprocessedNodes), info.TotalNodes)

	// Show the cycle path if available
	if len(info.CyclePath) > 0 {
		msg += fmt.Sprintf("\nCycle path: %s", strings.Join(label(info.CyclePath), " -> "))
	}

	// List tables that are actually part of the cycle
	if len(info.CycleParticipants) > 0 {
		msg += fmt.Sprintf("\nTables in cycle: %s", strings.Join(label(info.CycleParticipants), ", "))
	}

	// List tables that are only reachable through the cycle
	if len(info.UnprocessedNodes) > len(info.CycleParticipants) {
		participantSet := make(map[string]bool)
		for _, p := range info.CycleParticipants {
			participantSet[p] = true
		}

		var behind []string
		for _, u := range info.UnprocessedNodes {
			if !participantSet[u] {
				behind = append(behind, u)
			}
		}

		if len(behind) > 0 {
			msg += fmt.Sprintf("\nTables behind cycle: %s", strings.Join(label(behind), ", "))
		}
	}

	return msg
}

// DetectIncompleteProcessing runs Kahn's algorithm and returns
// information about any tables that could not be peeled off, which
// means they sit on or behind a link cycle. Returns nil when the link
// structure is acyclic.
func (g *Graph) DetectIncompleteProcessing() *CycleInfo {
	inDegree := g.CalculateInDegrees()
	queue := g.InitializeQueue(inDegree)

	processed := make(map[string]bool)

	// Process all reachable nodes
	for !queue.IsEmpty() {
		node, _ := queue.Dequeue()
		processed[node] = true

		for _, child := range g.GetChildren(node) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}

	// Check if all nodes were processed
	if len(processed) == len(g.Nodes) {
		return nil // No cycle detected
	}

	// Collect unprocessed nodes in insertion order
	var unprocessed []string
	for _, id := range g.order {
		if !processed[id] {
			unprocessed = append(unprocessed, id)
		}
	}

	// Build unprocessed set for cycle participant detection
	unprocessedSet := make(map[string]bool)
	for _, node := range unprocessed {
		unprocessedSet[node] = true
	}

	// Find actual cycle participants
	var cycleParticipants []string
	for _, node := range unprocessed {
		if g.canReachSelf(node, unprocessedSet) {
			cycleParticipants = append(cycleParticipants, node)
		}
	}

	// Find one concrete cycle path for display
	var cyclePath []string
	if len(cycleParticipants) > 0 {
		cyclePath = g.FindCyclePath(cycleParticipants[0], unprocessedSet)
	}

	return &CycleInfo{
		TotalNodes:        len(g.Nodes),
		ProcessedNodes:    len(processed),
		UnprocessedNodes:  unprocessed,
		CycleParticipants: cycleParticipants,
		CyclePath:         cyclePath,
	}
}

// HasCycle returns true if the link graph contains a cycle.
// This is a convenience method that wraps DetectIncompleteProcessing.
func (g *Graph) HasCycle() bool {
	return g.DetectIncompleteProcessing() != nil
}

// FindCycleParticipants identifies tables that are actually part of a
// cycle. Unlike UnprocessedNodes, which also carries tables merely
// behind a cycle, this returns only the tables forming cycles.
func (g *Graph) FindCycleParticipants() []string {
	cycleInfo := g.DetectIncompleteProcessing()
	if cycleInfo == nil {
		return nil // No cycles
	}
	return cycleInfo.CycleParticipants
}

// FindCyclePath finds the actual path that forms a cycle starting from
// the given table. Returns the ordered list of tables forming the cycle
// (including the start table at both ends).
func (g *Graph) FindCyclePath(start string, allowedNodes map[string]bool) []string {
	visited := make(map[string]bool)
	path := []string{start}

	if g.dfsFindPath(start, start, visited, allowedNodes, &path) {
		return path
	}

	return nil
}

// dfsFindPath performs DFS to find a path back to the target table.
// Returns true if a path is found, and populates the path slice via pointer.
func (g *Graph) dfsFindPath(current, target string, visited, allowedNodes map[string]bool, path *[]string) bool {
	for _, child := range g.GetChildren(current) {
		// Skip if not in allowed set
		if !allowedNodes[child] {
			continue
		}

		// Found path back to target - append target to complete the cycle
		if child == target {
			*path = append(*path, target)
			return true
		}

		// Skip if already visited
		if visited[child] {
			continue
		}

		// Mark as visited and recurse
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

// canReachSelf checks if a table can reach itself through the subgraph
// defined by the allowedNodes set. Uses DFS with path tracking.
func (g *Graph) canReachSelf(start string, allowedNodes map[string]bool) bool {
	visited := make(map[string]bool)
	return g.dfsCanReach(start, start, visited, allowedNodes, true)
}

// dfsCanReach performs DFS to check if we can reach the target table.
// isStart is true only for the initial call to avoid immediate self-match.
func (g *Graph) dfsCanReach(current, target string, visited, allowedNodes map[string]bool, isStart bool) bool {
	// Found a path back to start (but not on first call)
	if current == target && !isStart {
		return true
	}

	// Skip if already visited or not in allowed set
	if visited[current] {
		return false
	}
	if !allowedNodes[current] {
		return false
	}

	visited[current] = true

	// Check all children
	for _, child := range g.GetChildren(current) {
		if g.dfsCanReach(child, target, visited, allowedNodes, false) {
			return true
		}
	}

	return false
}
