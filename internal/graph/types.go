// Package graph provides link graph structures and algorithms for airlink.
package graph

// Node represents a table in the link graph.
type Node struct {
	ID         string // Table id
	Name       string // Display name
	FieldCount int    // Total number of fields on the table
	IsRoot     bool   // True if this is the run's root table
}

// Edge represents one link field connecting two tables.
type Edge struct {
	From  string // Source table id
	To    string // Target table id
	Field string // Link field name on the source table
}

// Graph represents the link structure of a base. Two tables may be
// connected by several link fields; every field keeps its own edge,
// while Children holds each target once for traversal.
type Graph struct {
	Nodes    map[string]*Node    // table id -> node
	Children map[string][]string // table id -> distinct target table ids
	Parents  map[string][]string // table id -> distinct source table ids
	Root     string              // Root table id (may be empty)

	order []string // node insertion order, for deterministic output
	edges []Edge   // all link field edges in schema order
}

// NewGraph creates a new empty graph. root may be empty when no run
// root applies.
func NewGraph(root string) *Graph {
	return &Graph{
		Nodes:    make(map[string]*Node),
		Children: make(map[string][]string),
		Parents:  make(map[string][]string),
		Root:     root,
	}
}

// AddNode adds a table node to the graph.
// If node is nil, a new node with default values is created.
func (g *Graph) AddNode(id string, node *Node) {
	if node == nil {
		node = &Node{ID: id, Name: id}
	}
	node.ID = id
	if _, exists := g.Nodes[id]; !exists {
		g.order = append(g.order, id)
	}
	g.Nodes[id] = node
}

// AddEdge adds a link field edge from one table to another. The edge
// list keeps every field; the traversal maps record each neighbor once.
func (g *Graph) AddEdge(from, to, field string) {
	g.edges = append(g.edges, Edge{From: from, To: to, Field: field})

	if !contains(g.Children[from], to) {
		g.Children[from] = append(g.Children[from], to)
	}
	if !contains(g.Parents[to], from) {
		g.Parents[to] = append(g.Parents[to], from)
	}
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// GetChildren returns the distinct tables a table links into.
func (g *Graph) GetChildren(from string) []string {
	return g.Children[from]
}

// GetParents returns the distinct tables linking into a table.
func (g *Graph) GetParents(to string) []string {
	return g.Parents[to]
}

// GetNode returns the node for a given table id, or nil if not found.
func (g *Graph) GetNode(id string) *Node {
	return g.Nodes[id]
}

// HasNode returns true if the graph contains a node with the given id.
func (g *Graph) HasNode(id string) bool {
	_, exists := g.Nodes[id]
	return exists
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of link field edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// AllNodes returns all table ids in insertion order.
func (g *Graph) AllNodes() []string {
	nodes := make([]string, len(g.order))
	copy(nodes, g.order)
	return nodes
}

// AllEdges returns all link field edges in schema order.
func (g *Graph) AllEdges() []Edge {
	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// EdgesFrom returns the link field edges leaving a table, in schema
// order.
func (g *Graph) EdgesFrom(from string) []Edge {
	var edges []Edge
	for _, e := range g.edges {
		if e.From == from {
			edges = append(edges, e)
		}
	}
	return edges
}

// EdgesBetween returns the link field edges from one table to another.
func (g *Graph) EdgesBetween(from, to string) []Edge {
	var edges []Edge
	for _, e := range g.edges {
		if e.From == from && e.To == to {
			edges = append(edges, e)
		}
	}
	return edges
}

// LeafNodes returns all tables with no outgoing links, in insertion
// order.
func (g *Graph) LeafNodes() []string {
	var leaves []string
	for _, id := range g.order {
		if len(g.Children[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// InDegree returns the number of distinct tables linking into a table.
func (g *Graph) InDegree(id string) int {
	return len(g.Parents[id])
}

// OutDegree returns the number of distinct tables a table links into.
func (g *Graph) OutDegree(id string) int {
	return len(g.Children[id])
}
