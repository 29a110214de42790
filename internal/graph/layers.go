package graph

// Layers returns the tables reachable from start in breadth first
// order, grouped by link distance. Layer 0 is the start table itself;
// maxDepth bounds how many link hops are followed. Each table appears
// only in the first layer that reaches it, which mirrors how the
// expansion walk inlines a record once and places placeholders after.
func (g *Graph) Layers(start string, maxDepth int) [][]string {
	if !g.HasNode(start) {
		return nil
	}

	visited := map[string]bool{start: true}
	layers := [][]string{{start}}
	frontier := []string{start}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, table := range frontier {
			for _, child := range g.GetChildren(table) {
				if visited[child] {
					continue
				}
				visited[child] = true
				next = append(next, child)
			}
		}
		if len(next) == 0 {
			break
		}
		layers = append(layers, next)
		frontier = next
	}

	return layers
}

// ReachableTables returns every table reachable from start within
// maxDepth link hops, the start table included.
func (g *Graph) ReachableTables(start string, maxDepth int) []string {
	var tables []string
	for _, layer := range g.Layers(start, maxDepth) {
		tables = append(tables, layer...)
	}
	return tables
}

// Depth returns the link distance from start to target, or -1 when
// target is not reachable within maxDepth hops.
func (g *Graph) Depth(start, target string, maxDepth int) int {
	for depth, layer := range g.Layers(start, maxDepth) {
		for _, table := range layer {
			if table == target {
				return depth
			}
		}
	}
	return -1
}
