// Package render draws link graphs and plan output for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/tablemateio/airlink/internal/graph"
)

// Tree renders the link graph as an indented tree rooted at g.Root.
// Every link field gets its own branch, so two tables joined by several
// fields show up once per field. A link that re-enters a table already
// drawn is marked with a loop arrow instead of being followed, which is
// also how an expansion run resolves it.
//
// label maps table ids to display names; nil keeps raw ids.
func Tree(g *graph.Graph, label func(string) string) string {
	if g == nil || g.Root == "" {
		return ""
	}
	if label == nil {
		label = func(id string) string { return id }
	}

	var sb strings.Builder
	sb.WriteString(label(g.Root))
	sb.WriteByte('\n')

	seen := map[string]bool{g.Root: true}
	looped := writeBranches(&sb, g, g.Root, "", seen, label)
	if looped {
		sb.WriteString("\n↺ link re-enters a table shown above\n")
	}
	return sb.String()
}

func writeBranches(sb *strings.Builder, g *graph.Graph, from, prefix string, seen map[string]bool, label func(string) string) bool {
	edges := g.EdgesFrom(from)
	looped := false

	for i, edge := range edges {
		connector := "├── "
		childPrefix := prefix + "│   "
		if i == len(edges)-1 {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		if seen[edge.To] {
			fmt.Fprintf(sb, "%s%s%s (via %s) ↺\n", prefix, connector, label(edge.To), edge.Field)
			looped = true
			continue
		}
		seen[edge.To] = true
		fmt.Fprintf(sb, "%s%s%s (via %s)\n", prefix, connector, label(edge.To), edge.Field)
		if writeBranches(sb, g, edge.To, childPrefix, seen, label) {
			looped = true
		}
	}
	return looped
}
