package graph

import (
	"fmt"

	"github.com/tablemateio/airlink/internal/schema"
)

// Builder constructs a link graph from resolved base metadata.
type Builder struct {
	base *schema.BaseSchema
}

// NewBuilder creates a new graph builder over a resolved schema.
func NewBuilder(base *schema.BaseSchema) *Builder {
	return &Builder{base: base}
}

// Build constructs the link graph of the whole base. rootRef marks the
// run's root table and accepts a table id or display name; an empty
// rootRef builds the graph without a root.
func (b *Builder) Build(rootRef string) (*Graph, error) {
	if b.base == nil {
		return nil, fmt.Errorf("base schema is nil")
	}

	root := ""
	if rootRef != "" {
		id, ok := b.base.CanonicalTableID(rootRef)
		if !ok {
			return nil, fmt.Errorf("root table %q not found in base", rootRef)
		}
		root = id
	}

	g := NewGraph(root)

	for _, table := range b.base.Tables() {
		g.AddNode(table.ID, &Node{
			ID:         table.ID,
			Name:       table.Name,
			FieldCount: len(table.Fields),
			IsRoot:     table.ID == root,
		})
	}

	// A link into a table the metadata did not return carries no edge;
	// the expansion walk cannot follow it either.
	for _, table := range b.base.Tables() {
		for _, field := range table.LinkFields() {
			target := field.Options.LinkedTableID
			if !g.HasNode(target) {
				continue
			}
			g.AddEdge(table.ID, target, field.Name)
		}
	}

	return g, nil
}

// BuildFromSchema is a convenience function that builds the link graph
// of a base in one call.
func BuildFromSchema(base *schema.BaseSchema, rootRef string) (*Graph, error) {
	return NewBuilder(base).Build(rootRef)
}
