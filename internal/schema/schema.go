// Package schema indexes a base's table metadata for the expansion
// engine: which fields are links and which table each link points at.
package schema

import (
	"strings"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/tablemateio/airlink/internal/airtable"
)

// Table is one table of the base with its link fields pre-indexed.
type Table struct {
	ID     string
	Name   string
	Fields []airtable.FieldSchema

	links []airtable.FieldSchema
}

// LinkFields returns the table's link fields in schema order.
func (t *Table) LinkFields() []airtable.FieldSchema {
	return t.links
}

// HasLinks reports whether the table links into any table.
func (t *Table) HasLinks() bool {
	return len(t.links) > 0
}

// Field looks up a field by name.
func (t *Table) Field(name string) (airtable.FieldSchema, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return airtable.FieldSchema{}, false
}

// LinkTarget returns the table id a link field points at.
func (t *Table) LinkTarget(fieldName string) (string, bool) {
	for _, f := range t.links {
		if f.Name == fieldName {
			return f.Options.LinkedTableID, true
		}
	}
	return "", false
}

// BaseSchema indexes every table of a base by id and by name. Table
// order follows the metadata response, so iteration is deterministic.
type BaseSchema struct {
	tables *orderedmap.OrderedMap[string, *Table]
	byName map[string]string
}

// NewBaseSchema builds the index from raw table metadata.
func NewBaseSchema(tables []airtable.TableSchema) *BaseSchema {
	s := &BaseSchema{
		tables: orderedmap.NewOrderedMap[string, *Table](),
		byName: make(map[string]string, len(tables)),
	}

	for _, t := range tables {
		table := &Table{
			ID:     t.ID,
			Name:   t.Name,
			Fields: t.Fields,
		}
		for _, f := range t.Fields {
			if f.IsLink() {
				table.links = append(table.links, f)
			}
		}
		s.tables.Set(t.ID, table)
		s.byName[t.Name] = t.ID
	}

	return s
}

// Len returns the number of tables in the base.
func (s *BaseSchema) Len() int {
	return s.tables.Len()
}

// Tables returns every table in metadata order.
func (s *BaseSchema) Tables() []*Table {
	out := make([]*Table, 0, s.tables.Len())
	for el := s.tables.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// TableByID looks up a table by its canonical id.
func (s *BaseSchema) TableByID(id string) (*Table, bool) {
	return s.tables.Get(id)
}

// TableByName looks up a table by its exact display name.
func (s *BaseSchema) TableByName(name string) (*Table, bool) {
	id, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.tables.Get(id)
}

// ResolveTable accepts either a table id or a display name, the two
// forms config files and API paths use interchangeably. Ids win over
// names; a name match falls back to case-insensitive comparison so a
// config typed as "contacts" still finds "Contacts".
func (s *BaseSchema) ResolveTable(nameOrID string) (*Table, bool) {
	if t, ok := s.tables.Get(nameOrID); ok {
		return t, true
	}
	if t, ok := s.TableByName(nameOrID); ok {
		return t, true
	}
	for el := s.tables.Front(); el != nil; el = el.Next() {
		if strings.EqualFold(el.Value.Name, nameOrID) {
			return el.Value, true
		}
	}
	return nil, false
}

// CanonicalTableID resolves a table reference to its canonical id.
func (s *BaseSchema) CanonicalTableID(nameOrID string) (string, bool) {
	t, ok := s.ResolveTable(nameOrID)
	if !ok {
		return "", false
	}
	return t.ID, true
}

// LinkFieldCount returns the total number of link fields in the base.
func (s *BaseSchema) LinkFieldCount() int {
	count := 0
	for el := s.tables.Front(); el != nil; el = el.Next() {
		count += len(el.Value.links)
	}
	return count
}
