// Package record provides the in-memory record model shared by the API
// client and the expansion engine.
package record

import (
	"encoding/json"
	"sort"

	"github.com/spf13/cast"
)

// Record is a flat view of one table row: the record identifier plus a
// field name to value mapping. Values are scalars, lists of scalars, or,
// after expansion, lists mixing nested Records and bare id strings. The
// engine never mutates a Record in place; merges produce copies.
type Record struct {
	ID          string
	Table       string
	CreatedTime string
	Fields      map[string]interface{}
}

// New creates a Record. A nil fields map is replaced with an empty one so
// callers can Set without checking.
func New(table, id string, fields map[string]interface{}) *Record {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	return &Record{
		ID:     id,
		Table:  table,
		Fields: fields,
	}
}

// Get returns a field value and whether the field is present.
func (r *Record) Get(field string) (interface{}, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

// Set stores a field value.
func (r *Record) Set(field string, value interface{}) {
	if r.Fields == nil {
		r.Fields = make(map[string]interface{})
	}
	r.Fields[field] = value
}

// FieldNames returns the record's field names in sorted order.
func (r *Record) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy whose field map can be modified without touching
// the original. Field values themselves are shared; merging replaces
// whole values, never edits them.
func (r *Record) Clone() *Record {
	fields := make(map[string]interface{}, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return &Record{
		ID:          r.ID,
		Table:       r.Table,
		CreatedTime: r.CreatedTime,
		Fields:      fields,
	}
}

// ReferenceIDs reads a field value as an ordered list of record ids.
// It returns ok=false when the value is not a plain id list, which is how
// already-expanded fields (lists holding nested records) are recognized
// and left alone on a re-run. Duplicates and order are preserved. A bare
// string is treated as a single-element list, the shape flat CSV-origin
// data tends to carry.
func ReferenceIDs(value interface{}) ([]string, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case string:
		if v == "" {
			return nil, false
		}
		return []string{v}, true
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, true
	case []interface{}:
		ids := make([]string, 0, len(v))
		for _, el := range v {
			switch el.(type) {
			case string:
			default:
				// Nested records, numbers, anything non-string:
				// not an id list
				return nil, false
			}
			id, err := cast.ToStringE(el)
			if err != nil || id == "" {
				return nil, false
			}
			ids = append(ids, id)
		}
		return ids, true
	default:
		return nil, false
	}
}

// MarshalJSON emits the flat object shape consumers expect: the record id
// under "id" with all fields alongside it. A field literally named "id"
// loses to the record identifier.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["id"] = r.ID
	return json.Marshal(out)
}

// UnmarshalJSON reads the same flat shape back: "id" becomes the record
// identifier, everything else a field.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if id, ok := raw["id"]; ok {
		r.ID = cast.ToString(id)
		delete(raw, "id")
	}
	r.Fields = raw
	return nil
}
