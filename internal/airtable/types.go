// Package airtable provides the REST client for the Airtable API.
package airtable

// TableSchema describes one table from the base metadata endpoint.
type TableSchema struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Fields      []FieldSchema `json:"fields"`
}

// FieldSchema describes one field of a table.
type FieldSchema struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Type    string        `json:"type"`
	Options *FieldOptions `json:"options,omitempty"`
}

// FieldOptions carries the type-specific field options the engine cares
// about. Only link options are modeled; everything else is ignored.
type FieldOptions struct {
	LinkedTableID           string `json:"linkedTableId,omitempty"`
	InverseLinkFieldID      string `json:"inverseLinkFieldId,omitempty"`
	PrefersSingleRecordLink bool   `json:"prefersSingleRecordLink,omitempty"`
}

// FieldTypeMultipleRecordLinks is the field type the schema uses for
// linked record fields.
const FieldTypeMultipleRecordLinks = "multipleRecordLinks"

// IsLink reports whether the field references records in another table.
func (f FieldSchema) IsLink() bool {
	return f.Type == FieldTypeMultipleRecordLinks && f.Options != nil && f.Options.LinkedTableID != ""
}

// recordPayload is the wire shape of a single record response.
type recordPayload struct {
	ID          string                 `json:"id"`
	CreatedTime string                 `json:"createdTime"`
	Fields      map[string]interface{} `json:"fields"`
}

// recordListPayload is the wire shape of a record list page.
type recordListPayload struct {
	Records []recordPayload `json:"records"`
	Offset  string          `json:"offset,omitempty"`
}

// baseSchemaPayload is the wire shape of the base metadata response.
type baseSchemaPayload struct {
	Tables []TableSchema `json:"tables"`
}
