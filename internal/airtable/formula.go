package airtable

import (
	"strings"
)

// QuoteFieldName wraps a field name in braces for use in filterByFormula.
// Example: "First Name" -> "{First Name}"
func QuoteFieldName(name string) string {
	return "{" + name + "}"
}

// IsValidFieldName checks if a name can be referenced inside a formula.
// Brace characters cannot be escaped in formula field references, so names
// containing them are rejected outright.
func IsValidFieldName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsAny(name, "{}")
}

// QuoteFieldNameSafe wraps a field name in braces after validating it.
// Use this when field names might come from untrusted sources.
func QuoteFieldNameSafe(name string) (string, error) {
	if !IsValidFieldName(name) {
		return "", &InvalidFieldNameError{Name: name}
	}
	return QuoteFieldName(name), nil
}

// InvalidFieldNameError is returned when a field name cannot appear in a formula.
type InvalidFieldNameError struct {
	Name string
}

func (e *InvalidFieldNameError) Error() string {
	return "invalid field name: " + e.Name + " (must be non-empty and contain no braces)"
}

// QuoteString quotes a string literal for use in filterByFormula.
// Backslashes and single quotes are escaped with a backslash.
// Example: "O'Brien" -> "'O\'Brien'"
func QuoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// FieldEquals builds a case-insensitive equality test against one field,
// the shape the record lookup scripts have always used.
// Example: FieldEquals("Last Name", "smith") -> "UPPER({Last Name})=UPPER('smith')"
func FieldEquals(field, value string) (string, error) {
	quoted, err := QuoteFieldNameSafe(field)
	if err != nil {
		return "", err
	}
	return "UPPER(" + quoted + ")=UPPER(" + QuoteString(value) + ")", nil
}

// RecordIDEquals builds an exact record id test.
// Example: RecordIDEquals("rec123") -> "RECORD_ID()='rec123'"
func RecordIDEquals(id string) string {
	return "RECORD_ID()=" + QuoteString(id)
}

// AnyRecordID builds a formula matching any of the given record ids.
// An empty list yields FALSE() so the query matches nothing instead of
// everything.
func AnyRecordID(ids []string) string {
	switch len(ids) {
	case 0:
		return "FALSE()"
	case 1:
		return RecordIDEquals(ids[0])
	}

	terms := make([]string, len(ids))
	for i, id := range ids {
		terms[i] = RecordIDEquals(id)
	}
	return "OR(" + strings.Join(terms, ",") + ")"
}
