package domain

import "strings"

// ContactRecord is one data row of the contact file. It shares the header
// slice with every other row of the same sheet and is never modified.
type ContactRecord struct {
	Line   int      `json:"line"`
	Fields []string `json:"fields"`
	Header []string `json:"-"`
}

// Field returns the value at column i, or "" when i is out of range.
func (r ContactRecord) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i]
}

// Raw re-joins the fields exactly as they appeared in the source.
func (r ContactRecord) Raw() string {
	return strings.Join(r.Fields, ",")
}

// ContactSheet is a parsed contact file.
type ContactSheet struct {
	Path   string          `json:"path"`
	Header []string        `json:"header"`
	Rows   []ContactRecord `json:"rows"`
}

// HeaderLine returns the header as it is written to ledgers.
func (s *ContactSheet) HeaderLine() string {
	return strings.Join(s.Header, ",")
}

// ResolvedIndex holds, per placeholder mapping, the 0-based column of its
// title in the header. Unresolved mappings hold -1.
type ResolvedIndex []int

// Unresolved marks a placeholder whose column title is not in the header.
const Unresolved = -1

// Resolved reports whether mapping i points at a column.
func (r ResolvedIndex) Resolved(i int) bool {
	return i >= 0 && i < len(r) && r[i] != Unresolved
}
