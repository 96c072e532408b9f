// Package typemap maps source type identities and spellings to SQL type names.
//
// A Table is built once from the base mappings, then extended with the mappings
// owned by registered types and enums before rendering starts. It is passed
// explicitly to whatever needs it; there is no package-level registry.
package typemap

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicate is returned when an identity or source spelling is mapped twice.
var ErrDuplicate = errors.New("duplicate type mapping")

// Mapping is a single identity -> SQL entry.
type Mapping struct {
	// ID is the identity (or source spelling for source-only mappings).
	ID string `yaml:"id" json:"id"`
	// SQL is the literal SQL type text.
	SQL string `yaml:"sql" json:"sql"`
	// Owner names whoever registered the mapping, for diagnostics.
	Owner string `yaml:"-" json:"owner,omitempty"`
}

// DuplicateError reports a second registration of the same key.
type DuplicateError struct {
	Key    string
	First  string
	Second string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("cannot map %q twice: already mapped by %s, again by %s", e.Key, owner(e.First), owner(e.Second))
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

func owner(s string) string {
	if s == "" {
		return "base mappings"
	}
	return "`" + s + "`"
}

// Table holds identity mappings and source-only mappings.
type Table struct {
	byID     map[string]Mapping
	bySource map[string]Mapping
}

// New creates an empty table.
func New() *Table {
	return &Table{
		byID:     make(map[string]Mapping),
		bySource: make(map[string]Mapping),
	}
}

// Register maps an identity to a SQL type. Registering the same identity twice is an error.
func (t *Table) Register(m Mapping) error {
	if prev, ok := t.byID[m.ID]; ok {
		return &DuplicateError{Key: m.ID, First: prev.Owner, Second: m.Owner}
	}
	t.byID[m.ID] = m
	return nil
}

// RegisterSource maps a literal source spelling to a SQL type.
func (t *Table) RegisterSource(m Mapping) error {
	if prev, ok := t.bySource[m.ID]; ok {
		return &DuplicateError{Key: m.ID, First: prev.Owner, Second: m.Owner}
	}
	t.bySource[m.ID] = m
	return nil
}

// Lookup returns the SQL for an identity.
func (t *Table) Lookup(id string) (string, bool) {
	m, ok := t.byID[id]
	return m.SQL, ok
}

// LookupSource returns the SQL for a literal source spelling.
func (t *Table) LookupSource(source string) (string, bool) {
	m, ok := t.bySource[source]
	return m.SQL, ok
}

// Resolve tries the source-only mapping first, then the identity mapping.
func (t *Table) Resolve(id, source string) (string, bool) {
	if source != "" {
		if sql, ok := t.LookupSource(source); ok {
			return sql, true
		}
	}
	if id != "" {
		return t.Lookup(id)
	}
	return "", false
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := New()
	for k, v := range t.byID {
		c.byID[k] = v
	}
	for k, v := range t.bySource {
		c.bySource[k] = v
	}
	return c
}

// Len returns the number of identity and source-only mappings.
func (t *Table) Len() int {
	return len(t.byID) + len(t.bySource)
}

// Entries returns identity mappings sorted by ID.
func (t *Table) Entries() []Mapping {
	return sorted(t.byID)
}

// SourceEntries returns source-only mappings sorted by spelling.
func (t *Table) SourceEntries() []Mapping {
	return sorted(t.bySource)
}

func sorted(m map[string]Mapping) []Mapping {
	out := make([]Mapping, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
