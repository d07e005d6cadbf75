// Package schema defines the column and schema types shared by every
// pipeline stage: readers publish a Schema, transformers rewrite it, and
// writers receive the final, virtual-column-free Schema.
package schema

import "strings"

// LogicalType is the closed set of column types the pipeline understands.
// Every reader and writer maps its native types onto this set at its
// boundary; no other stage needs to know about engine-specific types.
type LogicalType string

const (
	Int8      LogicalType = "int8"
	Int16     LogicalType = "int16"
	Int32     LogicalType = "int32"
	Int64     LogicalType = "int64"
	Uint8     LogicalType = "uint8"
	Uint16    LogicalType = "uint16"
	Uint32    LogicalType = "uint32"
	Uint64    LogicalType = "uint64"
	Float32   LogicalType = "float32"
	Float64   LogicalType = "float64"
	Decimal   LogicalType = "decimal"
	Boolean   LogicalType = "boolean"
	String    LogicalType = "string"
	Bytes     LogicalType = "bytes"
	Date      LogicalType = "date"
	Time      LogicalType = "time"
	Timestamp LogicalType = "timestamp"
	UUID      LogicalType = "uuid"
	JSON      LogicalType = "json"
)

// ColumnInfo describes one column in a Schema.
type ColumnInfo struct {
	Name      string
	Type      LogicalType
	Nullable  bool
	Virtual   bool
	Precision int // meaningful only when Type == Decimal
	Scale     int // meaningful only when Type == Decimal
}

// Schema is an ordered, immutable sequence of columns with unique
// case-insensitive names. Construct one with New; once built, a Schema
// must not be mutated in place — stages that add or remove columns build
// a new Schema and hand it to the next stage.
type Schema struct {
	columns []ColumnInfo
	index   map[string]int // lower-cased name -> position
}

// New builds a Schema from an ordered column list. It returns an error if
// two columns share a case-insensitive name.
func New(columns []ColumnInfo) (Schema, error) {
	s := Schema{
		columns: append([]ColumnInfo(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range s.columns {
		key := strings.ToLower(c.Name)
		if _, exists := s.index[key]; exists {
			return Schema{}, &DuplicateColumnError{Name: c.Name}
		}
		s.index[key] = i
	}
	return s, nil
}

// DuplicateColumnError is returned by New when two columns collide
// case-insensitively.
type DuplicateColumnError struct{ Name string }

func (e *DuplicateColumnError) Error() string {
	return "duplicate column name: " + e.Name
}

// Columns returns the ordered column list. The returned slice is a copy;
// callers may not mutate the Schema through it.
func (s Schema) Columns() []ColumnInfo {
	return append([]ColumnInfo(nil), s.columns...)
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.columns) }

// At returns the column at a given position.
func (s Schema) At(i int) ColumnInfo { return s.columns[i] }

// IndexOf returns the position of a column by case-insensitive name, or
// -1 if no such column exists.
func (s Schema) IndexOf(name string) int {
	if i, ok := s.index[strings.ToLower(name)]; ok {
		return i
	}
	return -1
}

// Lookup returns a column by case-insensitive name.
func (s Schema) Lookup(name string) (ColumnInfo, bool) {
	i := s.IndexOf(name)
	if i < 0 {
		return ColumnInfo{}, false
	}
	return s.columns[i], true
}

// WithoutVirtual returns a new Schema with virtual columns elided, the
// shape the writer must receive (spec invariant: "the writer's received
// schema contains no virtual columns").
func (s Schema) WithoutVirtual() Schema {
	out := make([]ColumnInfo, 0, len(s.columns))
	for _, c := range s.columns {
		if !c.Virtual {
			out = append(out, c)
		}
	}
	built, _ := New(out) // no duplicates possible: subset of a valid Schema
	return built
}

// Names returns the ordered column names.
func (s Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}
