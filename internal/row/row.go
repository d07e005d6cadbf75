// Package row defines the transport-level row and cell types that flow
// between pipeline stages. Cells are untyped at this level; the Schema
// the row is positionally aligned with at each pipeline stage carries the
// logical type.
package row

// nullSentinel is the unexported type behind Null so that no external
// value can accidentally compare equal to it.
type nullSentinel struct{}

// Null is the sentinel value representing SQL NULL / an absent cell.
var Null = nullSentinel{}

// IsNull reports whether a cell value is the null sentinel.
func IsNull(v interface{}) bool {
	_, ok := v.(nullSentinel)
	return ok
}

// Row is a fixed-length, positionally-ordered sequence of cell values,
// aligned with the Schema current at its pipeline position. A Row may be
// mutated in place by a transformer and returned, or a transformer may
// build and return a new Row — the orchestrator never copies a Row on a
// transformer's behalf.
type Row []interface{}

// Clone returns a shallow copy of the row. Transformers that need to
// preserve the input row (e.g. to read a pre-transform value after
// overwriting the cell) should clone before mutating.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Batch is an ordered, contiguous group of rows: the unit of reader fetch
// and writer append.
type Batch []Row
