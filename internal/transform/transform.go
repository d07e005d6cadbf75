// Package transform defines the DataTransformer contract (spec.md §4.3)
// and the global descriptor set that concrete transformer kinds (fake,
// format) register into, selected by name rather than connection string.
package transform

import (
	"context"

	"github.com/redbco/qdump/internal/descriptor"
	"github.com/redbco/qdump/internal/row"
	"github.com/redbco/qdump/internal/schema"
)

// DataTransformer rewrites a schema once at initialization, then rewrites
// each row as it flows through. Initialize and Transform are each called
// by a single goroutine (the transform stage); a DataTransformer must not
// block on I/O from Transform.
type DataTransformer interface {
	// Initialize is called once, before any row is transformed, with the
	// cumulative schema produced by all upstream transformers. It returns
	// the schema this transformer publishes to the next stage.
	Initialize(ctx context.Context, input schema.Schema) (schema.Schema, error)

	// Transform rewrites one row in place (returning it) or returns a new
	// row. Must be synchronous and side-effect-free with respect to
	// anything other than its own bound options and RNG state.
	Transform(r row.Row) (row.Row, error)
}

// Registry is the global set of transformer descriptors, keyed by name.
// Transformers are always selected explicitly by name (CanHandle is nil),
// never auto-detected.
var Registry = descriptor.NewSet[DataTransformer]()
