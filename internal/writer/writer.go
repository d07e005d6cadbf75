// Package writer defines the DataWriter contract (spec.md §4.2) and the
// global descriptor set that concrete providers (csv, parquet) register
// themselves into at init(), selected by output-path extension.
package writer

import (
	"context"

	"github.com/redbco/qdump/internal/descriptor"
	"github.com/redbco/qdump/internal/row"
	"github.com/redbco/qdump/internal/schema"
)

// DataWriter accepts a schema, appends row batches, and finalizes output.
// A DataWriter is used by exactly one goroutine (the consumer stage) and
// is not safe for concurrent use.
type DataWriter interface {
	// Initialize records the output schema (which must contain no virtual
	// columns) and allocates output resources.
	Initialize(ctx context.Context, schema schema.Schema) error

	// WriteBatch appends rows. The writer may buffer internally but must
	// flush at batch boundaries when the output format has a row-group
	// concept (spec.md §6).
	WriteBatch(ctx context.Context, batch row.Batch) error

	// Complete finalizes the output. After Complete returns successfully,
	// the file is self-consistent.
	Complete(ctx context.Context) error

	// BytesWritten is a monotonic counter for progress reporting.
	BytesWritten() int64
}

// Registry is the global set of writer descriptors, keyed by provider
// name, with CanHandle used for output-path-extension detection.
var Registry = descriptor.NewSet[DataWriter]()
