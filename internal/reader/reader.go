// Package reader defines the StreamReader contract (spec.md §4.1) and the
// global descriptor set that concrete providers (postgres, mysql)
// register themselves into at init() — the "static registration point"
// of spec.md §6.
package reader

import (
	"context"

	"github.com/redbco/qdump/internal/descriptor"
	"github.com/redbco/qdump/internal/row"
	"github.com/redbco/qdump/internal/schema"
)

// StreamReader opens a source, exposes its column schema, and produces
// row batches lazily. A StreamReader is used by exactly one goroutine
// (the producer stage) and is not safe for concurrent use.
type StreamReader interface {
	// Open establishes the connection, submits the query, and materializes
	// the column schema. Fails with a qerrors.Connection, qerrors.Query,
	// qerrors.Permission, or qerrors.Security error.
	Open(ctx context.Context) error

	// Columns returns the schema discovered by Open. Valid only after Open
	// has returned successfully.
	Columns() schema.Schema

	// Next advances to and returns the next batch of up to batchSize rows.
	// It returns (nil, false, nil) once the result set is exhausted. The
	// sequence is not restartable.
	Next(ctx context.Context, batchSize int) (row.Batch, bool, error)

	// Close releases the connection. Idempotent.
	Close() error
}

// Registry is the global set of reader descriptors, keyed by provider
// name, with CanHandle used for "auto" connection-string detection.
var Registry = descriptor.NewSet[StreamReader]()
