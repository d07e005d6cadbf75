// Package csvwriter implements a DataWriter over encoding/csv — the corpus's own
// choice for CSV I/O (see _examples/other_examples for the cockroach CSV
// importer, which also reaches for encoding/csv rather than a third-party
// library) — with RFC 4180 quoting and a configurable delimiter.
package csvwriter

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redbco/qdump/internal/descriptor"
	"github.com/redbco/qdump/internal/options"
	"github.com/redbco/qdump/internal/qerrors"
	"github.com/redbco/qdump/internal/row"
	"github.com/redbco/qdump/internal/schema"
	"github.com/redbco/qdump/internal/writer"
	"github.com/redbco/qdump/pkg/logger"
)

const ProviderName = "csv"

// Options configures the CSV writer. Header defaults to true when nil
// (spec.md §6: "optional header row (default on)").
type Options struct {
	Delimiter rune // default ',' when zero
	Header    *bool
}

type csvOptions struct {
	Delimiter rune
	Header    bool
}

// Writer implements writer.DataWriter for CSV output.
type Writer struct {
	path    string
	opts    csvOptions
	log     *logger.Logger
	file    *os.File
	counter *writer.CountingWriter
	csv     *csv.Writer
	schema  schema.Schema
}

// New constructs a CSV Writer. Matches descriptor.Descriptor[writer.DataWriter].New.
func New(ctx context.Context, path string, opts *options.Registry, log *logger.Logger) (writer.DataWriter, error) {
	bound, _ := options.Get[Options](opts, ProviderName)
	co := csvOptions{Delimiter: ',', Header: true}
	if bound.Delimiter != 0 {
		co.Delimiter = bound.Delimiter
	}
	if bound.Header != nil {
		co.Header = *bound.Header
	}
	return &Writer{path: path, opts: co, log: log}, nil
}

func (w *Writer) Initialize(ctx context.Context, s schema.Schema) error {
	f, err := os.Create(w.path)
	if err != nil {
		return qerrors.Wrap(qerrors.Output, "csv.Initialize.Create", err)
	}
	w.file = f
	w.counter = writer.NewCountingWriter(f)
	cw := csv.NewWriter(w.counter)
	cw.Comma = w.opts.Delimiter
	w.csv = cw
	w.schema = s

	if w.opts.Header {
		if err := w.csv.Write(s.Names()); err != nil {
			return qerrors.Wrap(qerrors.Output, "csv.Initialize.WriteHeader", err)
		}
	}
	return nil
}

func (w *Writer) WriteBatch(ctx context.Context, batch row.Batch) error {
	for _, r := range batch {
		record := make([]string, len(r))
		for i, cell := range r {
			record[i] = formatCell(cell, w.schema.At(i).Type)
		}
		if err := w.csv.Write(record); err != nil {
			return qerrors.Wrap(qerrors.Output, "csv.WriteBatch", err)
		}
	}
	// Flush at every batch boundary, mirroring the Parquet writer's
	// row-group-per-batch cadence even though CSV has no row-group
	// concept of its own.
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return qerrors.Wrap(qerrors.Output, "csv.WriteBatch.Flush", err)
	}
	return nil
}

func (w *Writer) Complete(ctx context.Context) error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return qerrors.Wrap(qerrors.Output, "csv.Complete.Flush", err)
	}
	if err := w.file.Close(); err != nil {
		return qerrors.Wrap(qerrors.Output, "csv.Complete.Close", err)
	}
	return nil
}

func (w *Writer) BytesWritten() int64 {
	if w.counter == nil {
		return 0
	}
	return w.counter.BytesWritten()
}

// formatCell renders a cell value as CSV text. Null cells render empty.
func formatCell(v interface{}, t schema.LogicalType) string {
	if row.IsNull(v) || v == nil {
		return ""
	}
	switch t {
	case schema.Boolean:
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b)
		}
	case schema.Timestamp, schema.Date, schema.Time:
		if tm, ok := v.(time.Time); ok {
			return tm.Format(time.RFC3339)
		}
	case schema.Float32, schema.Float64, schema.Decimal:
		if f, ok := toFloat(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	case schema.UUID:
		return formatUUID(v)
	}
	return fmt.Sprint(v)
}

// formatUUID renders a UUID cell as its canonical 36-character string,
// regardless of which representation the driver handed back.
func formatUUID(v interface{}) string {
	switch val := v.(type) {
	case uuid.UUID:
		return val.String()
	case [16]byte:
		return uuid.UUID(val).String()
	case []byte:
		if len(val) == 16 {
			var b [16]byte
			copy(b[:], val)
			return uuid.UUID(b).String()
		}
	case string:
		if u, err := uuid.Parse(val); err == nil {
			return u.String()
		}
		return val
	}
	return fmt.Sprint(v)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func init() {
	writer.Registry.Register(descriptor.Descriptor[writer.DataWriter]{
		Name:          ProviderName,
		OptionsPrefix: ProviderName,
		CanHandle: func(path string) bool {
			return strings.HasSuffix(strings.ToLower(path), ".csv")
		},
		New: New,
	})
}
