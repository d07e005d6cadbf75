package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/redbco/qdump/internal/descriptor"
	"github.com/redbco/qdump/internal/options"
	"github.com/redbco/qdump/internal/progress"
	"github.com/redbco/qdump/internal/reader"
	"github.com/redbco/qdump/internal/row"
	"github.com/redbco/qdump/internal/schema"
	"github.com/redbco/qdump/internal/transform"
	"github.com/redbco/qdump/internal/writer"
	"github.com/redbco/qdump/pkg/logger"
)

// fakeReader is an in-memory reader.StreamReader test double.
type fakeReader struct {
	schema  schema.Schema
	batches []row.Batch
	pos     int
	closed  bool
}

func (f *fakeReader) Open(ctx context.Context) error { return nil }
func (f *fakeReader) Columns() schema.Schema          { return f.schema }
func (f *fakeReader) Next(ctx context.Context, batchSize int) (row.Batch, bool, error) {
	if f.pos >= len(f.batches) {
		return nil, false, nil
	}
	b := f.batches[f.pos]
	f.pos++
	return b, true, nil
}
func (f *fakeReader) Close() error { f.closed = true; return nil }

// fakeWriter is an in-memory writer.DataWriter test double.
type fakeWriter struct {
	schema    schema.Schema
	batches   []row.Batch
	completed bool
}

func (f *fakeWriter) Initialize(ctx context.Context, s schema.Schema) error {
	f.schema = s
	return nil
}
func (f *fakeWriter) WriteBatch(ctx context.Context, batch row.Batch) error {
	f.batches = append(f.batches, batch)
	return nil
}
func (f *fakeWriter) Complete(ctx context.Context) error { f.completed = true; return nil }
func (f *fakeWriter) BytesWritten() int64 {
	var n int64
	for _, b := range f.batches {
		n += int64(len(b))
	}
	return n
}

// upperTransformer appends "!" to column 0 of every row, for exercising the
// transformer chain without depending on the fake/format packages.
type upperTransformer struct{}

func (upperTransformer) Initialize(ctx context.Context, input schema.Schema) (schema.Schema, error) {
	return input, nil
}
func (upperTransformer) Transform(r row.Row) (row.Row, error) {
	out := r.Clone()
	if s, ok := out[0].(string); ok {
		out[0] = s + "!"
	}
	return out, nil
}

func testSchema(t *testing.T) schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.ColumnInfo{
		{Name: "NAME", Type: schema.String},
		{Name: "AGE", Type: schema.Int32},
	})
	if err != nil {
		t.Fatalf("schema.New() error = %v", err)
	}
	return s
}

func newTestService(t *testing.T, rd *fakeReader, wr *fakeWriter, dryRun bool, limit int) *Service {
	t.Helper()
	readers := descriptor.NewSet[reader.StreamReader]()
	readers.Register(descriptor.Descriptor[reader.StreamReader]{
		Name: "fake",
		New: func(ctx context.Context, target string, opts *options.Registry, log *logger.Logger) (reader.StreamReader, error) {
			return rd, nil
		},
	})
	writers := descriptor.NewSet[writer.DataWriter]()
	writers.Register(descriptor.Descriptor[writer.DataWriter]{
		Name:      "fake",
		CanHandle: func(string) bool { return true },
		New: func(ctx context.Context, target string, opts *options.Registry, log *logger.Logger) (writer.DataWriter, error) {
			return wr, nil
		},
	})
	transforms := descriptor.NewSet[transform.DataTransformer]()
	transforms.Register(descriptor.Descriptor[transform.DataTransformer]{
		Name: "upper",
		New: func(ctx context.Context, target string, opts *options.Registry, log *logger.Logger) (transform.DataTransformer, error) {
			return upperTransformer{}, nil
		},
	})

	return &Service{
		Opts: options.DumpOptions{
			Provider:   "fake",
			OutputPath: "out.fake",
			BatchSize:  2,
			DryRun:     dryRun,
			RowLimit:   limit,
		},
		Options:          options.NewRegistry(),
		ReaderSet:        readers,
		WriterSet:        writers,
		TransformSet:     transforms,
		TransformerNames: []string{"upper"},
		Log:              logger.New("qdump-test", "test"),
		Progress:         progress.New(),
		Out:              &bytes.Buffer{},
	}
}

func TestRunStreamsAllRowsThroughWriter(t *testing.T) {
	rd := &fakeReader{
		schema: testSchema(t),
		batches: []row.Batch{
			{{"alice", int32(30)}, {"bob", int32(40)}},
			{{"carol", int32(50)}},
		},
	}
	wr := &fakeWriter{}
	svc := newTestService(t, rd, wr, false, 0)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !wr.completed {
		t.Error("writer was not completed")
	}
	if !rd.closed {
		t.Error("reader was not closed")
	}

	var total int
	var names []string
	for _, b := range wr.batches {
		for _, r := range b {
			total++
			names = append(names, r[0].(string))
		}
	}
	if total != 3 {
		t.Errorf("wrote %d rows, want 3", total)
	}
	want := []string{"alice!", "bob!", "carol!"}
	for i, n := range names {
		if n != want[i] {
			t.Errorf("row %d name = %q, want %q", i, n, want[i])
		}
	}
}

func TestRunRespectsRowLimit(t *testing.T) {
	rd := &fakeReader{
		schema: testSchema(t),
		batches: []row.Batch{
			{{"alice", int32(30)}, {"bob", int32(40)}, {"carol", int32(50)}},
		},
	}
	wr := &fakeWriter{}
	svc := newTestService(t, rd, wr, false, 2)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var total int
	for _, b := range wr.batches {
		total += len(b)
	}
	if total != 2 {
		t.Errorf("wrote %d rows, want 2 (row limit)", total)
	}
}

func TestRunDryRunSkipsWriterAndRendersOneRow(t *testing.T) {
	rd := &fakeReader{
		schema: testSchema(t),
		batches: []row.Batch{
			{{"alice", int32(30)}},
		},
	}
	wr := &fakeWriter{}
	svc := newTestService(t, rd, wr, true, 0)
	out := &bytes.Buffer{}
	svc.Out = out

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(wr.batches) != 0 {
		t.Error("dry run must not write any batch")
	}
	if out.Len() == 0 {
		t.Error("dry run must render a diff table")
	}
}

func TestRunReportsEmptySchemaAsSuccess(t *testing.T) {
	emptySchema, err := schema.New(nil)
	if err != nil {
		t.Fatalf("schema.New(nil) error = %v", err)
	}
	rd := &fakeReader{schema: emptySchema}
	wr := &fakeWriter{}
	svc := newTestService(t, rd, wr, false, 0)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(wr.batches) != 0 {
		t.Error("writer should never be opened when the schema is empty")
	}
}
