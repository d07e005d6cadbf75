// Package export implements the ExportService orchestrator of spec.md
// §4.6: resolve the reader/writer/transformer descriptors, thread the
// schema through the transformer chain, and run the three-stage
// concurrent pipeline. Grounded on the teacher's sequential
// initialize-then-run workflow style
// (services/transformation/internal/engine/workflow.go) and on the
// corpus's canonical producer/transform/consumer split; the concurrency
// primitive is golang.org/x/sync/errgroup, present as a transitive
// dependency across the example corpus.
package export

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"github.com/redbco/qdump/internal/descriptor"
	"github.com/redbco/qdump/internal/options"
	"github.com/redbco/qdump/internal/progress"
	"github.com/redbco/qdump/internal/qerrors"
	"github.com/redbco/qdump/internal/reader"
	"github.com/redbco/qdump/internal/row"
	"github.com/redbco/qdump/internal/schema"
	"github.com/redbco/qdump/internal/transform"
	"github.com/redbco/qdump/internal/writer"
	"github.com/redbco/qdump/pkg/logger"
)

// channelCapacity is the fixed bounded-channel size of spec.md §5.
const channelCapacity = 1000

// Service orchestrates one export run.
type Service struct {
	Opts             options.DumpOptions
	Options          *options.Registry
	ReaderSet        *descriptor.Set[reader.StreamReader]
	WriterSet        *descriptor.Set[writer.DataWriter]
	TransformSet     *descriptor.Set[transform.DataTransformer]
	TransformerNames []string // names selected by the CLI, applied in this order
	Log              *logger.Logger
	Progress         *progress.Reporter
	Out              io.Writer // dry-run diff table destination
}

// Run executes the sequence of spec.md §4.6.
func (s *Service) Run(ctx context.Context) error {
	rd, err := s.openReader(ctx)
	if err != nil {
		return err
	}
	defer rd.Close()

	inputSchema := rd.Columns()
	if inputSchema.Len() == 0 {
		s.Log.Info("query returned no columns, nothing to export")
		return nil
	}

	transformers, finalSchema, err := s.initializeTransformers(ctx, inputSchema)
	if err != nil {
		return err
	}
	writerSchema := finalSchema.WithoutVirtual()

	if s.Opts.DryRun {
		return s.runDryRun(ctx, rd, transformers, inputSchema, finalSchema)
	}

	wr, err := s.openWriter(ctx, writerSchema)
	if err != nil {
		return err
	}

	if err := s.runPipeline(ctx, rd, wr, transformers, writerSchema); err != nil {
		return err
	}
	if err := wr.Complete(ctx); err != nil {
		return qerrors.Wrap(qerrors.Output, "export.Run.Complete", err)
	}
	return nil
}

func (s *Service) openReader(ctx context.Context) (reader.StreamReader, error) {
	var desc descriptor.Descriptor[reader.StreamReader]
	var err error
	if s.Opts.Provider == "" || s.Opts.Provider == "auto" {
		desc, err = s.ReaderSet.Detect(s.Opts.ConnectionString)
	} else {
		desc, err = s.ReaderSet.Get(s.Opts.Provider)
	}
	if err != nil {
		return nil, qerrors.Wrap(qerrors.Config, "export.openReader", err)
	}
	rd, err := desc.New(ctx, s.Opts.ConnectionString, s.Options, s.Log)
	if err != nil {
		return nil, err
	}
	if err := rd.Open(ctx); err != nil {
		return nil, err
	}
	return rd, nil
}

func (s *Service) openWriter(ctx context.Context, ws schema.Schema) (writer.DataWriter, error) {
	desc, err := s.WriterSet.Detect(s.Opts.OutputPath)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.Config, "export.openWriter", err)
	}
	wr, err := desc.New(ctx, s.Opts.OutputPath, s.Options, s.Log)
	if err != nil {
		return nil, err
	}
	if err := wr.Initialize(ctx, ws); err != nil {
		return nil, err
	}
	return wr, nil
}

func (s *Service) initializeTransformers(ctx context.Context, input schema.Schema) ([]transform.DataTransformer, schema.Schema, error) {
	transformers := make([]transform.DataTransformer, 0, len(s.TransformerNames))
	current := input
	for _, name := range s.TransformerNames {
		desc, err := s.TransformSet.Get(name)
		if err != nil {
			return nil, schema.Schema{}, qerrors.Wrap(qerrors.Config, "export.initializeTransformers", err)
		}
		t, err := desc.New(ctx, "", s.Options, s.Log)
		if err != nil {
			return nil, schema.Schema{}, err
		}
		current, err = t.Initialize(ctx, current)
		if err != nil {
			return nil, schema.Schema{}, err
		}
		transformers = append(transformers, t)
	}
	return transformers, current, nil
}

func applyTransformers(transformers []transform.DataTransformer, r row.Row) (row.Row, error) {
	for _, t := range transformers {
		var err error
		r, err = t.Transform(r)
		if err != nil {
			return nil, qerrors.Wrap(qerrors.Transform, "export.applyTransformers", err)
		}
	}
	return r, nil
}

// runDryRun fetches one row, runs it through the pipeline, and renders a
// diff table per spec.md §4.6 step 5.
func (s *Service) runDryRun(ctx context.Context, rd reader.StreamReader, transformers []transform.DataTransformer, inputSchema, finalSchema schema.Schema) error {
	batch, ok, err := rd.Next(ctx, 1)
	if err != nil {
		return err
	}
	if !ok || len(batch) == 0 {
		s.Log.Info("dry run: query returned no rows")
		return nil
	}
	in := batch[0]
	out, err := applyTransformers(transformers, in.Clone())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(s.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tIN TYPE\tIN VALUE\tOUT TYPE\tOUT VALUE\tCHANGED")
	for i := 0; i < finalSchema.Len(); i++ {
		outCol := finalSchema.At(i)
		inType, inVal := "-", "-"
		if i < inputSchema.Len() {
			inCol := inputSchema.At(i)
			inType = string(inCol.Type)
			inVal = cellString(in[i])
		}
		outVal := cellString(out[i])
		changed := "false"
		if inVal != outVal {
			changed = "true"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", outCol.Name, inType, inVal, outCol.Type, outVal, changed)
	}
	return tw.Flush()
}

func cellString(v interface{}) string {
	if row.IsNull(v) || v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}

// runPipeline runs the three-stage producer/transform/consumer pipeline
// of spec.md §5 over two bounded channels, cancelling all stages on the
// first error.
func (s *Service) runPipeline(ctx context.Context, rd reader.StreamReader, wr writer.DataWriter, transformers []transform.DataTransformer, ws schema.Schema) error {
	readCh := make(chan row.Row, channelCapacity)
	writeCh := make(chan row.Row, channelCapacity)

	g, gctx := errgroup.WithContext(ctx)
	rowsEmitted := 0
	limit := s.Opts.RowLimit

	g.Go(func() error {
		defer close(readCh)
		for {
			batch, ok, err := rd.Next(gctx, s.Opts.BatchSize)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			for _, r := range batch {
				if limit > 0 && rowsEmitted >= limit {
					return nil
				}
				select {
				case readCh <- r:
					rowsEmitted++
					s.Progress.AddRowsRead(1)
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
	})

	g.Go(func() error {
		defer close(writeCh)
		for {
			select {
			case r, ok := <-readCh:
				if !ok {
					return nil
				}
				out, err := applyTransformers(transformers, r)
				if err != nil {
					return err
				}
				s.Progress.AddRowsTransformed(1)
				select {
				case writeCh <- out:
				case <-gctx.Done():
					return gctx.Err()
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	g.Go(func() error {
		batch := make(row.Batch, 0, s.Opts.BatchSize)
		var bytesSoFar int64
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := wr.WriteBatch(gctx, batch); err != nil {
				return err
			}
			s.Progress.AddRowsWritten(int64(len(batch)))
			total := wr.BytesWritten()
			s.Progress.AddBytesWritten(total - bytesSoFar)
			bytesSoFar = total
			batch = batch[:0]
			return nil
		}
		for {
			select {
			case r, ok := <-writeCh:
				if !ok {
					return flush()
				}
				batch = append(batch, r)
				if len(batch) >= s.Opts.BatchSize {
					if err := flush(); err != nil {
						return err
					}
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	return g.Wait()
}
