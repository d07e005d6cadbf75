// Command qdump streams the result of a read-only SQL query into a CSV or
// Parquet file, optionally anonymizing or reshaping columns along the way
// (spec.md §6). The CLI layer is a single spf13/cobra root command,
// grounded on the teacher's cobra.Command{Use, Short, Long, RunE} shape
// (cmd/cli/cmd/regions.go) — but collapsed to one command rather than the
// teacher's subcommand tree, since qdump has one operation, not a
// resource-per-subcommand API surface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/redbco/qdump/internal/export"
	"github.com/redbco/qdump/internal/options"
	"github.com/redbco/qdump/internal/progress"
	"github.com/redbco/qdump/internal/qerrors"
	"github.com/redbco/qdump/internal/reader"
	"github.com/redbco/qdump/internal/transform"
	"github.com/redbco/qdump/internal/transform/fake"
	"github.com/redbco/qdump/internal/transform/format"
	"github.com/redbco/qdump/internal/writer"
	csvwriter "github.com/redbco/qdump/internal/writer/csv"
	"github.com/redbco/qdump/pkg/logger"
	"github.com/redbco/qdump/pkg/service"

	// Blank-imported for their init() registration into the global
	// reader/writer/transform descriptor sets (spec.md §6, "the static
	// registration point").
	_ "github.com/redbco/qdump/internal/reader/mysql"
	_ "github.com/redbco/qdump/internal/reader/postgres"
	_ "github.com/redbco/qdump/internal/writer/parquet"
)

const version = "0.1.0"

// cliFlags mirrors DumpOptions plus the per-transformer repeatable flags;
// cobra binds directly into these before Run constructs the typed options.
type cliFlags struct {
	provider       string
	conn           string
	query          string
	out            string
	connectTimeout time.Duration
	queryTimeout   time.Duration
	batchSize      int
	rowLimit       int
	dryRun         bool
	debug          bool
	listFakers     bool

	fakeMappings   []string
	nullColumns    []string
	formatMappings []string
	seed           int64
	seedSet        bool
	locale         string

	csvDelimiter string
	csvNoHeader  bool
}

func main() {
	flags := &cliFlags{}
	root := newRootCommand(flags)
	if err := root.Execute(); err != nil {
		kind := qerrors.KindOf(err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(kind.ExitCode())
	}
}

func newRootCommand(flags *cliFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "qdump",
		Short:   "Stream a read-only SQL query into a CSV or Parquet file",
		Long:    "qdump exports the result of a read-only SQL query into a columnar (Parquet) or delimited (CSV) file, optionally anonymizing, reshaping, or nulling individual columns.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.seedSet = cmd.Flags().Changed("seed")
			return run(cmd.Context(), flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.provider, "provider", "auto", `source provider: "auto" or a known provider name`)
	f.StringVar(&flags.conn, "conn", "", "connection string (falls back to the provider's environment variable when empty)")
	f.StringVar(&flags.query, "query", "", "read-only SQL query (must begin with SELECT or WITH)")
	f.StringVar(&flags.out, "out", "", "output file path; format is chosen by extension (.csv, .parquet)")
	f.DurationVar(&flags.connectTimeout, "connect-timeout", 10*time.Second, "connection timeout")
	f.DurationVar(&flags.queryTimeout, "query-timeout", 0, "query timeout (0 = none)")
	f.IntVar(&flags.batchSize, "batch-size", 50000, "rows per batch")
	f.IntVar(&flags.rowLimit, "row-limit", 0, "stop after this many rows (0 = no limit)")
	f.BoolVar(&flags.dryRun, "dry-run", false, "fetch one row, run it through the pipeline, and print a diff table instead of writing output")
	f.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	f.BoolVar(&flags.listFakers, "list-fakers", false, "list the registered faker datasets and methods, then exit")

	f.StringArrayVar(&flags.fakeMappings, "fake", nil, "COLUMN:spec faker mapping (repeatable)")
	f.StringArrayVar(&flags.nullColumns, "null", nil, "column to force to null (repeatable)")
	f.StringArrayVar(&flags.formatMappings, "format", nil, "COLUMN:template format mapping (repeatable)")
	f.Int64Var(&flags.seed, "seed", 0, "faker random seed (deterministic output when set)")
	f.StringVar(&flags.locale, "locale", "en", "faker locale")

	f.StringVar(&flags.csvDelimiter, "csv-delimiter", ",", "CSV field delimiter")
	f.BoolVar(&flags.csvNoHeader, "csv-no-header", false, "omit the CSV header row")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return qerrors.New(qerrors.Config, "cli.parseFlags", err)
	})

	return cmd
}

func run(ctx context.Context, flags *cliFlags) error {
	log := logger.New("qdump", version)
	log.SetDebug(flags.debug)

	if flags.listFakers {
		return printFakerCatalog(flags.locale)
	}

	if flags.conn == "" {
		flags.conn = connectionFromEnv(flags.provider)
	}
	if flags.query == "" {
		return qerrors.New(qerrors.Config, "cli.run", fmt.Errorf("--query is required"))
	}
	if flags.out == "" {
		return qerrors.New(qerrors.Config, "cli.run", fmt.Errorf("--out is required"))
	}

	opts := options.NewRegistry()
	options.Bind(opts, "dump", options.DumpOptions{
		Provider:         flags.provider,
		ConnectionString: flags.conn,
		Query:            flags.query,
		OutputPath:       flags.out,
		ConnectTimeout:   flags.connectTimeout,
		QueryTimeout:     flags.queryTimeout,
		BatchSize:        flags.batchSize,
		RowLimit:         flags.rowLimit,
		DryRun:           flags.dryRun,
		Debug:            flags.debug,
	})

	var transformerNames []string
	if len(flags.fakeMappings) > 0 || len(flags.nullColumns) > 0 {
		fakeOpts := fake.Options{Mappings: flags.fakeMappings, NullColumns: flags.nullColumns, Locale: flags.locale}
		if flags.seedSet {
			fakeOpts.Seed = &flags.seed
		}
		options.Bind(opts, fake.ProviderName, fakeOpts)
		transformerNames = append(transformerNames, fake.ProviderName)
	}
	if len(flags.formatMappings) > 0 {
		options.Bind(opts, format.ProviderName, format.Options{Mappings: flags.formatMappings})
		transformerNames = append(transformerNames, format.ProviderName)
	}

	header := !flags.csvNoHeader
	delimiter := ','
	if len(flags.csvDelimiter) > 0 {
		delimiter = rune(flags.csvDelimiter[0])
	}
	options.Bind(opts, csvwriter.ProviderName, csvwriter.Options{Delimiter: delimiter, Header: &header})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	handleSignals(ctx, cancel, log)

	svc := &export.Service{
		Opts:             mustGetDumpOptions(opts),
		Options:          opts,
		ReaderSet:        reader.Registry,
		WriterSet:        writer.Registry,
		TransformSet:     transform.Registry,
		TransformerNames: transformerNames,
		Log:              log,
		Progress:         progress.New(),
		Out:              os.Stdout,
	}

	if err := svc.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return qerrors.Wrap(qerrors.CancelledErr, "cli.run", ctx.Err())
		}
		return err
	}

	snap := svc.Progress.Snapshot()
	usage := service.Snapshot()
	log.Debugf("done: rows_written=%d bytes_written=%d memory_bytes=%d cpu_seconds=%.2f",
		snap.RowsWritten, snap.BytesWritten, usage.MemoryBytes, usage.CPUSeconds)
	return nil
}

func mustGetDumpOptions(opts *options.Registry) options.DumpOptions {
	v, _ := options.Get[options.DumpOptions](opts, "dump")
	return v
}

// connectionFromEnv reads the provider's declared environment variable
// fallback (spec.md §6) when --conn is empty.
func connectionFromEnv(provider string) string {
	for _, name := range reader.Registry.ListNames() {
		d, err := reader.Registry.Get(name)
		if err != nil || d.EnvVar == "" {
			continue
		}
		if provider != "auto" && provider != "" && provider != name {
			continue
		}
		if v := os.Getenv(d.EnvVar); v != "" {
			return v
		}
	}
	return ""
}

func printFakerCatalog(locale string) error {
	reg, err := fake.NewRegistry(locale)
	if err != nil {
		return qerrors.Wrap(qerrors.Config, "cli.printFakerCatalog", err)
	}
	for dataset, methods := range reg.Datasets() {
		for _, m := range methods {
			fmt.Printf("%s.%s\n", dataset, m)
		}
	}
	return nil
}

// handleSignals cancels ctx on SIGINT/SIGTERM (spec.md §5, exit code 130).
func handleSignals(ctx context.Context, cancel context.CancelFunc, log *logger.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Info("received interrupt, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()
}
