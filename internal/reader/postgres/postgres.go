// Package postgres implements reader.StreamReader over PostgreSQL,
// grounded on the teacher's pgxpool-based connection and query-scanning
// style (formerly services/anchor/internal/database/postgres/{connection,data}.go)
// adapted from a fixed-table fetch to an arbitrary read-only query stream.
package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redbco/qdump/internal/descriptor"
	"github.com/redbco/qdump/internal/options"
	"github.com/redbco/qdump/internal/qerrors"
	"github.com/redbco/qdump/internal/reader"
	"github.com/redbco/qdump/internal/reader/sqlguard"
	"github.com/redbco/qdump/internal/row"
	"github.com/redbco/qdump/internal/schema"
	"github.com/redbco/qdump/pkg/logger"
)

const ProviderName = "postgres"

// EnvVar is read for the connection string when --conn is empty.
const EnvVar = "QDUMP_POSTGRES_DSN"

// Options carries postgres-specific tuning; currently empty, reserved for
// provider-specific escape hatches (spec.md §9).
type Options struct{}

// Reader implements reader.StreamReader over a pgx connection pool.
type Reader struct {
	dsn            string
	query          string
	connectTimeout time.Duration
	queryTimeout   time.Duration
	log            *logger.Logger

	pool      *pgxpool.Pool
	queryCtx  context.Context
	cancelCtx context.CancelFunc
	rows      pgx.Rows
	schema    schema.Schema
}

// New constructs a Reader. Matches descriptor.Descriptor[reader.StreamReader].New.
func New(ctx context.Context, target string, opts *options.Registry, log *logger.Logger) (reader.StreamReader, error) {
	dumpOpts, _ := options.Get[options.DumpOptions](opts, "dump")
	return &Reader{
		dsn:            target,
		query:          dumpOpts.Query,
		connectTimeout: dumpOpts.ConnectTimeout,
		queryTimeout:   dumpOpts.QueryTimeout,
		log:            log,
	}, nil
}

// CanHandle reports whether target looks like a PostgreSQL DSN.
func CanHandle(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

func (r *Reader) Open(ctx context.Context) error {
	if err := sqlguard.Check(r.query); err != nil {
		return err
	}

	connectCtx := ctx
	if r.connectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, r.connectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.New(connectCtx, r.dsn)
	if err != nil {
		return qerrors.Wrap(qerrors.Connection, "postgres.Open.pgxpool.New", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return qerrors.Wrap(qerrors.Connection, "postgres.Open.Ping", err)
	}

	queryCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.queryTimeout > 0 {
		queryCtx, cancel = context.WithTimeout(ctx, r.queryTimeout)
	}

	rows, err := pool.Query(queryCtx, r.query)
	if err != nil {
		cancel()
		pool.Close()
		return qerrors.Wrap(qerrors.Query, "postgres.Open.Query", err)
	}
	r.queryCtx, r.cancelCtx = queryCtx, cancel

	cols, err := schemaFromFieldDescriptions(rows.FieldDescriptions())
	if err != nil {
		rows.Close()
		pool.Close()
		return qerrors.Wrap(qerrors.SchemaKind, "postgres.Open.schemaFromFieldDescriptions", err)
	}

	r.pool = pool
	r.rows = rows
	r.schema = cols
	return nil
}

func (r *Reader) Columns() schema.Schema { return r.schema }

func (r *Reader) Next(ctx context.Context, batchSize int) (row.Batch, bool, error) {
	var batch row.Batch
	for len(batch) < batchSize {
		if !r.rows.Next() {
			if err := r.rows.Err(); err != nil {
				return nil, false, qerrors.Wrap(qerrors.Connection, "postgres.Next", err)
			}
			break
		}
		values, err := r.rows.Values()
		if err != nil {
			return nil, false, qerrors.Wrap(qerrors.Query, "postgres.Next.Values", err)
		}
		batch = append(batch, rowFromValues(values))

		select {
		case <-ctx.Done():
			return batch, len(batch) > 0, nil
		default:
		}
	}
	if len(batch) == 0 {
		return nil, false, nil
	}
	return batch, true, nil
}

func (r *Reader) Close() error {
	if r.rows != nil {
		r.rows.Close()
		r.rows = nil
	}
	if r.cancelCtx != nil {
		r.cancelCtx()
		r.cancelCtx = nil
	}
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	return nil
}

// rowFromValues converts pgx's decoded Go values into a row.Row, mapping
// nil (SQL NULL) to row.Null.
func rowFromValues(values []interface{}) row.Row {
	out := make(row.Row, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = row.Null
			continue
		}
		out[i] = v
	}
	return out
}

// schemaFromFieldDescriptions maps pgx field descriptions (name + type
// OID) onto the closed LogicalType set.
func schemaFromFieldDescriptions(fields []pgconnFieldDescription) (schema.Schema, error) {
	cols := make([]schema.ColumnInfo, len(fields))
	for i, f := range fields {
		cols[i] = schema.ColumnInfo{
			Name:     string(f.Name),
			Type:     logicalTypeForOID(f.DataTypeOID),
			Nullable: true,
		}
	}
	return schema.New(cols)
}

// pgconnFieldDescription aliases pgconn.FieldDescription for readability
// at the call site.
type pgconnFieldDescription = pgconn.FieldDescription

// logicalTypeForOID maps a PostgreSQL type OID onto the closed
// schema.LogicalType set. Unrecognized OIDs (extension/enum/composite
// types) fall back to string, matching the teacher's habit of treating
// unknown Postgres types as text (data.go's scan-into-interface{} default).
func logicalTypeForOID(oid uint32) schema.LogicalType {
	switch oid {
	case pgtype.BoolOID:
		return schema.Boolean
	case pgtype.Int2OID:
		return schema.Int16
	case pgtype.Int4OID:
		return schema.Int32
	case pgtype.Int8OID:
		return schema.Int64
	case pgtype.Float4OID:
		return schema.Float32
	case pgtype.Float8OID:
		return schema.Float64
	case pgtype.NumericOID:
		return schema.Decimal
	case pgtype.DateOID:
		return schema.Date
	case pgtype.TimeOID:
		return schema.Time
	case pgtype.TimestampOID, pgtype.TimestamptzOID:
		return schema.Timestamp
	case pgtype.UUIDOID:
		return schema.UUID
	case pgtype.JSONOID, pgtype.JSONBOID:
		return schema.JSON
	case pgtype.ByteaOID:
		return schema.Bytes
	default:
		return schema.String
	}
}

func init() {
	reader.Registry.Register(descriptor.Descriptor[reader.StreamReader]{
		Name:          ProviderName,
		OptionsPrefix: ProviderName,
		EnvVar:        EnvVar,
		CanHandle:     CanHandle,
		New:           New,
	})
}
