// Package mysql implements reader.StreamReader over MySQL/MariaDB via
// database/sql and github.com/go-sql-driver/mysql, mirroring the
// connection-then-query-then-scan shape of the postgres reader
// (internal/reader/postgres/postgres.go), adapted to database/sql's
// *sql.Rows and *sql.ColumnType rather than pgx's richer field
// descriptions.
package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/redbco/qdump/internal/descriptor"
	"github.com/redbco/qdump/internal/options"
	"github.com/redbco/qdump/internal/qerrors"
	"github.com/redbco/qdump/internal/reader"
	"github.com/redbco/qdump/internal/reader/sqlguard"
	"github.com/redbco/qdump/internal/row"
	"github.com/redbco/qdump/internal/schema"
	"github.com/redbco/qdump/pkg/logger"
)

const ProviderName = "mysql"

// EnvVar is read for the connection string when --conn is empty.
const EnvVar = "QDUMP_MYSQL_DSN"

// Options carries mysql-specific tuning; currently empty, reserved for
// provider-specific escape hatches (spec.md §9).
type Options struct{}

// Reader implements reader.StreamReader over database/sql with the
// go-sql-driver/mysql driver.
type Reader struct {
	dsn            string
	query          string
	connectTimeout time.Duration
	queryTimeout   time.Duration
	log            *logger.Logger

	db        *sql.DB
	queryCtx  context.Context
	cancelCtx context.CancelFunc
	rows      *sql.Rows
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

// CanHandle reports whether target looks like a MySQL DSN, either the
// go-sql-driver "user:pass@tcp(host:port)/db" form or a "mysql://" URL.
func CanHandle(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "mysql://") || strings.Contains(target, "@tcp(")
}

func (r *Reader) Open(ctx context.Context) error {
	if err := sqlguard.Check(r.query); err != nil {
		return err
	}

	dsn := strings.TrimPrefix(r.dsn, "mysql://")
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return qerrors.Wrap(qerrors.Connection, "mysql.Open.sql.Open", err)
	}

	connectCtx := ctx
	if r.connectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, r.connectTimeout)
		defer cancel()
	}
	if err := db.PingContext(connectCtx); err != nil {
		db.Close()
		return qerrors.Wrap(qerrors.Connection, "mysql.Open.Ping", err)
	}

	queryCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.queryTimeout > 0 {
		queryCtx, cancel = context.WithTimeout(ctx, r.queryTimeout)
	}

	rows, err := db.QueryContext(queryCtx, r.query)
	if err != nil {
		cancel()
		db.Close()
		return qerrors.Wrap(qerrors.Query, "mysql.Open.Query", err)
	}

	cols, err := schemaFromColumnTypes(rows)
	if err != nil {
		rows.Close()
		cancel()
		db.Close()
		return qerrors.Wrap(qerrors.SchemaKind, "mysql.Open.schemaFromColumnTypes", err)
	}

	r.db = db
	r.queryCtx, r.cancelCtx = queryCtx, cancel
	r.rows = rows
	r.schema = cols
	return nil
}

func (r *Reader) Columns() schema.Schema { return r.schema }

func (r *Reader) Next(ctx context.Context, batchSize int) (row.Batch, bool, error) {
	width := r.schema.Len()
	var batch row.Batch
	for len(batch) < batchSize {
		if !r.rows.Next() {
			if err := r.rows.Err(); err != nil {
				return nil, false, qerrors.Wrap(qerrors.Connection, "mysql.Next", err)
			}
			break
		}
		values := make([]interface{}, width)
		ptrs := make([]interface{}, width)
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := r.rows.Scan(ptrs...); err != nil {
			return nil, false, qerrors.Wrap(qerrors.Query, "mysql.Next.Scan", err)
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
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
	return nil
}

func rowFromValues(values []interface{}) row.Row {
	out := make(row.Row, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = row.Null
			continue
		}
		if b, ok := v.([]byte); ok {
			out[i] = string(b)
			continue
		}
		out[i] = v
	}
	return out
}

// schemaFromColumnTypes maps database/sql's driver-reported column types
// onto the closed LogicalType set. database/sql exposes far less type
// fidelity than pgx (database type names are driver-specific strings
// rather than stable OIDs), so resolution goes through the MySQL type
// name reported by ColumnType.DatabaseTypeName.
func schemaFromColumnTypes(rows *sql.Rows) (schema.Schema, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return schema.Schema{}, err
	}
	cols := make([]schema.ColumnInfo, len(types))
	for i, ct := range types {
		nullable, _ := ct.Nullable()
		cols[i] = schema.ColumnInfo{
			Name:     ct.Name(),
			Type:     logicalTypeForMySQLType(ct.DatabaseTypeName()),
			Nullable: nullable,
		}
	}
	return schema.New(cols)
}

// logicalTypeForMySQLType maps a MySQL DatabaseTypeName (as reported by
// go-sql-driver/mysql) onto the closed schema.LogicalType set. Unknown
// type names fall back to string.
func logicalTypeForMySQLType(name string) schema.LogicalType {
	switch strings.ToUpper(name) {
	case "TINYINT":
		return schema.Int8
	case "SMALLINT":
		return schema.Int16
	case "MEDIUMINT", "INT", "INTEGER":
		return schema.Int32
	case "BIGINT":
		return schema.Int64
	case "UNSIGNED TINYINT":
		return schema.Uint8
	case "UNSIGNED SMALLINT":
		return schema.Uint16
	case "UNSIGNED INT", "UNSIGNED MEDIUMINT":
		return schema.Uint32
	case "UNSIGNED BIGINT":
		return schema.Uint64
	case "FLOAT":
		return schema.Float32
	case "DOUBLE":
		return schema.Float64
	case "DECIMAL":
		return schema.Decimal
	case "TINYINT(1)", "BOOL", "BOOLEAN":
		return schema.Boolean
	case "DATE":
		return schema.Date
	case "TIME":
		return schema.Time
	case "DATETIME", "TIMESTAMP":
		return schema.Timestamp
	case "JSON":
		return schema.JSON
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BINARY", "VARBINARY":
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
