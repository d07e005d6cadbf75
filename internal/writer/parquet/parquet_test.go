package parquetwriter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	pq "github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"

	"github.com/redbco/qdump/internal/options"
	"github.com/redbco/qdump/internal/row"
	"github.com/redbco/qdump/internal/schema"
	"github.com/redbco/qdump/internal/writer"
)

func TestWriterProducesReadableParquet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.parquet")

	s, err := schema.New([]schema.ColumnInfo{
		{Name: "id", Type: schema.Int64},
		{Name: "name", Type: schema.String, Nullable: true},
		{Name: "active", Type: schema.Boolean},
	})
	require.NoError(t, err)

	w, err := New(context.Background(), path, options.NewRegistry(), nil)
	require.NoError(t, err)
	require.NoError(t, w.Initialize(context.Background(), s))

	batch := row.Batch{
		{int64(1), "Alice", true},
		{int64(2), row.Null, false},
	}
	require.NoError(t, w.WriteBatch(context.Background(), batch))
	require.NoError(t, w.Complete(context.Background()))
	require.Greater(t, w.BytesWritten(), int64(0))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)

	file, err := pq.OpenFile(f, info.Size())
	require.NoError(t, err)
	require.Equal(t, int64(2), file.NumRows())
}

func TestWriterEncodesUUIDAsFixedLenByteArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.parquet")

	s, err := schema.New([]schema.ColumnInfo{
		{Name: "id", Type: schema.UUID},
	})
	require.NoError(t, err)

	w, err := New(context.Background(), path, options.NewRegistry(), nil)
	require.NoError(t, err)
	require.NoError(t, w.Initialize(context.Background(), s))

	id := uuid.New()
	require.NoError(t, w.WriteBatch(context.Background(), row.Batch{{id}}))
	require.NoError(t, w.Complete(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)

	file, err := pq.OpenFile(f, info.Size())
	require.NoError(t, err)
	require.Equal(t, int64(1), file.NumRows())
}

func TestCanHandleMatchesParquetExtension(t *testing.T) {
	d, err := writer.Registry.Get(ProviderName)
	require.NoError(t, err)
	require.True(t, d.CanHandle("dump.parquet"))
	require.False(t, d.CanHandle("dump.csv"))
}
