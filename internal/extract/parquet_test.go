package extract

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratalake/bucket-indexer/internal/objstore"
)

// parquetBytes writes a two-row id/name table to parquet in memory.
func parquetBytes(t *testing.T) []byte {
	t.Helper()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2}, nil)
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"ada", "grace"}, nil)
	rec := b.NewRecord()
	defer rec.Release()

	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	var buf bytes.Buffer
	require.NoError(t, pqarrow.WriteTable(tbl, &buf, tbl.NumRows(),
		parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()))
	return buf.Bytes()
}

func TestParquetSchemaAndRowPreview(t *testing.T) {
	body := parquetBytes(t)
	store := &fakeStore{body: body}
	e := New(store, testConfig())

	text, err := e.Contents(context.Background(), objstore.Ref{Bucket: "b", Key: "events.parquet"}, ".parquet", int64(len(body)))
	require.NoError(t, err)

	lines := strings.SplitN(text, "\n", 2)
	require.Len(t, lines, 2)
	assert.Equal(t, "id,name", lines[0], "column names come first, comma joined")
	assert.Contains(t, lines[1], `"name":"ada"`)
	assert.Contains(t, lines[1], `"name":"grace"`)
	assert.Contains(t, lines[1], `"id":1`)

	require.Len(t, store.calls, 1)
	assert.Equal(t, int64(0), store.calls[0].limit, "columnar objects are fetched in full")
}

func TestParquetSkipRowsDropsLeadingRow(t *testing.T) {
	body := parquetBytes(t)
	store := &fakeStore{body: body}
	cfg := testConfig()
	cfg.SkipRowsExts = []string{".parquet"}
	e := New(store, cfg)

	text, err := e.Contents(context.Background(), objstore.Ref{Bucket: "b", Key: "events.parquet"}, ".parquet", int64(len(body)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "id,name\n"))
	assert.NotContains(t, text, "ada", "the leading row is dropped")
	assert.Contains(t, text, "grace")
}
