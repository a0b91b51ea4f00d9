package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/stratalake/bucket-indexer/internal/objstore"
)

// decodeParquet reads the full object and renders column names plus a row
// preview. Decode failures are returned to the caller; a file that claims to
// be columnar but does not parse is worth surfacing.
func decodeParquet(e *Extractor, ctx context.Context, ref objstore.Ref, inferred string, r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading s3://%s/%s: %w", ref.Bucket, ref.Key, err)
	}
	return parquetText(ctx, raw, int64(e.lineLimit), e.skipRowsExts[inferred])
}

// parquetText renders the column names joined with commas, a newline, and a
// JSON preview of the first record batch. skipLeading drops the first row for
// producers that write a header-like leading row into the data.
func parquetText(ctx context.Context, raw []byte, batchSize int64, skipLeading bool) (string, error) {
	if batchSize <= 0 {
		batchSize = 128
	}

	rdr, err := file.NewParquetReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("opening parquet: %w", err)
	}
	defer rdr.Close()

	arrowRdr, err := pqarrow.NewFileReader(rdr,
		pqarrow.ArrowReadProperties{BatchSize: batchSize}, memory.DefaultAllocator)
	if err != nil {
		return "", fmt.Errorf("reading parquet metadata: %w", err)
	}

	schema, err := arrowRdr.Schema()
	if err != nil {
		return "", fmt.Errorf("resolving parquet schema: %w", err)
	}
	names := make([]string, len(schema.Fields()))
	for i, field := range schema.Fields() {
		names[i] = field.Name
	}

	records, err := arrowRdr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return "", fmt.Errorf("reading parquet records: %w", err)
	}
	defer records.Release()

	var preview bytes.Buffer
	if records.Next() {
		rec := records.Record()
		if skipLeading && rec.NumRows() > 0 {
			sliced := rec.NewSlice(1, rec.NumRows())
			defer sliced.Release()
			rec = sliced
		}
		if err := array.RecordToJSON(rec, &preview); err != nil {
			return "", fmt.Errorf("rendering parquet preview: %w", err)
		}
	}
	if err := records.Err(); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading parquet records: %w", err)
	}

	// Column names alone are enough to make a schema searchable; the full
	// type information would bloat every document.
	return strings.Join(names, ",") + "\n" + preview.String(), nil
}
