// Package extract turns object bytes into bounded index text. Dispatch is a
// strategy table keyed by the object's inferred extension; each entry declares
// how the object is fetched (full body or ranged preview) and how the bytes
// decode to text. Adding a format is one table entry plus a decoder.
package extract

import (
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/stratalake/bucket-indexer/internal/config"
	"github.com/stratalake/bucket-indexer/internal/event"
	"github.com/stratalake/bucket-indexer/internal/objstore"
	"github.com/stratalake/bucket-indexer/internal/pkg/logger"
	"github.com/stratalake/bucket-indexer/internal/pkg/sysmem"
	"github.com/stratalake/bucket-indexer/internal/pkg/textutil"
)

// Fetcher is the slice of the storage client the extractor needs.
type Fetcher interface {
	Open(ctx context.Context, ref objstore.Ref, size, limit int64) (io.ReadCloser, error)
}

var _ Fetcher = (*objstore.Store)(nil)

// Extractor produces bounded index text for the configured deep-index
// formats.
type Extractor struct {
	store        Fetcher
	byteLimit    int
	lineLimit    int
	contentExts  map[string]bool
	skipRowsExts map[string]bool
	memoryBudget int64
}

// New builds an extractor over the given fetcher and indexing limits.
func New(store Fetcher, cfg config.IndexingConfig) *Extractor {
	return &Extractor{
		store:        store,
		byteLimit:    cfg.ContentBytes,
		lineLimit:    cfg.PreviewLines,
		contentExts:  cfg.ContentExtSet(),
		skipRowsExts: cfg.SkipRowsExtSet(),
		memoryBudget: cfg.MemoryBudgetBytes,
	}
}

// strategy binds a format to its fetch mode and decoder.
type strategy struct {
	// fullBody fetches the entire object instead of a ranged preview.
	// Structured formats cannot be parsed from a byte prefix.
	fullBody bool

	// memoryGuard skips extraction for objects that would not fit in
	// available memory. The object is still indexed, metadata only.
	memoryGuard bool

	decode func(e *Extractor, ctx context.Context, ref objstore.Ref, inferred string, r io.Reader) (string, error)
}

var strategies = map[string]strategy{
	".ipynb":   {fullBody: true, decode: decodeNotebook},
	".parquet": {fullBody: true, memoryGuard: true, decode: decodeParquet},
}

// plainText is the fallback strategy: a ranged fetch decoded as a bounded
// line preview.
var plainText = strategy{decode: decodeText}

// Contents returns the bounded text for one object, or an empty string for
// formats outside the deep-index set. Storage failures and undecodable
// columnar data are returned as errors for the caller to classify; malformed
// notebooks and invalid character encodings are logged and yield empty text,
// so the object is still indexed.
func (e *Extractor) Contents(ctx context.Context, ref objstore.Ref, ext string, size int64) (string, error) {
	inner, compression := event.SplitCompression(ext)
	inferred := event.Infer(ref.Key, inner)
	if !e.contentExts[inferred] {
		return "", nil
	}

	st, ok := strategies[inferred]
	if !ok {
		st = plainText
	}

	if st.memoryGuard {
		if avail := sysmem.Available(e.memoryBudget); size >= avail {
			logger.Warn("object too large to deserialize, indexing metadata only",
				"bucket", ref.Bucket,
				"key", ref.Key,
				"size", size,
				"available", avail)
			return "", nil
		}
	}

	var limit int64
	if !st.fullBody {
		limit = int64(e.byteLimit)
	}
	body, err := e.store.Open(ctx, ref, size, limit)
	if err != nil {
		return "", err
	}
	defer body.Close()

	r := io.Reader(body)
	if compression == "gz" {
		gz, err := gzip.NewReader(body)
		if err != nil {
			return "", fmt.Errorf("opening gzip stream s3://%s/%s: %w", ref.Bucket, ref.Key, err)
		}
		defer gz.Close()
		r = gz
	}

	text, err := st.decode(e, ctx, ref, inferred, r)
	if err != nil {
		return "", err
	}
	return textutil.TrimToBytes(text, e.byteLimit), nil
}
