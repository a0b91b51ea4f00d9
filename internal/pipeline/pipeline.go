// Package pipeline drives one notification message through normalization,
// metadata resolution, manifest detection, content extraction, and the bulk
// flush. Each message gets its own document queue; the flush is the terminal
// action for the message.
package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/stratalake/bucket-indexer/internal/config"
	"github.com/stratalake/bucket-indexer/internal/docqueue"
	"github.com/stratalake/bucket-indexer/internal/event"
	"github.com/stratalake/bucket-indexer/internal/extract"
	"github.com/stratalake/bucket-indexer/internal/manifest"
	"github.com/stratalake/bucket-indexer/internal/metrics"
	"github.com/stratalake/bucket-indexer/internal/objstore"
	"github.com/stratalake/bucket-indexer/internal/pkg/logger"
	"github.com/stratalake/bucket-indexer/internal/search"
)

// Metadata resolves authoritative object metadata.
type Metadata interface {
	Resolve(ctx context.Context, ref objstore.Ref) (objstore.Info, error)
}

// Manifests detects package revision pointers and resolves them.
type Manifests interface {
	Resolve(ctx context.Context, ref objstore.Ref, size int64) (*manifest.Package, error)
}

// Contents extracts bounded index text for an object.
type Contents interface {
	Contents(ctx context.Context, ref objstore.Ref, ext string, size int64) (string, error)
}

var (
	_ Metadata  = (*objstore.Store)(nil)
	_ Manifests = (*manifest.Resolver)(nil)
	_ Contents  = (*extract.Extractor)(nil)
)

// Result summarizes one processed message.
type Result struct {
	Indexed int
	Deleted int
	Skipped int
}

// Pipeline owns the per-message processing loop. It is safe for concurrent
// use: each ProcessBody call builds its own queue and shares only the
// stateless clients.
type Pipeline struct {
	store     Metadata
	manifests Manifests
	contents  Contents
	backend   search.Backend
	metrics   *metrics.IndexerMetrics

	contentBytes int
	chunkBytes   int64

	// Cumulative counters for the stats endpoint.
	totalIndexed  int64
	totalDeleted  int64
	totalSkipped  int64
	totalMessages int64
	totalErrors   int64
}

// New builds a pipeline over the given collaborators. m may be nil when
// metrics are not wanted, as in tests.
func New(store Metadata, manifests Manifests, contents Contents, backend search.Backend,
	cfg config.IndexingConfig, m *metrics.IndexerMetrics) *Pipeline {
	return &Pipeline{
		store:        store,
		manifests:    manifests,
		contents:     contents,
		backend:      backend,
		metrics:      m,
		contentBytes: cfg.ContentBytes,
		chunkBytes:   cfg.ChunkBytes,
	}
}

// ProcessBody handles one queue message body. It decodes the envelope,
// processes every record, flushes the queue once, and then surfaces the most
// recent content-extraction error so the transport redelivers the message.
// The produced documents are not rolled back by that deferred error.
//
// A structurally broken envelope, an exhausted retryable storage error, or a
// failed flush abort the message immediately.
func (p *Pipeline) ProcessBody(ctx context.Context, body []byte) (Result, error) {
	atomic.AddInt64(&p.totalMessages, 1)

	records, err := event.DecodeBody(body)
	if err != nil {
		atomic.AddInt64(&p.totalErrors, 1)
		return Result{}, err
	}
	if records == nil {
		// Connectivity test event.
		return Result{}, nil
	}

	q := docqueue.New(p.backend, p.contentBytes, p.chunkBytes)

	var (
		result Result
		// The most recent content-extraction failure, re-raised after the
		// flush. Earlier failures in the same message are visible only in
		// logs and the error counter.
		contentErr error
	)
	for _, rec := range records {
		raw, ok := event.Normalize(rec)
		if !ok {
			result.Skipped++
			p.count("skipped")
			continue
		}

		ref := objstore.Ref{
			Bucket:    raw.Bucket,
			Key:       raw.Key,
			VersionID: raw.VersionID,
			ETag:      raw.ETag,
		}
		ext := event.Ext(raw.Key)

		// Deleted objects cannot be headed; synthesize the deletion document
		// directly.
		if raw.IsRemoved() {
			err := q.Append(ctx, docqueue.Document{
				Type:         docqueue.DocObject,
				EventName:    raw.EventName,
				Bucket:       raw.Bucket,
				Key:          raw.Key,
				Ext:          ext,
				ETag:         raw.ETag,
				VersionID:    raw.VersionID,
				LastModified: time.Now().UTC(),
			})
			if err != nil {
				atomic.AddInt64(&p.totalErrors, 1)
				return result, err
			}
			result.Deleted++
			p.count("deleted")
			continue
		}

		info, err := p.store.Resolve(ctx, ref)
		if err != nil {
			if objstore.IsPermanent(err) {
				logger.Warn("object unavailable, skipping record",
					"bucket", raw.Bucket,
					"key", raw.Key,
					"etag", raw.ETag,
					"version_id", raw.VersionID,
					"error", err.Error())
				result.Skipped++
				p.count("skipped")
				continue
			}
			atomic.AddInt64(&p.totalErrors, 1)
			return result, err
		}

		pkg, err := p.manifests.Resolve(ctx, ref, info.Size)
		if err != nil {
			if objstore.IsPermanent(err) {
				logger.Warn("pointer unavailable, skipping record",
					"bucket", raw.Bucket,
					"key", raw.Key,
					"etag", raw.ETag,
					"version_id", raw.VersionID,
					"error", err.Error())
				result.Skipped++
				p.count("skipped")
				continue
			}
			atomic.AddInt64(&p.totalErrors, 1)
			return result, err
		}
		if pkg != nil {
			err := q.Append(ctx, docqueue.Document{
				Type:         docqueue.DocPackage,
				EventName:    raw.EventName,
				Bucket:       raw.Bucket,
				Key:          pkg.ManifestKey,
				Ext:          ext,
				ETag:         raw.ETag,
				LastModified: info.LastModified,
				Handle:       pkg.Handle,
				PackageHash:  pkg.Hash,
				Comment:      pkg.Comment,
				Metadata:     pkg.Metadata,
			})
			if err != nil {
				atomic.AddInt64(&p.totalErrors, 1)
				return result, err
			}
			if p.metrics != nil {
				p.metrics.DocumentsTotal.WithLabelValues("package").Inc()
			}
		}

		text, err := p.contents.Contents(ctx, ref, ext, info.Size)
		if err != nil {
			// The object must still be indexed so aggregate counts stay
			// correct; the error surfaces after the flush.
			text = ""
			contentErr = err
			logger.Error("content extraction failed",
				"bucket", raw.Bucket,
				"key", raw.Key,
				"etag", raw.ETag,
				"version_id", raw.VersionID,
				"error", err.Error())
			if p.metrics != nil {
				p.metrics.ExtractionErrors.Inc()
			}
		}

		err = q.Append(ctx, docqueue.Document{
			Type:         docqueue.DocObject,
			EventName:    raw.EventName,
			Bucket:       raw.Bucket,
			Key:          raw.Key,
			Ext:          ext,
			ETag:         raw.ETag,
			VersionID:    raw.VersionID,
			LastModified: info.LastModified,
			Size:         info.Size,
			Text:         text,
		})
		if err != nil {
			atomic.AddInt64(&p.totalErrors, 1)
			return result, err
		}
		result.Indexed++
		p.count("indexed")
	}

	start := time.Now()
	if err := q.Flush(ctx); err != nil {
		atomic.AddInt64(&p.totalErrors, 1)
		return result, err
	}
	if p.metrics != nil {
		p.metrics.FlushDuration.Observe(time.Since(start).Seconds())
		p.metrics.DocumentsTotal.WithLabelValues("object").Add(float64(result.Indexed + result.Deleted))
		p.metrics.BulkItemFailures.Add(float64(q.Stats()["item_failures"]))
	}

	if contentErr != nil {
		atomic.AddInt64(&p.totalErrors, 1)
		return result, contentErr
	}
	return result, nil
}

func (p *Pipeline) count(outcome string) {
	switch outcome {
	case "indexed":
		atomic.AddInt64(&p.totalIndexed, 1)
	case "deleted":
		atomic.AddInt64(&p.totalDeleted, 1)
	case "skipped":
		atomic.AddInt64(&p.totalSkipped, 1)
	}
	if p.metrics != nil {
		p.metrics.RecordsTotal.WithLabelValues(outcome).Inc()
	}
}

// Stats returns cumulative pipeline counters for the stats endpoint.
func (p *Pipeline) Stats() map[string]int64 {
	return map[string]int64{
		"messages": atomic.LoadInt64(&p.totalMessages),
		"indexed":  atomic.LoadInt64(&p.totalIndexed),
		"deleted":  atomic.LoadInt64(&p.totalDeleted),
		"skipped":  atomic.LoadInt64(&p.totalSkipped),
		"errors":   atomic.LoadInt64(&p.totalErrors),
	}
}
