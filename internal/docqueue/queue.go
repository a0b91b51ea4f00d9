package docqueue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/stratalake/bucket-indexer/internal/event"
	"github.com/stratalake/bucket-indexer/internal/pkg/logger"
	"github.com/stratalake/bucket-indexer/internal/pkg/textutil"
	"github.com/stratalake/bucket-indexer/internal/search"
)

// Rough per-action overhead for the bulk metadata line.
const actionOverheadBytes = 64

// Queue buffers bulk actions for one notification batch and flushes them to
// the search backend. A Queue belongs to a single batch and is not safe for
// concurrent use.
type Queue struct {
	backend      search.Backend
	contentBytes int
	chunkBytes   int64

	actions []search.Action
	pending int64

	// Stats (atomic counters)
	totalIndexed  int64
	totalDeleted  int64
	totalSkipped  int64
	totalFlushes  int64
	totalFailures int64
}

// New creates a queue writing to backend. contentBytes bounds each document's
// text; chunkBytes triggers an automatic flush once the buffered estimate
// crosses it.
func New(backend search.Backend, contentBytes int, chunkBytes int64) *Queue {
	return &Queue{
		backend:      backend,
		contentBytes: contentBytes,
		chunkBytes:   chunkBytes,
	}
}

// Append buffers one document, trimming its text to the configured ceiling.
// Created-class events become index actions and removed-class events become
// delete actions; anything else is logged and dropped. Crossing the chunk
// threshold flushes the buffer before returning.
func (q *Queue) Append(ctx context.Context, doc Document) error {
	if doc.Bucket == "" || doc.Key == "" {
		return fmt.Errorf("append: document missing bucket or key (bucket=%q key=%q)", doc.Bucket, doc.Key)
	}
	doc.Text = textutil.TrimToBytes(doc.Text, q.contentBytes)

	var action search.Action
	switch {
	case strings.HasPrefix(doc.EventName, event.PrefixCreated):
		body, err := doc.Body()
		if err != nil {
			return fmt.Errorf("append: serializing document %s: %w", doc.ID(), err)
		}
		action = search.Action{Op: search.OpIndex, Index: doc.IndexName(), DocID: doc.ID(), Body: body}
		atomic.AddInt64(&q.totalIndexed, 1)
	case strings.HasPrefix(doc.EventName, event.PrefixRemoved):
		action = search.Action{Op: search.OpDelete, Index: doc.IndexName(), DocID: doc.ID()}
		atomic.AddInt64(&q.totalDeleted, 1)
	default:
		logger.Warn("skipping document with unexpected event type",
			"event", doc.EventName,
			"bucket", doc.Bucket,
			"key", doc.Key)
		atomic.AddInt64(&q.totalSkipped, 1)
		return nil
	}

	q.actions = append(q.actions, action)
	q.pending += int64(len(action.Body)) + actionOverheadBytes

	if q.pending >= q.chunkBytes {
		log.Printf("[DocQueue] Buffer reached %d bytes, flushing early", q.pending)
		return q.Flush(ctx)
	}
	return nil
}

// Flush sends the buffered actions in one bulk call and clears the buffer.
// Per-item failures are logged and counted but do not fail the flush. Calling
// Flush with an empty buffer is a no-op.
func (q *Queue) Flush(ctx context.Context) error {
	if len(q.actions) == 0 {
		return nil
	}

	count := len(q.actions)
	start := time.Now()
	result, err := q.backend.Bulk(ctx, q.actions)
	if err != nil {
		return fmt.Errorf("flushing %d actions: %w", count, err)
	}

	for _, f := range result.Failures {
		logger.Warn("bulk item failed",
			"doc_id", f.DocID,
			"status", f.Status,
			"reason", f.Reason)
	}
	atomic.AddInt64(&q.totalFlushes, 1)
	atomic.AddInt64(&q.totalFailures, int64(len(result.Failures)))

	log.Printf("[DocQueue] Flushed %d actions (%d bytes) in %v, %d item failures",
		count, q.pending, time.Since(start).Round(time.Millisecond), len(result.Failures))

	q.actions = nil
	q.pending = 0
	return nil
}

// Len returns the number of buffered actions.
func (q *Queue) Len() int {
	return len(q.actions)
}

// PendingBytes returns the running size estimate of the buffer.
func (q *Queue) PendingBytes() int64 {
	return q.pending
}

// Stats returns cumulative queue statistics.
func (q *Queue) Stats() map[string]int64 {
	return map[string]int64{
		"indexed":       atomic.LoadInt64(&q.totalIndexed),
		"deleted":       atomic.LoadInt64(&q.totalDeleted),
		"skipped":       atomic.LoadInt64(&q.totalSkipped),
		"flushes":       atomic.LoadInt64(&q.totalFlushes),
		"item_failures": atomic.LoadInt64(&q.totalFailures),
	}
}
