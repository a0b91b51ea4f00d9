package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// Bleve is an embedded backend for single-node deployments and hermetic
// tests. All logical indexes share one bleve index; action ids are namespaced
// by index name.
type Bleve struct {
	mu    sync.Mutex
	index bleve.Index
	path  string
}

// NewBleve opens (or creates) an embedded index at path. An empty path gives
// an in-memory index.
func NewBleve(path string) (*Bleve, error) {
	mapping := bleve.NewIndexMapping()

	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(mapping)
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, mapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("opening embedded index: %w", err)
	}
	return &Bleve{index: idx, path: path}, nil
}

// Bulk applies the actions as one bleve batch. Documents that fail to decode
// or index are reported as item failures, mirroring the HTTP backend.
func (b *Bleve) Bulk(_ context.Context, actions []Action) (*BulkResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	batch := b.index.NewBatch()
	result := &BulkResult{}
	for _, a := range actions {
		id := a.Index + "/" + a.DocID
		switch a.Op {
		case OpDelete:
			batch.Delete(id)
		case OpIndex:
			var doc map[string]interface{}
			if err := json.Unmarshal(a.Body, &doc); err != nil {
				result.Failures = append(result.Failures, ItemFailure{
					DocID: a.DocID, Status: http.StatusBadRequest, Reason: err.Error(),
				})
				continue
			}
			if err := batch.Index(id, doc); err != nil {
				result.Failures = append(result.Failures, ItemFailure{
					DocID: a.DocID, Status: http.StatusBadRequest, Reason: err.Error(),
				})
			}
		default:
			result.Failures = append(result.Failures, ItemFailure{
				DocID: a.DocID, Status: http.StatusBadRequest, Reason: fmt.Sprintf("unknown op %q", a.Op),
			})
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return nil, fmt.Errorf("applying batch: %w", err)
	}
	return result, nil
}

// DocCount returns the number of live documents across all logical indexes.
func (b *Bleve) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close releases the underlying index.
func (b *Bleve) Close() error {
	return b.index.Close()
}

var _ Backend = (*Bleve)(nil)
var _ Backend = (*Elastic)(nil)
