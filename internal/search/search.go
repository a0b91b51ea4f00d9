// Package search defines the index backend boundary: ordered bulk writes with
// per-item results. The HTTP backend targets an Elasticsearch-compatible bulk
// endpoint; the embedded backend runs bleve in-process.
package search

import (
	"context"
	"encoding/json"
)

// Op is a bulk operation kind.
type Op string

const (
	OpIndex  Op = "index"
	OpDelete Op = "delete"
)

// Action is one entry in a bulk write. Body is nil for deletes.
type Action struct {
	Op    Op
	Index string
	DocID string
	Body  json.RawMessage
}

// ItemFailure describes a single document rejected inside an otherwise
// successful bulk call. Item failures are logged and counted, never fatal.
type ItemFailure struct {
	DocID  string
	Status int
	Reason string
}

// BulkResult summarizes one bulk call.
type BulkResult struct {
	Took     int
	Failures []ItemFailure
}

// Backend executes bulk writes against a search index.
type Backend interface {
	Bulk(ctx context.Context, actions []Action) (*BulkResult, error)
}
