package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/stratalake/bucket-indexer/internal/config"
	"github.com/stratalake/bucket-indexer/internal/pkg/retry"
)

// Elastic is a bulk client for an Elasticsearch-compatible endpoint.
type Elastic struct {
	endpoint   string
	username   string
	password   string
	httpClient retry.HTTPDoer
}

// NewElastic creates a bulk client from search configuration. Requests run
// under the shared backoff policy, so throttled (429) and unavailable (5xx)
// responses are replayed.
func NewElastic(cfg config.SearchConfig, policy retry.Policy) *Elastic {
	return &Elastic{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		username: cfg.Username,
		password: cfg.Password,
		httpClient: retry.NewClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, policy),
	}
}

// Bulk sends the actions as one NDJSON bulk request and parses per-item
// results. A non-2xx response or transport failure fails the whole call;
// individual rejected documents come back in BulkResult.Failures.
func (e *Elastic) Bulk(ctx context.Context, actions []Action) (*BulkResult, error) {
	if len(actions) == 0 {
		return &BulkResult{}, nil
	}

	body, err := encodeBulk(actions)
	if err != nil {
		return nil, fmt.Errorf("encoding bulk request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/_bulk", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	if e.username != "" {
		req.SetBasicAuth(e.username, e.password)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bulk API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return decodeBulk(respBody)
}

// encodeBulk writes the action metadata line and, for index ops, the document
// line, in queue order.
func encodeBulk(actions []Action) ([]byte, error) {
	var buf bytes.Buffer
	for _, a := range actions {
		meta := map[string]map[string]string{
			string(a.Op): {"_index": a.Index, "_id": a.DocID},
		}
		line, err := json.Marshal(meta)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
		if a.Op == OpIndex {
			buf.Write(a.Body)
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), nil
}

type bulkItem struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

type bulkResponse struct {
	Took   int                   `json:"took"`
	Errors bool                  `json:"errors"`
	Items  []map[string]bulkItem `json:"items"`
}

func decodeBulk(body []byte) (*BulkResult, error) {
	var parsed bulkResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding bulk response: %w", err)
	}

	result := &BulkResult{Took: parsed.Took}
	if !parsed.Errors {
		return result, nil
	}
	for _, item := range parsed.Items {
		// each item is keyed by its op: {"index": {...}} or {"delete": {...}}
		for _, detail := range item {
			if detail.Error == nil {
				continue
			}
			reason := detail.Error.Reason
			if reason == "" {
				reason = detail.Error.Type
			}
			result.Failures = append(result.Failures, ItemFailure{
				DocID:  detail.ID,
				Status: detail.Status,
				Reason: reason,
			})
		}
	}
	return result, nil
}
