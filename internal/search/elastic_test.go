package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratalake/bucket-indexer/internal/pkg/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		Multiplier:  time.Microsecond,
		MinDelay:    time.Microsecond,
		MaxDelay:    time.Millisecond,
	}
}

func newTestElastic(server *httptest.Server) *Elastic {
	return &Elastic{
		endpoint:   server.URL,
		username:   "indexer",
		password:   "secret",
		httpClient: retry.NewClient(server.Client(), testPolicy()),
	}
}

func sampleActions() []Action {
	return []Action{
		{Op: OpIndex, Index: "example-bucket", DocID: "a.txt:v1", Body: json.RawMessage(`{"key":"a.txt","content":"hello"}`)},
		{Op: OpDelete, Index: "example-bucket", DocID: "b.txt:v2"},
	}
}

func TestBulkRequestShape(t *testing.T) {
	var gotBody string
	var gotPath, gotContentType string
	var gotUser, gotPass string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotUser, gotPass, _ = r.BasicAuth()
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"took": 12, "errors": false, "items": []}`))
	}))
	defer server.Close()

	result, err := newTestElastic(server).Bulk(context.Background(), sampleActions())
	require.NoError(t, err)
	assert.Equal(t, 12, result.Took)
	assert.Empty(t, result.Failures)

	assert.Equal(t, "/_bulk", gotPath)
	assert.Equal(t, "application/x-ndjson", gotContentType)
	assert.Equal(t, "indexer", gotUser)
	assert.Equal(t, "secret", gotPass)

	lines := strings.Split(strings.TrimRight(gotBody, "\n"), "\n")
	require.Len(t, lines, 3, "index meta + doc + delete meta")

	var indexMeta map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &indexMeta))
	assert.Equal(t, "example-bucket", indexMeta["index"]["_index"])
	assert.Equal(t, "a.txt:v1", indexMeta["index"]["_id"])

	assert.JSONEq(t, `{"key":"a.txt","content":"hello"}`, lines[1])

	var deleteMeta map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &deleteMeta))
	assert.Equal(t, "b.txt:v2", deleteMeta["delete"]["_id"])
}

func TestBulkParsesItemFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"took": 5,
			"errors": true,
			"items": [
				{"index": {"_id": "a.txt:v1", "status": 201}},
				{"index": {"_id": "bad.txt:v9", "status": 400, "error": {"type": "mapper_parsing_exception", "reason": "failed to parse field"}}},
				{"delete": {"_id": "b.txt:v2", "status": 200}}
			]
		}`))
	}))
	defer server.Close()

	result, err := newTestElastic(server).Bulk(context.Background(), sampleActions())
	require.NoError(t, err, "item failures must not fail the call")
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "bad.txt:v9", result.Failures[0].DocID)
	assert.Equal(t, 400, result.Failures[0].Status)
	assert.Equal(t, "failed to parse field", result.Failures[0].Reason)
}

func TestBulkRetriesThrottling(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		// The replay must carry the full NDJSON body again.
		raw, _ := io.ReadAll(r.Body)
		assert.NotEmpty(t, raw)
		w.Write([]byte(`{"took": 1, "errors": false, "items": []}`))
	}))
	defer server.Close()

	_, err := newTestElastic(server).Bulk(context.Background(), sampleActions())
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestBulkServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "malformed"}`))
	}))
	defer server.Close()

	_, err := newTestElastic(server).Bulk(context.Background(), sampleActions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestBulkEmptyActions(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	result, err := newTestElastic(server).Bulk(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Failures)
	assert.False(t, called, "no request for an empty action list")
}
