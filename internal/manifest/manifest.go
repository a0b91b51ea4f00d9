// Package manifest detects package revision pointers among object keys and
// resolves them to indexable package metadata.
//
// A pointer is a tiny object under the pointer prefix whose name is the
// revision's epoch timestamp and whose body is the hash of the manifest it
// points at. The manifest itself is a line-delimited JSON object; its first
// record carries the revision message and user metadata.
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stratalake/bucket-indexer/internal/config"
	"github.com/stratalake/bucket-indexer/internal/objstore"
	"github.com/stratalake/bucket-indexer/internal/pkg/logger"
)

// Store is the slice of the storage client the resolver needs.
type Store interface {
	Open(ctx context.Context, ref objstore.Ref, size, limit int64) (io.ReadCloser, error)
	SelectJSONLines(ctx context.Context, bucket, key, expression string) ([]byte, error)
}

var _ Store = (*objstore.Store)(nil)

// The first manifest record is the only one with a version field, and the
// only one the index needs.
const metaQuery = "SELECT * from S3Object o WHERE o.version IS NOT MISSING LIMIT 1"

// Pointer files are named by revision epoch seconds. Names outside
// 2016-01-01 through 2026-01-01 are tags or garbage, not revisions.
const (
	minPointerTime = 1451631600
	maxPointerTime = 1767250800
)

// Package is what a revision pointer resolves to.
type Package struct {
	ManifestKey string
	Handle      string
	Hash        string
	Comment     string
	Metadata    string
}

// Resolver maps pointer keys to package revisions.
type Resolver struct {
	store          Store
	pointerPrefix  string
	manifestPrefix string
}

// New builds a resolver over the configured package namespace.
func New(store Store, cfg config.ManifestConfig) *Resolver {
	return &Resolver{
		store:          store,
		pointerPrefix:  cfg.PointerPrefix,
		manifestPrefix: cfg.ManifestPrefix,
	}
}

// Resolve returns the package revision the ref's key points at, or nil when
// the key is not a revision pointer or the manifest's metadata cannot be
// queried. Only storage errors reading the pointer itself are returned, so
// the caller can classify them like any other metadata fetch failure.
func (r *Resolver) Resolve(ctx context.Context, ref objstore.Ref, size int64) (*Package, error) {
	handle, ok := r.parsePointer(ref.Bucket, ref.Key)
	if !ok {
		return nil, nil
	}

	hash, err := r.readPointer(ctx, ref, size)
	if err != nil {
		return nil, err
	}
	manifestKey := r.manifestPrefix + hash

	first, err := r.store.SelectJSONLines(ctx, ref.Bucket, manifestKey, metaQuery)
	if err != nil {
		logger.Warn("unable to query manifest metadata",
			"bucket", ref.Bucket,
			"manifest_key", manifestKey,
			"error", err.Error())
		return nil, nil
	}
	first = bytes.TrimSpace(first)
	if len(first) == 0 {
		return nil, nil
	}

	var meta struct {
		Message  interface{}     `json:"message"`
		UserMeta json.RawMessage `json:"user_meta"`
	}
	if err := json.Unmarshal(first, &meta); err != nil {
		logger.Warn("manifest first record is not valid JSON",
			"bucket", ref.Bucket,
			"manifest_key", manifestKey,
			"record", string(first),
			"error", err.Error())
		return nil, nil
	}

	return &Package{
		ManifestKey: manifestKey,
		Handle:      handle,
		Hash:        hash,
		Comment:     commentString(meta.Message),
		Metadata:    metadataString(meta.UserMeta),
	}, nil
}

// parsePointer splits the key into pointer directory and file name and
// decides whether it names a revision.
func (r *Resolver) parsePointer(bucket, key string) (handle string, ok bool) {
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return "", false
	}
	dir, file := key[:i], key[i+1:]
	if !strings.HasPrefix(dir, r.pointerPrefix) {
		return "", false
	}

	ts, err := strconv.ParseInt(file, 10, 64)
	if err != nil {
		// Tags such as "latest" land here routinely.
		logger.Debug("pointer file name is not a revision timestamp",
			"bucket", bucket,
			"key", key)
		return "", false
	}
	if ts < minPointerTime || ts > maxPointerTime {
		logger.Warn("pointer timestamp out of range",
			"bucket", bucket,
			"key", key)
		return "", false
	}
	return dir[len(r.pointerPrefix):], true
}

// readPointer fetches the pointer body, which is the manifest hash.
func (r *Resolver) readPointer(ctx context.Context, ref objstore.Ref, size int64) (string, error) {
	body, err := r.store.Open(ctx, ref, size, 0)
	if err != nil {
		return "", err
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("reading pointer s3://%s/%s: %w", ref.Bucket, ref.Key, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func commentString(message interface{}) string {
	switch m := message.(type) {
	case nil:
		return ""
	case string:
		return m
	default:
		return fmt.Sprintf("%v", m)
	}
}

func metadataString(userMeta json.RawMessage) string {
	if len(userMeta) == 0 || string(userMeta) == "null" {
		return "{}"
	}
	return string(userMeta)
}
