// Package objstore wraps the storage service with version-pinned reads under
// the shared backoff policy. Due to eventual consistency the notification can
// outrun the data, so every read pins the exact version (or etag) the event
// described and retries until the store serves it.
package objstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithymiddleware "github.com/aws/smithy-go/middleware"

	"github.com/stratalake/bucket-indexer/internal/pkg/logger"
	"github.com/stratalake/bucket-indexer/internal/pkg/retry"
)

// S3API is the subset of the storage service the indexer calls, narrowed so
// tests can stub it.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	SelectObjectContent(ctx context.Context, params *s3.SelectObjectContentInput, optFns ...func(*s3.Options)) (*s3.SelectObjectContentOutput, error)
}

// Ref identifies an object, optionally pinned to a version or etag.
type Ref struct {
	Bucket    string
	Key       string
	VersionID string
	ETag      string
}

// Info is the authoritative metadata a head call returns.
type Info struct {
	Size         int64
	LastModified time.Time
	ETag         string
}

// Store executes pinned reads against the object store.
type Store struct {
	api    S3API
	policy retry.Policy
}

// New builds a Store over the given API using the shared backoff policy.
// A zero policy gets the default with storage error classification.
func New(api S3API, policy retry.Policy) *Store {
	if policy.MaxAttempts <= 0 {
		policy = retry.Default()
	}
	if policy.RetryIf == nil {
		policy.RetryIf = IsRetryable
	}
	return &Store{api: api, policy: policy}
}

// NewClient constructs the storage SDK client. The user agent token keeps the
// indexer's own head/get traffic distinguishable in bucket access analytics.
func NewClient(ctx context.Context, region, profile, userAgent string) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	if userAgent != "" {
		opts = append(opts, config.WithAPIOptions([]func(*smithymiddleware.Stack) error{
			awsmiddleware.AddUserAgentKey(userAgent),
		}))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Head fetches object metadata pinned to the ref's version (or etag).
func (s *Store) Head(ctx context.Context, ref Ref) (Info, error) {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	}
	applyPin(ref, &input.VersionId, &input.IfMatch)

	var out *s3.HeadObjectOutput
	err := retry.Do(ctx, s.policy, "head "+ref.Key, func() error {
		var callErr error
		out, callErr = s.api.HeadObject(ctx, input)
		return callErr
	})
	if err != nil {
		return Info{}, fmt.Errorf("head s3://%s/%s: %w", ref.Bucket, ref.Key, err)
	}
	return headInfo(out), nil
}

// Resolve is Head plus the known edge case: buckets that toggled versioning
// respond 403 to their "null" version, and the same head succeeds unpinned.
func (s *Store) Resolve(ctx context.Context, ref Ref) (Info, error) {
	info, err := s.Head(ctx, ref)
	if err != nil && ref.VersionID == NullVersion && StatusOf(err) == http.StatusForbidden {
		logger.Warn("head forbidden for null version, retrying without version qualifier",
			"bucket", ref.Bucket,
			"key", ref.Key,
		)
		unpinned := ref
		unpinned.VersionID = ""
		return s.Head(ctx, unpinned)
	}
	return info, err
}

// Open returns the object body. When size and limit are both positive the
// request is ranged to bytes=0-min(size, limit); empty objects cannot be
// range-requested. The caller owns the returned reader.
func (s *Store) Open(ctx context.Context, ref Ref, size, limit int64) (io.ReadCloser, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	}
	if size > 0 && limit > 0 {
		end := size
		if limit < end {
			end = limit
		}
		input.Range = aws.String(fmt.Sprintf("bytes=0-%d", end))
	}
	applyPin(ref, &input.VersionId, &input.IfMatch)

	var out *s3.GetObjectOutput
	err := retry.Do(ctx, s.policy, "get "+ref.Key, func() error {
		var callErr error
		out, callErr = s.api.GetObject(ctx, input)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", ref.Bucket, ref.Key, err)
	}
	return out.Body, nil
}

func applyPin(ref Ref, versionID, ifMatch **string) {
	if ref.VersionID != "" {
		*versionID = aws.String(ref.VersionID)
	} else if ref.ETag != "" {
		*ifMatch = aws.String(ref.ETag)
	}
}

func headInfo(out *s3.HeadObjectOutput) Info {
	info := Info{}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.LastModified != nil {
		info.LastModified = out.LastModified.UTC()
	}
	if out.ETag != nil {
		info.ETag = *out.ETag
	}
	return info
}
