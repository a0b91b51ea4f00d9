package objstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/stratalake/bucket-indexer/internal/pkg/retry"
)

// SelectJSONLines runs a storage-side select over a JSON-lines object and
// returns the concatenated record payload. Callers bound the result with
// LIMIT in the expression; the whole payload is buffered.
func (s *Store) SelectJSONLines(ctx context.Context, bucket, key, expression string) ([]byte, error) {
	input := &s3.SelectObjectContentInput{
		Bucket:         aws.String(bucket),
		Key:            aws.String(key),
		Expression:     aws.String(expression),
		ExpressionType: types.ExpressionTypeSql,
		InputSerialization: &types.InputSerialization{
			JSON: &types.JSONInput{Type: types.JSONTypeLines},
		},
		OutputSerialization: &types.OutputSerialization{
			JSON: &types.JSONOutput{RecordDelimiter: aws.String("\n")},
		},
	}

	var payload []byte
	err := retry.Do(ctx, s.policy, "select "+key, func() error {
		out, callErr := s.api.SelectObjectContent(ctx, input)
		if callErr != nil {
			return callErr
		}
		stream := out.GetStream()
		defer stream.Close()

		payload = payload[:0]
		for ev := range stream.Events() {
			if records, ok := ev.(*types.SelectObjectContentEventStreamMemberRecords); ok {
				payload = append(payload, records.Value.Payload...)
			}
		}
		return stream.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select s3://%s/%s: %w", bucket, key, err)
	}
	return payload, nil
}
