package main

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratalake/bucket-indexer/internal/event"
)

func TestMakeRecordsEncodesKeys(t *testing.T) {
	records := makeRecords("example-bucket", []s3types.Object{
		{Key: aws.String("reports/q1 summary.csv"), Size: aws.Int64(2048), ETag: aws.String(`"6805f2cf"`)},
	})

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "ObjectCreated:Put", rec.EventName)
	assert.Equal(t, "example-bucket", rec.S3.Bucket.Name)
	assert.Equal(t, "reports%2Fq1+summary.csv", rec.S3.Object.Key)
	assert.Equal(t, int64(2048), rec.S3.Object.Size)
	assert.Equal(t, "6805f2cf", rec.S3.Object.ETag, "quotes are stripped from listing etags")
}

func TestMakeBodyRoundTripsThroughDecoder(t *testing.T) {
	records := makeRecords("example-bucket", []s3types.Object{
		{Key: aws.String("data/file one.txt"), Size: aws.Int64(7), ETag: aws.String(`"abc"`)},
	})
	body, err := makeBody(records)
	require.NoError(t, err)

	decoded, err := event.DecodeBody([]byte(body))
	require.NoError(t, err)
	require.Len(t, decoded, 1)

	raw, ok := event.Normalize(decoded[0])
	require.True(t, ok)
	assert.Equal(t, "data/file one.txt", raw.Key, "the pipeline decodes the synthetic key back to the original")
	assert.Equal(t, "abc", raw.ETag)
	assert.True(t, raw.IsCreated())
}
