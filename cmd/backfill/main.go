// Command backfill enumerates an existing bucket and publishes synthetic
// "Created" notifications to the indexing queue, so objects that predate the
// bucket's notification subscription get index entries through the same
// pipeline as live traffic.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/stratalake/bucket-indexer/internal/event"
)

// syntheticEventName marks backfilled records. The pipeline treats any
// Created-family event the same way.
const syntheticEventName = "ObjectCreated:Put"

// makeRecords maps one listing page to notification records. Keys are
// re-encoded the way the notification system encodes them, spaces as '+'.
func makeRecords(bucket string, objects []s3types.Object) []event.Record {
	now := time.Now().UTC().Format(time.RFC3339)
	records := make([]event.Record, 0, len(objects))
	for _, obj := range objects {
		var size int64
		if obj.Size != nil {
			size = *obj.Size
		}
		records = append(records, event.Record{
			EventVersion: "2.1",
			EventSource:  "aws:s3",
			EventTime:    now,
			EventName:    syntheticEventName,
			S3: event.S3Entity{
				SchemaVersion: "1.0",
				Bucket:        event.BucketEntity{Name: bucket},
				Object: event.ObjectEntity{
					Key:  url.QueryEscape(aws.ToString(obj.Key)),
					Size: size,
					ETag: strings.Trim(aws.ToString(obj.ETag), `"`),
				},
			},
		})
	}
	return records
}

// makeBody wraps records in the SNS notification envelope the consumer
// expects as a queue message body.
func makeBody(records []event.Record) (string, error) {
	message, err := json.Marshal(map[string]interface{}{"Records": records})
	if err != nil {
		return "", fmt.Errorf("marshaling notification: %w", err)
	}
	env := event.Envelope{
		Type:      "Notification",
		Message:   string(message),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshaling envelope: %w", err)
	}
	return string(body), nil
}

func main() {
	bucket := flag.String("bucket", "", "bucket to enumerate (required)")
	prefix := flag.String("prefix", "", "restrict the backfill to keys under this prefix")
	queueURL := flag.String("queue", os.Getenv("QUEUE_URL"), "notification queue URL (defaults to QUEUE_URL)")
	region := flag.String("region", "us-east-1", "AWS region")
	chunk := flag.Int("chunk", 50, "records per published message")
	dryRun := flag.Bool("dry-run", false, "list and count objects without publishing")
	flag.Parse()

	if *bucket == "" {
		log.Fatal("-bucket is required")
	}
	if *queueURL == "" && !*dryRun {
		log.Fatal("-queue (or QUEUE_URL) is required")
	}
	if *chunk < 1 {
		log.Fatal("-chunk must be positive")
	}

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(*region))
	if err != nil {
		log.Fatalf("aws config: %v", err)
	}
	s3Client := s3.NewFromConfig(awsCfg)
	sqsClient := sqs.NewFromConfig(awsCfg)

	input := &s3.ListObjectsV2Input{Bucket: aws.String(*bucket)}
	if *prefix != "" {
		input.Prefix = aws.String(*prefix)
	}

	var total, published int
	paginator := s3.NewListObjectsV2Paginator(s3Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			log.Fatalf("listing s3://%s/%s: %v", *bucket, *prefix, err)
		}

		objects := page.Contents
		total += len(objects)
		for len(objects) > 0 {
			n := *chunk
			if n > len(objects) {
				n = len(objects)
			}
			records := makeRecords(*bucket, objects[:n])
			objects = objects[n:]

			if *dryRun {
				continue
			}
			body, err := makeBody(records)
			if err != nil {
				log.Fatalf("building message: %v", err)
			}
			_, err = sqsClient.SendMessage(ctx, &sqs.SendMessageInput{
				QueueUrl:    aws.String(*queueURL),
				MessageBody: aws.String(body),
			})
			if err != nil {
				log.Fatalf("publishing message: %v", err)
			}
			published++
		}
	}

	if *dryRun {
		log.Printf("dry run: %d objects under s3://%s/%s", total, *bucket, *prefix)
		return
	}
	log.Printf("backfill queued: %d objects in %d messages from s3://%s/%s", total, published, *bucket, *prefix)
}
