// Package consumer runs the SQS long-poll loop feeding the pipeline. Messages
// are deleted on success and left on the queue on failure, so the visibility
// timeout drives redelivery and, eventually, the dead-letter queue.
package consumer

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"github.com/stratalake/bucket-indexer/internal/config"
	"github.com/stratalake/bucket-indexer/internal/metrics"
	"github.com/stratalake/bucket-indexer/internal/pipeline"
	"github.com/stratalake/bucket-indexer/internal/pkg/logger"
)

// SQSAPI is the subset of the queue client the consumer calls, narrowed so
// tests can stub it.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Processor handles one message body.
type Processor interface {
	ProcessBody(ctx context.Context, body []byte) (pipeline.Result, error)
}

var _ Processor = (*pipeline.Pipeline)(nil)

// Consumer polls the notification queue and hands each message to the
// processor.
type Consumer struct {
	sqsClient SQSAPI
	queueURL  string
	proc      Processor
	metrics   *metrics.IndexerMetrics

	waitSeconds int32
	batchSize   int32
	done        chan struct{}
}

// New builds a consumer for the configured queue. m may be nil.
func New(sqsClient SQSAPI, cfg config.QueueConfig, proc Processor, m *metrics.IndexerMetrics) *Consumer {
	return &Consumer{
		sqsClient:   sqsClient,
		queueURL:    cfg.URL,
		proc:        proc,
		metrics:     m,
		waitSeconds: int32(cfg.WaitSeconds),
		batchSize:   int32(cfg.BatchSize),
		done:        make(chan struct{}),
	}
}

// Start launches the poll loop in a goroutine. It returns immediately.
func (c *Consumer) Start(ctx context.Context) {
	logger.Info("notification consumer started", "queue", c.queueURL)
	go c.poll(ctx)
}

// Stop ends the poll loop after the in-flight receive returns.
func (c *Consumer) Stop() {
	close(c.done)
}

func (c *Consumer) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		out, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: c.batchSize,
			WaitTimeSeconds:     c.waitSeconds,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("queue receive failed", "error", err.Error())
			time.Sleep(5 * time.Second)
			continue
		}

		for _, msg := range out.Messages {
			invocation := uuid.NewString()
			if msg.Body == nil {
				c.deleteMessage(ctx, msg.ReceiptHandle)
				continue
			}

			result, err := c.proc.ProcessBody(ctx, []byte(*msg.Body))
			if err != nil {
				// Leave the message; the visibility timeout redelivers it.
				logger.Error("message processing failed",
					"invocation", invocation,
					"indexed", result.Indexed,
					"deleted", result.Deleted,
					"skipped", result.Skipped,
					"error", err.Error())
				if c.metrics != nil {
					c.metrics.MessagesTotal.WithLabelValues("failed").Inc()
				}
				continue
			}

			logger.Info("message processed",
				"invocation", invocation,
				"indexed", result.Indexed,
				"deleted", result.Deleted,
				"skipped", result.Skipped)
			if c.metrics != nil {
				c.metrics.MessagesTotal.WithLabelValues("ok").Inc()
			}
			c.deleteMessage(ctx, msg.ReceiptHandle)
		}
	}
}

func (c *Consumer) deleteMessage(ctx context.Context, handle *string) {
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: handle,
	})
	if err != nil {
		logger.Error("queue delete failed", "error", err.Error())
	}
}
