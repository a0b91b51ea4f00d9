package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope is the SNS wrapper that arrives as a queue message body. Message
// carries the storage notification as a nested JSON string.
type Envelope struct {
	Type      string `json:"Type"`
	MessageID string `json:"MessageId"`
	TopicArn  string `json:"TopicArn"`
	Message   string `json:"Message"`
	Timestamp string `json:"Timestamp"`
}

// Record is a single storage change inside a notification.
type Record struct {
	EventVersion string   `json:"eventVersion"`
	EventSource  string   `json:"eventSource"`
	AWSRegion    string   `json:"awsRegion"`
	EventTime    string   `json:"eventTime"`
	EventName    string   `json:"eventName"`
	S3           S3Entity `json:"s3"`
}

// S3Entity holds the bucket/object halves of a record.
type S3Entity struct {
	SchemaVersion   string       `json:"s3SchemaVersion"`
	ConfigurationID string       `json:"configurationId"`
	Bucket          BucketEntity `json:"bucket"`
	Object          ObjectEntity `json:"object"`
}

// BucketEntity names the bucket a record refers to.
type BucketEntity struct {
	Name string `json:"name"`
	ARN  string `json:"arn"`
}

// ObjectEntity carries the object fields of a record. Removal records omit
// size and eTag; delete markers carry versionId.
type ObjectEntity struct {
	Key       string `json:"key"`
	Size      int64  `json:"size"`
	ETag      string `json:"eTag"`
	VersionID string `json:"versionId"`
	Sequencer string `json:"sequencer"`
}

// ErrNoRecords means a notification had neither a records list nor a
// connectivity-test marker. Such messages indicate a mis-wired subscription
// and must surface rather than be silently dropped.
var ErrNoRecords = errors.New("event: notification has no records")

// DecodeBody parses one queue message body. It returns the notification's
// records, or (nil, nil) for a connectivity test event.
func DecodeBody(body []byte) ([]Record, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("event: decoding envelope: %w", err)
	}

	// Records stays nil when the key is absent, which is how a test event or a
	// mis-wired subscription looks.
	var note struct {
		Event   string          `json:"Event"`
		Records json.RawMessage `json:"Records"`
	}
	if err := json.Unmarshal([]byte(env.Message), &note); err != nil {
		return nil, fmt.Errorf("event: decoding notification: %w", err)
	}
	if note.Records == nil {
		if note.Event == TestEvent {
			return nil, nil
		}
		return nil, ErrNoRecords
	}

	var records []Record
	if err := json.Unmarshal(note.Records, &records); err != nil {
		return nil, fmt.Errorf("event: decoding records: %w", err)
	}
	return records, nil
}
