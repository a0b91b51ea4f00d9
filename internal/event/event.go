// Package event normalizes storage-change notification envelopes into the
// records the indexing pipeline consumes.
package event

import "strings"

const (
	// PrefixCreated and PrefixRemoved select the event families the pipeline
	// processes. Everything else (restore, replication, lifecycle) is skipped.
	PrefixCreated = "ObjectCreated:"
	PrefixRemoved = "ObjectRemoved:"

	// NameDeleteMarkerCreated is emitted when a delete on a versioned bucket
	// pushes a marker without destroying bytes. With a version id present it
	// must not delete the index entry.
	NameDeleteMarkerCreated = "ObjectRemoved:DeleteMarkerCreated"

	// TestEvent is the connectivity check the bucket notification system sends
	// when a subscription is first wired up.
	TestEvent = "s3:TestEvent"
)

// RawEvent is one normalized storage change: decoded names, optional version
// pinning information, and the event tag that decides index vs delete.
type RawEvent struct {
	EventName string
	Bucket    string
	Key       string
	VersionID string
	ETag      string
}

// IsCreated reports whether the event is in the created family.
func (e RawEvent) IsCreated() bool { return strings.HasPrefix(e.EventName, PrefixCreated) }

// IsRemoved reports whether the event is in the removed family.
func (e RawEvent) IsRemoved() bool { return strings.HasPrefix(e.EventName, PrefixRemoved) }
