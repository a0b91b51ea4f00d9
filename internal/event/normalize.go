package event

import (
	"net/url"
	"strings"
)

// Normalize maps a raw record to a RawEvent. ok is false when the record must
// be skipped: an event family the pipeline ignores, or a versioned delete
// marker (bytes still exist under older versions).
func Normalize(rec Record) (RawEvent, bool) {
	name := rec.EventName
	if !strings.HasPrefix(name, PrefixCreated) && !strings.HasPrefix(name, PrefixRemoved) {
		return RawEvent{}, false
	}

	bucket := unescape(rec.S3.Bucket.Name)
	// The notification system encodes spaces in keys as '+'
	key := unescapePlus(rec.S3.Object.Key)

	versionID := rec.S3.Object.VersionID
	if versionID != "" {
		versionID = unescape(versionID)
	}
	if versionID != "" && name == NameDeleteMarkerCreated {
		return RawEvent{}, false
	}

	// Removal records carry no eTag
	etag := unescape(rec.S3.Object.ETag)

	return RawEvent{
		EventName: name,
		Bucket:    bucket,
		Key:       key,
		VersionID: versionID,
		ETag:      etag,
	}, true
}

// unescape decodes percent-escapes, leaving the input untouched when it is
// not valid URL encoding.
func unescape(s string) string {
	out, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return out
}

// unescapePlus additionally folds '+' into space.
func unescapePlus(s string) string {
	out, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return out
}
