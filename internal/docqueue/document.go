// Package docqueue buffers search index documents and flushes them to the
// backend in size-bounded bulk requests.
package docqueue

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// DocType distinguishes per-object documents from package revision documents.
type DocType int

const (
	DocObject DocType = iota
	DocPackage
)

// Bulk identifiers longer than this are replaced with a digest. Elasticsearch
// rejects _id values above 512 bytes.
const maxIDBytes = 512

// Documents describing package revisions land in a sibling index so that
// object and package searches stay separate.
const packageIndexSuffix = "_packages"

// Document is one entry bound for the search index.
type Document struct {
	Type      DocType
	EventName string

	Bucket       string
	Key          string
	Ext          string
	ETag         string
	VersionID    string
	LastModified time.Time
	Size         int64
	Text         string

	// Package revision fields, set only when Type is DocPackage.
	Handle      string
	PackageHash string
	Comment     string
	Metadata    string
}

// ID returns the deterministic document id. Notification redelivery then
// overwrites the previous copy instead of duplicating it.
func (d *Document) ID() string {
	raw := d.Key + ":" + d.VersionID
	if len(raw) > maxIDBytes {
		sum := sha256.Sum256([]byte(raw))
		return hex.EncodeToString(sum[:])
	}
	return raw
}

// IndexName returns the logical index the document belongs to.
func (d *Document) IndexName() string {
	if d.Type == DocPackage {
		return d.Bucket + packageIndexSuffix
	}
	return d.Bucket
}

type objectBody struct {
	Key          string `json:"key"`
	Ext          string `json:"ext"`
	ETag         string `json:"etag"`
	VersionID    string `json:"version_id"`
	LastModified string `json:"last_modified"`
	Size         int64  `json:"size"`
	Content      string `json:"content"`
	Event        string `json:"event"`
	Updated      string `json:"updated"`
}

type packageBody struct {
	objectBody
	Handle      string `json:"handle"`
	PackageHash string `json:"hash"`
	Comment     string `json:"comment"`
	Metadata    string `json:"metadata"`
}

// Body serializes the document for an index action.
func (d *Document) Body() ([]byte, error) {
	obj := objectBody{
		Key:          d.Key,
		Ext:          d.Ext,
		ETag:         d.ETag,
		VersionID:    d.VersionID,
		LastModified: d.LastModified.UTC().Format(time.RFC3339),
		Size:         d.Size,
		Content:      d.Text,
		Event:        d.EventName,
		Updated:      time.Now().UTC().Format(time.RFC3339),
	}
	if d.Type == DocPackage {
		return json.Marshal(packageBody{
			objectBody:  obj,
			Handle:      d.Handle,
			PackageHash: d.PackageHash,
			Comment:     d.Comment,
			Metadata:    d.Metadata,
		})
	}
	return json.Marshal(obj)
}
