// Package types holds the JSON wire types shared by the remote store client
// and the reference store server.
package types

import (
	"time"

	"github.com/hyperengineering/codex/internal/attrpath"
	"github.com/hyperengineering/codex/internal/fingerprint"
)

// AttributeEntry is one stored attribute path.
type AttributeEntry struct {
	ID          string                  `json:"id"`
	Text        string                  `json:"attribute_text"`
	Fingerprint fingerprint.Fingerprint `json:"attribute_fingerprint"`
	NovelTitle  string                  `json:"novel_title"`
	CreatedAt   time.Time               `json:"created_at"`
}

// DataEntry is one stored data record. It references its attribute by
// fingerprint and carries the attribute text for disambiguation.
type DataEntry struct {
	ID                   string                   `json:"id"`
	AttributeText        string                   `json:"attribute_text"`
	AttributeFingerprint fingerprint.Fingerprint  `json:"attribute_fingerprint"`
	Text                 string                   `json:"text"`
	DataFingerprint      fingerprint.Fingerprint  `json:"data_fingerprint"`
	NovelTitle           string                   `json:"novel_title"`
	Chapter              *attrpath.ChapterRef     `json:"chapter,omitempty"`
	ChapterFingerprint   *fingerprint.Fingerprint `json:"chapter_fingerprint,omitempty"`
	CreatedAt            time.Time                `json:"created_at"`
}

// WriteRequest is the body of POST /api/v1/data.
type WriteRequest struct {
	AttributeText        string                   `json:"attribute_text"`
	AttributeFingerprint fingerprint.Fingerprint  `json:"attribute_fingerprint"`
	Text                 string                   `json:"text"`
	DataFingerprint      fingerprint.Fingerprint  `json:"data_fingerprint"`
	NovelTitle           string                   `json:"novel_title"`
	Chapter              *attrpath.ChapterRef     `json:"chapter,omitempty"`
	ChapterFingerprint   *fingerprint.Fingerprint `json:"chapter_fingerprint,omitempty"`
}

// WriteResponse acknowledges a stored data record.
type WriteResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// DeleteDataRequest is the body of DELETE /api/v1/data. Text, when set,
// restricts the delete to records whose literal text matches.
type DeleteDataRequest struct {
	AttributeFingerprint fingerprint.Fingerprint `json:"attribute_fingerprint"`
	DataFingerprint      fingerprint.Fingerprint `json:"data_fingerprint"`
	Text                 string                  `json:"text,omitempty"`
}

// DeleteAttributeRequest identifies an attribute to delete, sent as the
// max, min and text query parameters of DELETE /api/v1/attributes. Text,
// when set, restricts the delete to the attribute with that literal path.
type DeleteAttributeRequest struct {
	AttributeFingerprint fingerprint.Fingerprint `json:"attribute_fingerprint"`
	Text                 string                  `json:"text,omitempty"`
}

// DeleteResponse reports how many rows a delete removed.
type DeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// AttributesResponse is the body of GET /api/v1/attributes.
type AttributesResponse struct {
	Attributes []AttributeEntry `json:"attributes"`
}

// DataResponse is the body of GET /api/v1/data.
type DataResponse struct {
	Data []DataEntry `json:"data"`
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	AttributeCount int64  `json:"attribute_count"`
	DataCount      int64  `json:"data_count"`
}

// StoreStats holds aggregate counts for the reference store.
type StoreStats struct {
	AttributeCount int64
	DataCount      int64
}
