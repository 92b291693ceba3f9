package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hyperengineering/codex/internal/chapter"
)

// Document is the exported form of a novel view.
type Document struct {
	Novel      string            `json:"novel"`
	ExportedAt time.Time         `json:"exported_at"`
	Chapters   []chapter.Chapter `json:"chapters"`
	Attributes []string          `json:"attributes"`
}

// Result describes a finished export.
type Result struct {
	Key  string
	Body []byte
	// URL is empty when storage is not configured.
	URL    string
	Expiry time.Time
}

// Exporter turns novel views into uploaded JSON documents.
type Exporter struct {
	uploader Uploader
	now      func() time.Time
}

// NewExporter creates an Exporter backed by uploader.
func NewExporter(uploader Uploader) *Exporter {
	if uploader == nil {
		uploader = &NoopUploader{}
	}
	return &Exporter{uploader: uploader, now: time.Now}
}

// Encode renders view as an indented JSON document.
func (e *Exporter) Encode(view chapter.Novel) ([]byte, error) {
	doc := Document{
		Novel:      view.Title,
		ExportedAt: e.now().UTC(),
		Chapters:   view.Chapters,
		Attributes: view.Attributes,
	}
	if doc.Chapters == nil {
		doc.Chapters = []chapter.Chapter{}
	}
	if doc.Attributes == nil {
		doc.Attributes = []string{}
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return body, nil
}

// Export encodes view, uploads it and, when storage is configured, returns
// a pre-signed download URL.
func (e *Exporter) Export(ctx context.Context, view chapter.Novel) (*Result, error) {
	body, err := e.Encode(view)
	if err != nil {
		return nil, err
	}
	key := objectKey(view.Title)
	if err := e.uploader.Upload(ctx, key, body); err != nil {
		return nil, err
	}

	res := &Result{Key: key, Body: body}
	link, expiry, err := e.uploader.PresignedURL(ctx, key)
	switch {
	case errors.Is(err, ErrNotConfigured):
	case err != nil:
		return nil, err
	default:
		res.URL = link
		res.Expiry = expiry
	}
	return res, nil
}

// objectKey returns the object key of a novel's export.
// Convention: {escaped novel title}/export/current.json
func objectKey(novel string) string {
	return url.PathEscape(novel) + "/export/current.json"
}
