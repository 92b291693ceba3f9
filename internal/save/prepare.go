package save

import (
	"context"
	"strings"

	"github.com/hyperengineering/codex/internal/attrpath"
	"github.com/hyperengineering/codex/internal/fingerprint"
	"github.com/hyperengineering/codex/internal/types"
)

// WarnMultilineAttribute is raised when an attribute spans several lines.
const WarnMultilineAttribute = "attribute has multiple lines; only the first line is used"

// Normalize trims the input and collapses a multi-line attribute to its
// first non-empty line. The returned warnings are user-facing.
func Normalize(in Input) (Input, []string) {
	var warnings []string
	out := Input{
		Novel: strings.TrimSpace(in.Novel),
		Data:  strings.TrimSpace(in.Data),
	}
	attr, multiline := attrpath.FirstLine(in.Attribute)
	if multiline {
		warnings = append(warnings, WarnMultilineAttribute)
	}
	out.Attribute = attrpath.Normalize(attr)
	return out, warnings
}

// FullPath returns the path to commit under. An attribute that already
// starts with the novel title is used as is; otherwise the title is
// prepended.
func FullPath(novel, attribute string) string {
	novel = strings.TrimSpace(novel)
	attribute = attrpath.Normalize(attribute)
	if attribute == "" {
		return ""
	}
	if attrpath.Novel(attribute) == novel {
		return attribute
	}
	return attrpath.Join(novel, attribute)
}

// prepared is a normalised input ready to be written.
type prepared struct {
	request  types.WriteRequest
	path     string
	fallback bool
}

// prepare builds the write request for a normalised input. Fingerprints are
// computed concurrently off the caller's goroutine.
func prepare(ctx context.Context, engine fingerprint.Engine, in Input) (*prepared, error) {
	if in.Novel == "" || in.Attribute == "" {
		return nil, ErrInputIncomplete
	}
	if in.Data == "" {
		return nil, ErrNothingToSave
	}

	path := FullPath(in.Novel, in.Attribute)
	if attrpath.Novel(path) == path {
		// Only the novel title is left; there is no attribute to store under.
		return nil, ErrInputIncomplete
	}

	var chapter *attrpath.ChapterRef
	fallback := false
	if ext, ok := attrpath.ExtractChapter(path); ok {
		ref := ext.Chapter
		chapter = &ref
		fallback = ext.Fallback
	}

	attrCh := fingerprint.Go(engine, path)
	dataCh := fingerprint.Go(engine, in.Data)
	var chapterCh <-chan fingerprint.Fingerprint
	if chapter != nil {
		chapterCh = fingerprint.Go(engine, chapter.Segment())
	}

	attrFP, err := await(ctx, attrCh)
	if err != nil {
		return nil, err
	}
	dataFP, err := await(ctx, dataCh)
	if err != nil {
		return nil, err
	}
	if !attrFP.Valid() || !dataFP.Valid() {
		return nil, ErrFingerprintUnavailable
	}

	req := types.WriteRequest{
		AttributeText:        path,
		AttributeFingerprint: attrFP,
		Text:                 in.Data,
		DataFingerprint:      dataFP,
		NovelTitle:           in.Novel,
		Chapter:              chapter,
	}
	if chapterCh != nil {
		chapterFP, err := await(ctx, chapterCh)
		if err != nil {
			return nil, err
		}
		if chapterFP.Valid() {
			req.ChapterFingerprint = &chapterFP
		}
	}
	return &prepared{request: req, path: path, fallback: fallback}, nil
}

func await(ctx context.Context, ch <-chan fingerprint.Fingerprint) (fingerprint.Fingerprint, error) {
	select {
	case fp := <-ch:
		return fp, nil
	case <-ctx.Done():
		return fingerprint.Invalid, ctx.Err()
	}
}
