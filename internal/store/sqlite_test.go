package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperengineering/codex/internal/attrpath"
	"github.com/hyperengineering/codex/internal/fingerprint"
	"github.com/hyperengineering/codex/internal/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "codex.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeReq(attribute, text string) types.WriteRequest {
	engine := fingerprint.New()
	return types.WriteRequest{
		AttributeText:        attribute,
		AttributeFingerprint: engine.Fingerprint(attribute),
		Text:                 text,
		DataFingerprint:      engine.Fingerprint(text),
		NovelTitle:           attrpath.Novel(attribute),
	}
}

func TestStore_NewSQLiteStore(t *testing.T) {
	db, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
}

func TestStore_WriteAndQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	req := writeReq("용사전 → 챕터 1: 시작 → 도입", "마을에서 출발한다")
	req.Chapter = &attrpath.ChapterRef{Number: "1", Title: "시작"}
	chapterFP := fingerprint.New().Fingerprint("챕터 1: 시작")
	req.ChapterFingerprint = &chapterFP

	resp, err := s.WriteData(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.ID == "" {
		t.Error("Expected ID to be set")
	}
	if resp.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}

	got, err := s.QueryData(ctx, req.AttributeFingerprint, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("QueryData returned %d entries, want 1", len(got))
	}
	e := got[0]
	if e.Text != req.Text || e.AttributeText != req.AttributeText {
		t.Errorf("entry = %+v", e)
	}
	if !e.DataFingerprint.Equal(req.DataFingerprint) {
		t.Errorf("DataFingerprint = %v, want %v", e.DataFingerprint, req.DataFingerprint)
	}
	if e.NovelTitle != "용사전" {
		t.Errorf("NovelTitle = %q, want 용사전", e.NovelTitle)
	}
	if e.Chapter == nil || e.Chapter.Number != "1" || e.Chapter.Title != "시작" {
		t.Errorf("Chapter = %+v", e.Chapter)
	}
	if e.ChapterFingerprint == nil || !e.ChapterFingerprint.Equal(chapterFP) {
		t.Errorf("ChapterFingerprint = %v, want %v", e.ChapterFingerprint, chapterFP)
	}
}

func TestStore_QueryData_NewestFirstAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third"} {
		if _, err := s.WriteData(ctx, writeReq("novel → 인물", text)); err != nil {
			t.Fatal(err)
		}
	}

	attrFP := fingerprint.New().Fingerprint("novel → 인물")
	got, err := s.QueryData(ctx, attrFP, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("QueryData returned %d entries, want 2", len(got))
	}
	if got[0].Text != "third" || got[1].Text != "second" {
		t.Errorf("order = [%s %s], want [third second]", got[0].Text, got[1].Text)
	}

	all, err := s.QueryData(ctx, attrFP, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("QueryData(limit=0) returned %d entries, want 3", len(all))
	}
}

func TestStore_WriteData_NoDeduplication(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	req := writeReq("novel → 배경", "same text")

	for i := 0; i < 2; i++ {
		if _, err := s.WriteData(ctx, req); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.AttributeCount != 1 {
		t.Errorf("AttributeCount = %d, want 1", stats.AttributeCount)
	}
	if stats.DataCount != 2 {
		t.Errorf("DataCount = %d, want 2", stats.DataCount)
	}
}

func TestStore_WriteData_InvalidFingerprint(t *testing.T) {
	s := newTestStore(t)
	req := writeReq("novel → 배경", "text")
	req.DataFingerprint = fingerprint.Invalid

	_, err := s.WriteData(context.Background(), req)
	if !errors.Is(err, ErrInvalidFingerprint) {
		t.Errorf("err = %v, want ErrInvalidFingerprint", err)
	}
}

func TestStore_ListAttributes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	paths := []string{"novel → 인물", "novel → 배경", "novel → 인물"}
	for _, p := range paths {
		if _, err := s.WriteData(ctx, writeReq(p, "x "+p)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListAttributes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("ListAttributes returned %d entries, want 2", len(got))
	}
	if got[0].Text != "novel → 인물" || got[1].Text != "novel → 배경" {
		t.Errorf("attributes = [%s %s]", got[0].Text, got[1].Text)
	}
	if got[0].NovelTitle != "novel" {
		t.Errorf("NovelTitle = %q, want novel", got[0].NovelTitle)
	}
}

func TestStore_ListAttributes_Empty(t *testing.T) {
	s := newTestStore(t)
	got, err := s.ListAttributes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListAttributes = %v, want empty non-nil slice", got)
	}
}

func TestStore_DeleteData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	keep := writeReq("novel → 인물", "keep")
	drop := writeReq("novel → 인물", "drop")
	for _, r := range []types.WriteRequest{keep, drop} {
		if _, err := s.WriteData(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.DeleteData(ctx, types.DeleteDataRequest{
		AttributeFingerprint: drop.AttributeFingerprint,
		DataFingerprint:      drop.DataFingerprint,
		Text:                 drop.Text,
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	got, err := s.QueryData(ctx, keep.AttributeFingerprint, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Text != "keep" {
		t.Errorf("remaining = %+v", got)
	}
}

func TestStore_DeleteData_TextMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	req := writeReq("novel → 인물", "original")
	if _, err := s.WriteData(ctx, req); err != nil {
		t.Fatal(err)
	}

	_, err := s.DeleteData(ctx, types.DeleteDataRequest{
		AttributeFingerprint: req.AttributeFingerprint,
		DataFingerprint:      req.DataFingerprint,
		Text:                 "different",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_DeleteAttribute(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	req := writeReq("novel → 인물", "one")
	for _, text := range []string{"one", "two"} {
		r := writeReq("novel → 인물", text)
		if _, err := s.WriteData(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.WriteData(ctx, writeReq("novel → 배경", "other")); err != nil {
		t.Fatal(err)
	}

	n, err := s.DeleteAttribute(ctx, types.DeleteAttributeRequest{AttributeFingerprint: req.AttributeFingerprint})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.AttributeCount != 1 || stats.DataCount != 1 {
		t.Errorf("stats = %+v, want 1 attribute and 1 data record", stats)
	}

	if _, err := s.DeleteAttribute(ctx, types.DeleteAttributeRequest{AttributeFingerprint: req.AttributeFingerprint}); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestStore_DeleteAttributeLiteralSparesCollision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	target := writeReq("novel → 인물", "one")
	colliding := writeReq("novel → 배경", "two")
	colliding.AttributeFingerprint = target.AttributeFingerprint
	for _, r := range []types.WriteRequest{target, colliding} {
		if _, err := s.WriteData(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.DeleteAttribute(ctx, types.DeleteAttributeRequest{
		AttributeFingerprint: target.AttributeFingerprint,
		Text:                 target.AttributeText,
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	data, err := s.QueryData(ctx, target.AttributeFingerprint, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 1 || data[0].AttributeText != "novel → 배경" {
		t.Errorf("remaining data = %+v, want only the colliding path", data)
	}
}
