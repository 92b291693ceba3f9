package draft

import (
	"context"
	"path/filepath"
	"testing"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "draft.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}
	if err := s.Put(ctx, "k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "k", "v2"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || v != "v2" {
		t.Errorf("Get(k) = %q, %v, %v; want v2, true, nil", v, ok, err)
	}
}

func TestSaveLoadInput(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	in := Input{
		Novel:     "다크 판타지",
		Attribute: "챕터 1: 제1장 → 등장인물",
		Data:      "안개가 걷혔다.",
		Filter:    "다크",
		Keywords:  "감정, 분위기",
	}
	if err := s.SaveInput(ctx, in); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadInput(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != in {
		t.Errorf("LoadInput = %+v, want %+v", got, in)
	}
}

func TestLoadInput_Empty(t *testing.T) {
	got, err := openTest(t).LoadInput(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != (Input{}) {
		t.Errorf("LoadInput = %+v, want zero", got)
	}
}

func TestCursor(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if _, ok, _ := s.Cursor(ctx, "novel"); ok {
		t.Fatal("cursor should not exist yet")
	}
	for _, pos := range []int{2, 3} {
		if err := s.SetCursor(ctx, "novel", pos); err != nil {
			t.Fatal(err)
		}
	}
	pos, ok, err := s.Cursor(ctx, "novel")
	if err != nil || !ok || pos != 3 {
		t.Errorf("Cursor = %d, %v, %v; want 3, true, nil", pos, ok, err)
	}
	if _, ok, _ := s.Cursor(ctx, "other"); ok {
		t.Error("cursor leaked across novels")
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetCursor(ctx, "novel", 4); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	pos, ok, err := s.Cursor(ctx, "novel")
	if err != nil || !ok || pos != 4 {
		t.Errorf("Cursor after reopen = %d, %v, %v", pos, ok, err)
	}
}
