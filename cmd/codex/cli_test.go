package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperengineering/codex/internal/api"
	"github.com/hyperengineering/codex/internal/chapter"
	"github.com/hyperengineering/codex/internal/store"
)

const testNovel = "다크 판타지"

// newTestServer starts the HTTP API over a fresh SQLite store and points the
// CLI configuration at it.
func newTestServer(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	db, err := store.NewSQLiteStore(filepath.Join(dir, "server.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(db, "", "test")))
	t.Cleanup(func() {
		srv.Close()
		db.Close()
	})

	t.Setenv("CODEX_CONFIG_PATH", filepath.Join(dir, "missing.yaml"))
	t.Setenv("CODEX_REMOTE_URL", srv.URL)
	t.Setenv("CODEX_REMOTE_API_KEY", "")
	t.Setenv("CODEX_DRAFT_PATH", filepath.Join(dir, "draft.db"))
	t.Setenv("CODEX_LOG_LEVEL", "error")
	t.Setenv("CODEX_VERIFY_DELAY", "10ms")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CODEX_EXPORT_BUCKET", "")
}

// executeCmd runs the root command with captured output.
func executeCmd(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	// Cobra parses into package-level variables; reset them so values from
	// a previous run do not leak.
	novelFlag = ""
	offlineFlag = false
	jsonOutput = false
	saveAttribute, saveData, saveFile = "", "", ""
	searchKeywords, searchLimit, searchAll = "", 20, false
	summarySave = false
	watchAttribute = ""
	deleteText, deleteFile = "", ""
	exportOut = ""

	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)
	rootCmd.SetOut(outBuf)
	rootCmd.SetErr(errBuf)
	rootCmd.SetArgs(args)

	err = rootCmd.Execute()

	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)
	rootCmd.SetArgs(nil)
	return outBuf.String(), errBuf.String(), err
}

func TestSave_CommitThenDuplicate(t *testing.T) {
	newTestServer(t)
	args := []string{"save", "--novel", testNovel, "-a", "등장인물 → 리안", "-d", "은발의 검사"}

	out, _, err := executeCmd(t, args...)
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	if !strings.Contains(out, "Saved 다크 판타지 → 등장인물 → 리안") {
		t.Errorf("first save output = %q", out)
	}

	out, _, err = executeCmd(t, args...)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if !strings.Contains(out, "Already saved") {
		t.Errorf("second save output = %q, want duplicate notice", out)
	}
}

func TestSave_RequiresNovel(t *testing.T) {
	newTestServer(t)

	_, _, err := executeCmd(t, "save", "-a", "등장인물", "-d", "x")
	if err == nil || !strings.Contains(err.Error(), "--novel") {
		t.Errorf("err = %v, want --novel required", err)
	}
}

func TestSave_FromFile(t *testing.T) {
	newTestServer(t)
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte("북쪽 성채"), 0644); err != nil {
		t.Fatal(err)
	}

	out, _, err := executeCmd(t, "save", "--novel", testNovel, "-a", "배경", "-f", path, "--json")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got["outcome"] != "committed" {
		t.Errorf("outcome = %v, want committed", got["outcome"])
	}
}

func TestSearch_JSON(t *testing.T) {
	newTestServer(t)
	if _, _, err := executeCmd(t, "save", "--novel", testNovel, "-a", "등장인물 → 리안", "-d", "검사"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, _, err := executeCmd(t, "save", "--novel", "다른 작품", "-a", "등장인물 → 리안", "-d", "상인"); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, _, err := executeCmd(t, "search", "리안", "--novel", testNovel, "--json")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var got struct {
		Results []struct {
			Path  string  `json:"path"`
			Score float64 `json:"score"`
		} `json:"results"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got.Total != 1 {
		t.Fatalf("total = %d, want 1 (novel filter)", got.Total)
	}
	if got.Results[0].Path != "다크 판타지 → 등장인물 → 리안" {
		t.Errorf("path = %q", got.Results[0].Path)
	}
}

func TestChapters_NextCreatesFirstChapter(t *testing.T) {
	newTestServer(t)

	out, _, err := executeCmd(t, "chapters", "next", "--novel", testNovel)
	if err != nil {
		t.Fatalf("chapters next: %v", err)
	}
	if !strings.Contains(out, "(new)") || !strings.Contains(out, "[0]") {
		t.Errorf("next output = %q", out)
	}

	out, _, err = executeCmd(t, "chapters", "--novel", testNovel, "--json")
	if err != nil {
		t.Fatalf("chapters: %v", err)
	}
	var view chapter.Novel
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if len(view.Chapters) != 1 || view.Chapters[0].Number != "1" {
		t.Errorf("chapters = %+v, want chapter 1", view.Chapters)
	}
}

func TestChapters_PrevWithoutChapters(t *testing.T) {
	newTestServer(t)

	_, _, err := executeCmd(t, "chapters", "prev", "--novel", testNovel)
	if !errors.Is(err, chapter.ErrNoChapters) {
		t.Errorf("err = %v, want ErrNoChapters", err)
	}
}

func TestSummary_WithoutKey(t *testing.T) {
	newTestServer(t)

	_, _, err := executeCmd(t, "summary", "--novel", testNovel)
	if !errors.Is(err, chapter.ErrSummarizerNotConfigured) {
		t.Errorf("err = %v, want ErrSummarizerNotConfigured", err)
	}
}

func TestDelete_Data(t *testing.T) {
	newTestServer(t)
	if _, _, err := executeCmd(t, "save", "--novel", testNovel, "-a", "등장인물 → 리안", "-d", "은발의 검사"); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, _, err := executeCmd(t, "delete", "data", "다크 판타지 → 등장인물 → 리안", "--text", "은발의 검사")
	if err != nil {
		t.Fatalf("delete data: %v", err)
	}
	if !strings.Contains(out, "Deleted 1 record(s).") {
		t.Errorf("delete output = %q", out)
	}

	if _, _, err := executeCmd(t, "delete", "data", "다크 판타지 → 등장인물 → 리안", "--text", "은발의 검사"); err == nil {
		t.Error("second delete succeeded, want not found")
	}
}

func TestDelete_Attribute(t *testing.T) {
	newTestServer(t)
	for _, data := range []string{"검사", "은발"} {
		if _, _, err := executeCmd(t, "save", "--novel", testNovel, "-a", "등장인물 → 리안", "-d", data); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	out, _, err := executeCmd(t, "delete", "attribute", "다크 판타지 → 등장인물 → 리안", "--json")
	if err != nil {
		t.Fatalf("delete attribute: %v", err)
	}
	var got map[string]int64
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got["deleted"] != 2 {
		t.Errorf("deleted = %d, want 2", got["deleted"])
	}
}

func TestExport_LocalFile(t *testing.T) {
	newTestServer(t)
	if _, _, err := executeCmd(t, "save", "--novel", testNovel, "-a", "챕터 1: 시작 → 도입", "-d", "비가 내린다"); err != nil {
		t.Fatalf("save: %v", err)
	}
	path := filepath.Join(t.TempDir(), "export.json")

	out, _, err := executeCmd(t, "export", "--novel", testNovel, "--out", path)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "Wrote "+path) {
		t.Errorf("export output = %q", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Novel    string            `json:"novel"`
		Chapters []chapter.Chapter `json:"chapters"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid export %q: %v", data, err)
	}
	if doc.Novel != testNovel {
		t.Errorf("novel = %q", doc.Novel)
	}
	if len(doc.Chapters) != 1 || doc.Chapters[0].Title != "시작" {
		t.Errorf("chapters = %+v, want chapter 1 titled 시작", doc.Chapters)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]string{
		"debug": "DEBUG",
		"warn":  "WARN",
		"error": "ERROR",
		"info":  "INFO",
		"":      "INFO",
	}
	for in, want := range tests {
		if got := parseLogLevel(in).String(); got != want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
