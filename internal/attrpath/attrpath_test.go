package attrpath

import (
	"reflect"
	"testing"
)

func TestBuild(t *testing.T) {
	ch := ChapterRef{Number: "3", Title: "제3장"}
	tests := []struct {
		name      string
		novel     string
		chapter   *ChapterRef
		attribute string
		want      string
	}{
		{"full", "다크 판타지", &ch, "등장인물", "다크 판타지 → 챕터 3: 제3장 → 등장인물"},
		{"no chapter", "다크 판타지", nil, "등장인물", "다크 판타지 → 등장인물"},
		{"no attribute", "다크 판타지", &ch, "", "다크 판타지 → 챕터 3: 제3장"},
		{"novel only", "다크 판타지", nil, "  ", "다크 판타지"},
		{"empty chapter number", "다크 판타지", &ChapterRef{}, "배경", "다크 판타지 → 배경"},
		{"untitled chapter", "N", &ChapterRef{Number: "7"}, "", "N → 챕터 7: 제7장"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Build(tt.novel, tt.chapter, tt.attribute); got != tt.want {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseChapter(t *testing.T) {
	tests := []struct {
		segment string
		want    ChapterRef
		ok      bool
	}{
		{"챕터 2", ChapterRef{Number: "2", Title: "제2장"}, true},
		{"챕터 1: 안개의 도시", ChapterRef{Number: "1", Title: "안개의 도시"}, true},
		{"챕터12:끝", ChapterRef{Number: "12", Title: "끝"}, true},
		{"챕터 03", ChapterRef{Number: "3", Title: "제3장"}, true},
		{"챕터 4:   ", ChapterRef{Number: "4", Title: "제4장"}, true},
		{"챕터", ChapterRef{}, false},
		{"챕터 하나", ChapterRef{}, false},
		{"등장인물", ChapterRef{}, false},
		{"이전 챕터 2 참고", ChapterRef{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.segment, func(t *testing.T) {
			got, ok := ParseChapter(tt.segment)
			if ok != tt.ok {
				t.Fatalf("ParseChapter(%q) ok = %v, want %v", tt.segment, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ParseChapter(%q) = %+v, want %+v", tt.segment, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	ch := ChapterRef{Number: "3", Title: "제3장"}
	path := Build("다크 판타지", &ch, "등장인물")

	got, ok := ParseChapter(Segment(path, 1))
	if !ok {
		t.Fatalf("chapter segment of %q did not parse", path)
	}
	if got != ch {
		t.Errorf("round trip = %+v, want %+v", got, ch)
	}
}

func TestExtractChapter(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		want     ChapterRef
		index    int
		fallback bool
		ok       bool
	}{
		{
			name:  "confirmed position",
			path:  "다크 판타지 → 챕터 1: 제1장 → 감정/분위기",
			want:  ChapterRef{Number: "1", Title: "제1장"},
			index: 1,
			ok:    true,
		},
		{
			name:     "strict segment later in path",
			path:     "다크 판타지 → 1부 → 챕터 4: 귀환 → 배경",
			want:     ChapterRef{Number: "4", Title: "귀환"},
			index:    2,
			fallback: true,
			ok:       true,
		},
		{
			name:     "marker mid-segment",
			path:     "다크 판타지 → 메모(챕터 5) → 복선",
			want:     ChapterRef{Number: "5", Title: "제5장"},
			index:    1,
			fallback: true,
			ok:       true,
		},
		{
			name:     "strict match preferred over earlier loose mention",
			path:     "다크 판타지 → 챕터 1 이후 메모 → 챕터 2: 재회",
			want:     ChapterRef{Number: "2", Title: "재회"},
			index:    2,
			fallback: true,
			ok:       true,
		},
		{
			name: "novel segment never consulted",
			path: "챕터 9 → 등장인물",
			ok:   false,
		},
		{
			name: "no chapter",
			path: "다크 판타지 → 등장인물",
			ok:   false,
		},
		{
			name: "single segment",
			path: "다크 판타지",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractChapter(tt.path)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Chapter != tt.want {
				t.Errorf("chapter = %+v, want %+v", got.Chapter, tt.want)
			}
			if got.Index != tt.index {
				t.Errorf("index = %d, want %d", got.Index, tt.index)
			}
			if got.Fallback != tt.fallback {
				t.Errorf("fallback = %v, want %v", got.Fallback, tt.fallback)
			}
		})
	}
}

func TestParse(t *testing.T) {
	p := Parse("다크 판타지 → 챕터 2: 재회 → 등장인물 → 주인공")
	if p.Novel != "다크 판타지" {
		t.Errorf("Novel = %q", p.Novel)
	}
	if p.Chapter == nil || p.Chapter.Number != "2" || p.Chapter.Title != "재회" {
		t.Errorf("Chapter = %+v", p.Chapter)
	}
	if !reflect.DeepEqual(p.Attributes, []string{"등장인물", "주인공"}) {
		t.Errorf("Attributes = %v", p.Attributes)
	}
	if p.Attribute() != "등장인물 → 주인공" {
		t.Errorf("Attribute() = %q", p.Attribute())
	}

	loose := Parse("다크 판타지 → 메모(챕터 5) → 복선")
	if !loose.Fallback {
		t.Error("expected fallback parse")
	}
	if !reflect.DeepEqual(loose.Attributes, []string{"메모(챕터 5)", "복선"}) {
		t.Errorf("loose Attributes = %v", loose.Attributes)
	}

	none := Parse("다크 판타지 → 배경")
	if none.Chapter != nil {
		t.Errorf("expected no chapter, got %+v", none.Chapter)
	}
	if !reflect.DeepEqual(none.Attributes, []string{"배경"}) {
		t.Errorf("Attributes = %v", none.Attributes)
	}

	if empty := Parse(""); empty.Novel != "" || empty.Chapter != nil {
		t.Errorf("Parse(\"\") = %+v", empty)
	}
}

func TestSplitToleratesSpacing(t *testing.T) {
	got := Split("A→B →  C→ ")
	if !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Errorf("Split = %v", got)
	}
	if Normalize("A→B →  C") != "A → B → C" {
		t.Errorf("Normalize = %q", Normalize("A→B →  C"))
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in        string
		want      string
		multiline bool
	}{
		{"등장인물\n배경", "등장인물", true},
		{"\n\n  등장인물  \n", "등장인물", false},
		{"등장인물", "등장인물", false},
		{"a\r\nb", "a", true},
		{"", "", false},
	}

	for _, tt := range tests {
		got, multi := FirstLine(tt.in)
		if got != tt.want || multi != tt.multiline {
			t.Errorf("FirstLine(%q) = (%q, %v), want (%q, %v)", tt.in, got, multi, tt.want, tt.multiline)
		}
	}
}

func TestPlaceholderTitle(t *testing.T) {
	if !IsPlaceholderTitle("3", "제3장") {
		t.Error("제3장 should be a placeholder for chapter 3")
	}
	if !IsPlaceholderTitle("3", " ") {
		t.Error("blank title should be a placeholder")
	}
	if IsPlaceholderTitle("3", "귀환") {
		t.Error("귀환 is a real title")
	}
	if NewChapterRef(4, "").Title != "제4장" {
		t.Error("NewChapterRef should default the title")
	}
	if (ChapterRef{Number: "x"}).Int() != 0 {
		t.Error("Int() of non-numeric chapter should be 0")
	}
}
