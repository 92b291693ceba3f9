// Package attrpath builds and parses hierarchical attribute paths of the form
// "Novel → 챕터 N: Title → Attribute → ...".
//
// The path string is authoritative. Chapter references are always re-derived
// from it and never stored on their own.
package attrpath

import (
	"regexp"
	"strconv"
	"strings"
)

// Separator joins path segments.
const Separator = " → "

// separatorRune is the bare arrow; Split tolerates missing spaces around it.
const separatorRune = "→"

// ChapterMarker is the literal that introduces a chapter segment.
const ChapterMarker = "챕터"

// ChapterRef identifies a chapter by its string-encoded number and title.
type ChapterRef struct {
	Number string `json:"number"`
	Title  string `json:"title"`
}

var (
	// strictChapter matches a whole segment: 챕터 <digits> [: title]
	strictChapter = regexp.MustCompile(`^챕터\s*(\d+)\s*(?::\s*(.*))?$`)
	// looseChapter finds the marker anywhere inside a single segment.
	looseChapter = regexp.MustCompile(`챕터\s*(\d+)(?:\s*:\s*([^:]*))?`)
)

// DefaultTitle returns the placeholder title "제N장".
func DefaultTitle(number string) string {
	return "제" + number + "장"
}

// IsPlaceholderTitle reports whether title carries no real information for
// the given chapter number.
func IsPlaceholderTitle(number, title string) bool {
	title = strings.TrimSpace(title)
	return title == "" || title == DefaultTitle(number)
}

// Int returns the chapter number as an int, or 0 if it does not parse.
func (c ChapterRef) Int() int {
	n, err := strconv.Atoi(c.Number)
	if err != nil {
		return 0
	}
	return n
}

// Segment renders the chapter as a path segment.
func (c ChapterRef) Segment() string {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		title = DefaultTitle(c.Number)
	}
	return ChapterMarker + " " + c.Number + ": " + title
}

// NewChapterRef builds a ChapterRef for number n with an optional title.
func NewChapterRef(n int, title string) ChapterRef {
	num := strconv.Itoa(n)
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle(num)
	}
	return ChapterRef{Number: num, Title: title}
}

// Build joins the non-empty parts into a path. A nil chapter is omitted.
func Build(novel string, chapter *ChapterRef, attribute string) string {
	parts := []string{novel}
	if chapter != nil && chapter.Number != "" {
		parts = append(parts, chapter.Segment())
	}
	parts = append(parts, attribute)
	return Join(parts...)
}

// Join joins segments with Separator, dropping empty ones.
func Join(segments ...string) string {
	kept := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, Separator)
}

// Split returns the trimmed, non-empty segments of path.
func Split(path string) []string {
	raw := strings.Split(path, separatorRune)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Segment returns the i-th segment of path, or "" when out of range.
func Segment(path string, i int) string {
	segs := Split(path)
	if i < 0 || i >= len(segs) {
		return ""
	}
	return segs[i]
}

// Novel returns the first segment of path.
func Novel(path string) string {
	return Segment(path, 0)
}

// Normalize re-joins path with the canonical separator.
func Normalize(path string) string {
	return Join(Split(path)...)
}

// ParseChapter parses a whole segment "챕터 N[: title]". Digits are required.
// A missing title becomes DefaultTitle(N).
func ParseChapter(segment string) (ChapterRef, bool) {
	m := strictChapter.FindStringSubmatch(strings.TrimSpace(segment))
	if m == nil {
		return ChapterRef{}, false
	}
	return newRef(m[1], m[2])
}

// Extraction is the result of ExtractChapter.
type Extraction struct {
	Chapter ChapterRef
	// Index is the segment index the chapter was read from.
	Index int
	// Fallback is set when the confirmed position (segment 1) did not hold a
	// chapter and a heuristic pass found one elsewhere.
	Fallback bool
}

// ExtractChapter finds the chapter of path. The segment right after the novel
// title is tried first with the strict grammar. Failing that, the remaining
// segments are tried strictly and then loosely (marker anywhere inside a
// segment), in path order. Matches never span segment boundaries.
func ExtractChapter(path string) (Extraction, bool) {
	segs := Split(path)
	if len(segs) < 2 {
		return Extraction{}, false
	}
	if ref, ok := ParseChapter(segs[1]); ok {
		return Extraction{Chapter: ref, Index: 1}, true
	}
	for i := 2; i < len(segs); i++ {
		if ref, ok := ParseChapter(segs[i]); ok {
			return Extraction{Chapter: ref, Index: i, Fallback: true}, true
		}
	}
	for i := 1; i < len(segs); i++ {
		m := looseChapter.FindStringSubmatch(segs[i])
		if m == nil {
			continue
		}
		if ref, ok := newRef(m[1], m[2]); ok {
			return Extraction{Chapter: ref, Index: i, Fallback: true}, true
		}
	}
	return Extraction{}, false
}

// Parsed is the structured view of a path.
type Parsed struct {
	Novel      string
	Chapter    *ChapterRef
	Attributes []string
	Fallback   bool
}

// Attribute joins the nested attribute segments.
func (p Parsed) Attribute() string {
	return Join(p.Attributes...)
}

// Parse splits path into novel, chapter and nested attribute names. When the
// chapter was found by the fallback pass, the segment it came from still
// counts as an attribute segment.
func Parse(path string) Parsed {
	segs := Split(path)
	if len(segs) == 0 {
		return Parsed{}
	}
	p := Parsed{Novel: segs[0]}
	ext, ok := ExtractChapter(path)
	if !ok {
		p.Attributes = segs[1:]
		return p
	}
	ref := ext.Chapter
	p.Chapter = &ref
	p.Fallback = ext.Fallback
	for i := 1; i < len(segs); i++ {
		if i == ext.Index && !ext.Fallback {
			continue
		}
		if i == ext.Index && isWholeChapterSegment(segs[i]) {
			continue
		}
		p.Attributes = append(p.Attributes, segs[i])
	}
	return p
}

// FirstLine returns the first non-empty trimmed line of text and whether the
// input held more than one non-empty line.
func FirstLine(text string) (string, bool) {
	var first string
	count := 0
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if count == 0 {
			first = line
		}
		count++
	}
	return first, count > 1
}

func isWholeChapterSegment(seg string) bool {
	_, ok := ParseChapter(seg)
	return ok
}

func newRef(digits, title string) (ChapterRef, bool) {
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return ChapterRef{}, false
	}
	num := strconv.Itoa(n)
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle(num)
	}
	return ChapterRef{Number: num, Title: title}, true
}
