// Package chapter maintains the ordered chapter list of a novel, moves a
// persisted cursor through it and drafts past-summary recaps.
//
// The list is a view. It is rebuilt from the latest chapter structure
// record and from every attribute path stored under the novel.
package chapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hyperengineering/codex/internal/attrpath"
	"github.com/hyperengineering/codex/internal/types"
)

// Reserved attribute names.
const (
	StructureAttribute   = "챕터 구조"
	PastSummaryAttribute = "지난 이야기"
)

// DefaultScenes is the scene template for a newly created chapter.
var DefaultScenes = []string{"도입", "전개", "절정", "결말"}

var (
	ErrNoNovel                 = errors.New("novel title is required")
	ErrNoChapters              = errors.New("novel has no chapters")
	ErrNothingToSummarize      = errors.New("current chapter has no data")
	ErrSummarizerNotConfigured = errors.New("summarizer not configured")
	ErrEmptySummary            = errors.New("summary was empty after cleanup")
)

// Chapter is one entry of the structure view.
type Chapter struct {
	Number string   `json:"number"`
	Title  string   `json:"title"`
	Scenes []string `json:"scenes"`
}

// Ref returns the chapter's path reference.
func (c Chapter) Ref() attrpath.ChapterRef {
	return attrpath.ChapterRef{Number: c.Number, Title: c.Title}
}

// Novel is the derived view of everything stored under one title.
type Novel struct {
	Title      string    `json:"title"`
	Chapters   []Chapter `json:"chapters"`
	Attributes []string  `json:"attributes"`
}

// structureRecord is the JSON held by the chapter structure data record.
type structureRecord struct {
	Chapters []Chapter `json:"chapters"`
}

// EncodeStructure renders chapters as a structure record body.
func EncodeStructure(chapters []Chapter) (string, error) {
	data, err := json.Marshal(structureRecord{Chapters: chapters})
	if err != nil {
		return "", fmt.Errorf("encode chapter structure: %w", err)
	}
	return string(data), nil
}

// DecodeStructure parses a structure record body. A bare JSON array of
// chapters is accepted as well.
func DecodeStructure(text string) ([]Chapter, error) {
	var rec structureRecord
	if err := json.Unmarshal([]byte(text), &rec); err == nil {
		return rec.Chapters, nil
	}
	var list []Chapter
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		return nil, fmt.Errorf("decode chapter structure: %w", err)
	}
	return list, nil
}

// Merge builds the novel view from the structure record's chapters and the
// stored attributes. Titles already known win unless they are the "제N장"
// placeholder. Chapters listed by the structure record keep its order;
// chapters only inferred from paths are placed after the last chapter with
// a lower number.
func Merge(novel string, structure []Chapter, attributes []types.AttributeEntry, logger *slog.Logger) Novel {
	if logger == nil {
		logger = slog.Default()
	}
	view := Novel{Title: novel}
	byNumber := make(map[string]*Chapter)
	var order []string

	add := func(number, title string) *Chapter {
		if ch, ok := byNumber[number]; ok {
			if attrpath.IsPlaceholderTitle(number, ch.Title) && !attrpath.IsPlaceholderTitle(number, title) {
				ch.Title = strings.TrimSpace(title)
			}
			return ch
		}
		title = strings.TrimSpace(title)
		if title == "" {
			title = attrpath.DefaultTitle(number)
		}
		ch := &Chapter{Number: number, Title: title}
		byNumber[number] = ch
		order = append(order, number)
		return ch
	}

	for _, s := range structure {
		ref, ok := attrpath.ParseChapter(attrpath.ChapterMarker + " " + strings.TrimSpace(s.Number))
		if !ok {
			continue
		}
		ch := add(ref.Number, s.Title)
		for _, scene := range s.Scenes {
			ch.Scenes = appendScene(ch.Scenes, scene)
		}
	}
	listed := len(order)

	for _, a := range attributes {
		if attrpath.Novel(a.Text) != novel {
			continue
		}
		view.Attributes = append(view.Attributes, a.Text)
		p := attrpath.Parse(a.Text)
		if p.Chapter == nil {
			continue
		}
		if p.Fallback {
			logger.Debug("chapter fallback parse used",
				"attribute", a.Text,
				"chapter", p.Chapter.Number,
			)
		}
		ch := add(p.Chapter.Number, p.Chapter.Title)
		if len(p.Attributes) > 0 && !reserved(p.Attributes[0]) {
			ch.Scenes = appendScene(ch.Scenes, p.Attributes[0])
		}
	}

	for _, n := range order[:listed] {
		view.Chapters = append(view.Chapters, *byNumber[n])
	}
	inferred := make([]Chapter, 0, len(order)-listed)
	for _, n := range order[listed:] {
		inferred = append(inferred, *byNumber[n])
	}
	sort.SliceStable(inferred, func(i, j int) bool {
		return inferred[i].Ref().Int() < inferred[j].Ref().Int()
	})
	for _, ch := range inferred {
		view.Chapters = insertByNumber(view.Chapters, ch)
	}
	return view
}

// insertByNumber places ch right after the last chapter numbered below it.
func insertByNumber(chapters []Chapter, ch Chapter) []Chapter {
	pos := 0
	for i, c := range chapters {
		if c.Ref().Int() < ch.Ref().Int() {
			pos = i + 1
		}
	}
	chapters = append(chapters, Chapter{})
	copy(chapters[pos+1:], chapters[pos:])
	chapters[pos] = ch
	return chapters
}

// NextChapter returns the chapter that follows the last one in chapters,
// with the default scene template.
func NextChapter(chapters []Chapter) Chapter {
	last := 0
	for _, ch := range chapters {
		if n := ch.Ref().Int(); n > last {
			last = n
		}
	}
	ref := attrpath.NewChapterRef(last+1, "")
	return Chapter{
		Number: ref.Number,
		Title:  ref.Title,
		Scenes: append([]string(nil), DefaultScenes...),
	}
}

func reserved(name string) bool {
	return name == StructureAttribute || name == PastSummaryAttribute
}

func appendScene(scenes []string, scene string) []string {
	scene = strings.TrimSpace(scene)
	if scene == "" {
		return scenes
	}
	for _, s := range scenes {
		if s == scene {
			return scenes
		}
	}
	return append(scenes, scene)
}
