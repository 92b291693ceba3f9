package summarize

import (
	"fmt"
	"strings"

	"github.com/hyperengineering/codex/internal/attrpath"
)

// Section headers of the recap. The model is asked to answer with exactly
// these four sections, in this order.
const (
	SectionClosingScene = "[마지막 장면]"
	SectionKeyQuotes    = "[주요 대사]"
	SectionSynopsis     = "[지난 줄거리]"
	SectionCharacters   = "[등장인물]"
)

// Sections lists the recap sections in order.
var Sections = []string{SectionClosingScene, SectionKeyQuotes, SectionSynopsis, SectionCharacters}

// Entry is one attribute/data pair fed to the prompt.
type Entry struct {
	Attribute string
	Text      string
}

// PromptInput is everything the recap prompt is built from.
type PromptInput struct {
	Novel   string
	Chapter attrpath.ChapterRef
	Scenes  []string
	Entries []Entry
}

// BuildPrompt renders the recap request for one chapter.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "작품: %s\n", in.Novel)
	fmt.Fprintf(&b, "챕터: %s\n", in.Chapter.Segment())
	if len(in.Scenes) > 0 {
		fmt.Fprintf(&b, "장면 구성: %s\n", strings.Join(in.Scenes, ", "))
	}

	b.WriteString("\n아래는 이 챕터에 기록된 설정과 본문입니다.\n\n")
	for _, e := range in.Entries {
		fmt.Fprintf(&b, "- %s\n%s\n\n", e.Attribute, strings.TrimSpace(e.Text))
	}

	b.WriteString("다음 챕터를 쓰기 위한 '지난 이야기'를 작성하십시오. 아래 네 항목을 이 순서와 제목 그대로 사용합니다.\n\n")
	fmt.Fprintf(&b, "%s\n이 챕터가 끝나는 장면을 현재 시제로 3~5문장 묘사합니다.\n\n", SectionClosingScene)
	fmt.Fprintf(&b, "%s\n이야기에 중요한 대사를 원문 그대로 최대 5개 인용합니다.\n\n", SectionKeyQuotes)
	fmt.Fprintf(&b, "%s\n작품 처음부터 이 챕터까지의 줄거리를 한 문단으로 요약합니다.\n\n", SectionSynopsis)
	fmt.Fprintf(&b, "%s\n이 챕터에 등장한 인물을 '이름: 현재 상태' 형식으로 나열합니다.\n", SectionCharacters)

	return b.String()
}
