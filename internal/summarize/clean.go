package summarize

import (
	"regexp"
	"strings"
)

// denylist matches whole lines of meta-commentary that models add around
// the requested text.
var denylist = []*regexp.Regexp{
	regexp.MustCompile(`^(다음은|아래는|이하는|위는)\s.*(요약|정리|작성|내용)`),
	regexp.MustCompile(`(요약|정리|작성)(해|하여|해서)?\s*(드리겠습니다|드립니다|보았습니다|봤습니다)`),
	regexp.MustCompile(`^(물론입니다|물론이죠|네[,.!]|알겠습니다|좋습니다[,.!])`),
	regexp.MustCompile(`^(참고|주의|설명|비고)\s*[:：]`),
	regexp.MustCompile(`도움이\s*(되|되었|되셨)으면`),
	regexp.MustCompile(`(더|추가로)\s*(필요|궁금)하신`),
	regexp.MustCompile(`^※`),
	regexp.MustCompile(`(?i)^(here is|here's|sure|certainly|of course|i hope|note:|summary:)`),
}

var (
	headingPrefix = regexp.MustCompile(`^#{1,6}\s*`)
	emphasis      = regexp.MustCompile(`\*\*|__`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// Clean strips markdown artifacts and explanatory lines from a raw model
// response. It is safe on any input, including the empty string.
func Clean(raw string) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		if trimmed == "---" || trimmed == "***" {
			continue
		}
		trimmed = headingPrefix.ReplaceAllString(trimmed, "")
		trimmed = emphasis.ReplaceAllString(trimmed, "")
		if isCommentary(trimmed) {
			continue
		}
		kept = append(kept, trimmed)
	}

	out := strings.Join(kept, "\n")
	out = blankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func isCommentary(line string) bool {
	if line == "" {
		return false
	}
	for _, re := range denylist {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// MissingSections returns the recap sections absent from text.
func MissingSections(text string) []string {
	var missing []string
	for _, s := range Sections {
		if !strings.Contains(text, s) {
			missing = append(missing, s)
		}
	}
	return missing
}
