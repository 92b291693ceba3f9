// Package similarity ranks stored attribute paths against a partial query.
//
// Textual containment is the primary signal. Fingerprint proximity only
// separates otherwise similar candidates, and the combined bonus keeps
// "filter + keyword" hits at the top regardless of fingerprint distance.
package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/hyperengineering/codex/internal/fingerprint"
)

// Weights and thresholds.
const (
	MinScore = 0.05

	maxComponentWeight = 0.6
	minComponentWeight = 0.4
	// proximitySpan is the component distance at which proximity reaches 0.
	proximitySpan = 1.0

	exactMatch     = 1.0
	prefixMatch    = 0.95
	substringBase  = 0.80
	substringBonus = 0.15
	tokenMatchMax  = 0.60

	keywordHit      = 0.15
	keywordBoundary = 0.20
	keywordAllBonus = 0.15
	keywordCap      = 0.3

	comboFloor       = 0.85
	comboPrefixBonus = 0.5
	comboBonus       = 0.35
)

// Query is what the user typed: a filter string plus keywords.
type Query struct {
	Text        string
	Fingerprint fingerprint.Fingerprint
	Keywords    []string
}

// Candidate is a stored attribute path.
type Candidate struct {
	Path        string
	Fingerprint fingerprint.Fingerprint
}

// Result is a scored candidate.
type Result struct {
	Candidate
	Score float64
}

// ParseKeywords splits a comma-separated keyword list, dropping blanks.
func ParseKeywords(s string) []string {
	var out []string
	for _, kw := range strings.Split(s, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// Score returns the similarity of c to q in [0, 1].
func Score(q Query, c Candidate) float64 {
	query := normalize(q.Text)
	cand := normalize(c.Path)

	fp := Proximity(q.Fingerprint, c.Fingerprint)
	text := Containment(query, cand)
	kw, all := KeywordBonus(cand, q.Keywords)

	if query != "" && all && strings.Contains(cand, query) {
		bonus := comboBonus
		if strings.HasPrefix(cand, query) {
			bonus = comboPrefixBonus
		}
		return clip(math.Max(comboFloor, 0.2*fp+0.3*text+0.5*bonus))
	}
	return clip(0.3*fp + 0.4*text + 0.3*math.Min(kw, keywordCap))
}

// Rank scores every candidate, drops those at or below MinScore and sorts the
// rest by descending score, then shorter path, then path text.
func Rank(q Query, candidates []Candidate) []Result {
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		s := Score(q, c)
		if s <= MinScore {
			continue
		}
		results = append(results, Result{Candidate: c, Score: s})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		li := utf8.RuneCountInString(results[i].Path)
		lj := utf8.RuneCountInString(results[j].Path)
		if li != lj {
			return li < lj
		}
		return results[i].Path < results[j].Path
	})
	return results
}

// Proximity is the weighted inverse component distance of two fingerprints.
// Invalid fingerprints have no proximity.
func Proximity(a, b fingerprint.Fingerprint) float64 {
	if !a.Valid() || !b.Valid() {
		return 0
	}
	maxSim := 1 - math.Abs(a.Max-b.Max)/proximitySpan
	minSim := 1 - math.Abs(a.Min-b.Min)/proximitySpan
	return clip(maxComponentWeight*clip(maxSim) + minComponentWeight*clip(minSim))
}

// Containment scores how much of query appears in candidate. Both inputs are
// expected to be normalised already.
func Containment(query, candidate string) float64 {
	if query == "" || candidate == "" {
		return 0
	}
	if candidate == query {
		return exactMatch
	}
	if strings.HasPrefix(candidate, query) {
		return prefixMatch
	}
	if idx := strings.Index(candidate, query); idx >= 0 {
		pos := utf8.RuneCountInString(candidate[:idx])
		total := utf8.RuneCountInString(candidate)
		return substringBase + substringBonus*(1-float64(pos)/float64(total))
	}

	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return 0
	}
	found := 0
	for _, tok := range tokens {
		if strings.Contains(candidate, tok) {
			found++
		}
	}
	return tokenMatchMax * float64(found) / float64(len(tokens))
}

// KeywordBonus sums per-keyword hits in candidate and reports whether every
// keyword matched. An empty keyword list never counts as all matched.
func KeywordBonus(candidate string, keywords []string) (float64, bool) {
	if len(keywords) == 0 {
		return 0, false
	}
	var bonus float64
	matched := 0
	for _, kw := range keywords {
		kw = normalize(kw)
		if kw == "" || !strings.Contains(candidate, kw) {
			continue
		}
		matched++
		if atBoundary(candidate, kw) {
			bonus += keywordBoundary
		} else {
			bonus += keywordHit
		}
	}
	all := matched == len(keywords)
	if all {
		bonus += keywordAllBonus
	}
	return bonus, all
}

// atBoundary reports whether some occurrence of kw in s touches an edge of s
// or is delimited on both sides by non-alphanumeric runes.
func atBoundary(s, kw string) bool {
	offset := 0
	for {
		idx := strings.Index(s[offset:], kw)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(kw)
		if start == 0 || end == len(s) {
			return true
		}

		prev, _ := utf8.DecodeLastRuneInString(s[:start])
		next, _ := utf8.DecodeRuneInString(s[end:])
		if !isWordRune(prev) && !isWordRune(next) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func normalize(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

func clip(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
