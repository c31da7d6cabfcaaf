// Package matcher is the last-resort lexical matcher over a small curated
// Q&A list, used when neither the TF-IDF index nor the vector store can
// serve. Scoring is 0.6 * character-level sequence similarity + 0.4 *
// keyword overlap. The LCS ratio is O(n*m) per candidate, acceptable only
// while the curated list stays small.
package matcher

import (
	"strings"
	"sync"

	"github.com/uniconsult/backend/internal/textnorm"
)

const DefaultThreshold = 0.55

type QA struct {
	Question string
	Answer   string
	Source   string
	Line     int
}

type Match struct {
	Answer string
	Source string
	Line   int
	Score  float64
}

// Matcher lazily prepares keyword sets for the static list on first use.
type Matcher struct {
	norm *textnorm.Normalizer

	once     sync.Once
	entries  []QA
	keywords []map[string]bool
}

func New(entries []QA, norm *textnorm.Normalizer) *Matcher {
	return &Matcher{norm: norm, entries: entries}
}

func (m *Matcher) build() {
	m.keywords = make([]map[string]bool, len(m.entries))
	for i, e := range m.entries {
		m.keywords[i] = keywordSet(m.norm.Tokenize(e.Question))
	}
}

// FindBestMatch returns the highest-scoring candidate at or above threshold,
// or nil. Candidates sharing no keyword with the query are skipped before
// the expensive sequence comparison. Strictly-greater comparison keeps the
// first-seen candidate on ties.
func (m *Matcher) FindBestMatch(question string, threshold float64) *Match {
	m.once.Do(m.build)

	queryKeywords := keywordSet(m.norm.Tokenize(question))
	if len(queryKeywords) == 0 {
		return nil
	}

	queryNorm := m.norm.Normalize(question)

	var best *Match
	for i, e := range m.entries {
		overlap := intersectionSize(queryKeywords, m.keywords[i])
		if overlap == 0 {
			continue
		}

		seq := sequenceSimilarity(queryNorm, m.norm.Normalize(e.Question))
		score := 0.6*seq + 0.4*(float64(overlap)/float64(len(queryKeywords)))

		if best == nil || score > best.Score {
			best = &Match{Answer: e.Answer, Source: e.Source, Line: e.Line, Score: score}
		}
	}

	if best == nil || best.Score < threshold {
		return nil
	}
	return best
}

// sequenceSimilarity is an LCS ratio over runes: 2*lcs/(len(a)+len(b)).
func sequenceSimilarity(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}

func keywordSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if len([]rune(t)) >= 2 || strings.ContainsRune(t, '_') {
			set[t] = true
		}
	}
	return set
}

func intersectionSize(a, b map[string]bool) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if b[k] {
			n++
		}
	}
	return n
}
