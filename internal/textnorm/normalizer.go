package textnorm

import (
	"bufio"
	"os"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/uniconsult/backend/pkg/logger"
)

// Normalizer lowercases, strips punctuation and segments Vietnamese text.
// Multi-word compounds found in the dictionary are merged into single tokens
// joined with "_", so "học phí" ranks as one term rather than two.
type Normalizer struct {
	dict        map[string]bool
	maxCompound int
}

func New(dictionary map[string]bool) *Normalizer {
	maxCompound := 1
	for entry := range dictionary {
		words := strings.Count(entry, " ") + 1
		if words > maxCompound {
			maxCompound = words
		}
	}
	return &Normalizer{dict: dictionary, maxCompound: maxCompound}
}

// NewFromFile loads a compound dictionary, one entry per line, UTF-8.
// Single-word entries are ignored; only compounds affect segmentation.
func NewFromFile(path string) (*Normalizer, error) {
	dict, err := loadLines(path)
	if err != nil {
		return nil, err
	}

	compounds := make(map[string]bool, len(dict))
	for _, entry := range dict {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if strings.Contains(entry, " ") {
			compounds[entry] = true
		}
	}

	logger.Info("Segmentation dictionary loaded",
		zap.String("path", path),
		zap.Int("compounds", len(compounds)),
	)

	return New(compounds), nil
}

// Normalize lowercases, strips everything outside letters/digits/whitespace,
// collapses runs of spaces and merges dictionary compounds. Empty input
// yields an empty string. Idempotent: merged tokens contain "_" which is
// preserved on a second pass.
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Tokenize(text), " ")
}

// Tokenize returns the segmented tokens of Normalize.
func (n *Normalizer) Tokenize(text string) []string {
	cleaned := clean(text)
	if cleaned == "" {
		return nil
	}

	words := strings.Fields(cleaned)
	if len(n.dict) == 0 {
		return words
	}

	tokens := make([]string, 0, len(words))
	i := 0
	for i < len(words) {
		matched := 1
		// Longest dictionary match wins; compounds are at most maxCompound
		// words long.
		for length := min(n.maxCompound, len(words)-i); length >= 2; length-- {
			candidate := strings.Join(words[i:i+length], " ")
			if n.dict[candidate] {
				tokens = append(tokens, strings.Join(words[i:i+length], "_"))
				matched = length
				break
			}
		}
		if matched == 1 {
			tokens = append(tokens, words[i])
		}
		i += matched
	}

	return tokens
}

// RemoveStopwords filters tokens against the supplied set. Used for index
// construction only; query-time transforms keep all tokens.
func RemoveStopwords(tokens []string, stopwords map[string]bool) []string {
	if len(stopwords) == 0 {
		return tokens
	}
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !stopwords[tok] {
			kept = append(kept, tok)
		}
	}
	return kept
}

// LoadStopwords reads a stopword list, one term per line, UTF-8. A missing
// file returns an empty set rather than an error.
func LoadStopwords(path string) map[string]bool {
	lines, err := loadLines(path)
	if err != nil {
		logger.Warn("Stopword list not loaded", zap.String("path", path), zap.Error(err))
		return map[string]bool{}
	}

	set := make(map[string]bool, len(lines))
	for _, line := range lines {
		line = strings.ToLower(strings.TrimSpace(line))
		if line != "" {
			set[strings.ReplaceAll(line, " ", "_")] = true
		}
	}
	return set
}

func clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// Punctuation becomes a separator so "phí?" and "phí" agree.
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

func loadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
