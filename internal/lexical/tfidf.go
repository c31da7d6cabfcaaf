// Package lexical implements the TF-IDF vector space used for similar
// question ranking. The vocabulary and idf weights are frozen at build time;
// queries are transformed through the frozen vectorizer and scored by cosine
// similarity against every corpus row.
package lexical

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/uniconsult/backend/internal/textnorm"
	"github.com/uniconsult/backend/pkg/logger"
)

const placeholderDoc = "khong_co_du_lieu"

// Options mirror the vectorizer configuration of the original system:
// unigrams and bigrams, terms present in fewer than MinDocFreq documents
// dropped, vocabulary capped at MaxVocabulary terms.
type Options struct {
	MinDocFreq    int
	MaxVocabulary int
}

func DefaultOptions() Options {
	return Options{MinDocFreq: 2, MaxVocabulary: 10000}
}

// Vectorizer holds the frozen vocabulary and idf weights.
type Vectorizer struct {
	Vocabulary map[string]int
	IDF        []float64
	DocCount   int
}

// Index is the built vector space: the vectorizer plus one L2-normalized
// sparse row per corpus document.
type Index struct {
	Vectorizer Vectorizer
	Rows       []map[int]float64
}

// Match is one scored corpus row.
type Match struct {
	DocID int
	Score float64
}

// Build constructs the index from tokenized corpus content. An empty corpus
// is replaced by a single placeholder document so the build cannot fail; the
// resulting degenerate index never scores above the ranking threshold.
func Build(contents []string, stopwords map[string]bool, opts Options) *Index {
	if len(contents) == 0 {
		contents = []string{placeholderDoc}
	}

	docs := make([][]string, len(contents))
	for i, content := range contents {
		terms := ngrams(textnorm.RemoveStopwords(strings.Fields(content), stopwords))
		docs[i] = terms
	}

	minDF := opts.MinDocFreq
	if minDF < 1 {
		minDF = 1
	}
	// A corpus smaller than minDF would otherwise prune every term.
	if minDF > len(docs) {
		minDF = len(docs)
	}

	df := make(map[string]int)
	for _, terms := range docs {
		seen := make(map[string]bool, len(terms))
		for _, t := range terms {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	type termDF struct {
		term string
		df   int
	}
	kept := make([]termDF, 0, len(df))
	for term, count := range df {
		if count >= minDF {
			kept = append(kept, termDF{term, count})
		}
	}
	// Highest document frequency first, term text as the deterministic
	// tie-break, then truncate to the vocabulary cap.
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].df != kept[j].df {
			return kept[i].df > kept[j].df
		}
		return kept[i].term < kept[j].term
	})
	if opts.MaxVocabulary > 0 && len(kept) > opts.MaxVocabulary {
		kept = kept[:opts.MaxVocabulary]
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].term < kept[j].term })

	vocab := make(map[string]int, len(kept))
	idf := make([]float64, len(kept))
	n := float64(len(docs))
	for i, t := range kept {
		vocab[t.term] = i
		// Smoothed idf: ln((1+n)/(1+df)) + 1.
		idf[i] = math.Log((1+n)/(1+float64(t.df))) + 1
	}

	vec := Vectorizer{Vocabulary: vocab, IDF: idf, DocCount: len(docs)}

	rows := make([]map[int]float64, len(docs))
	for i, terms := range docs {
		rows[i] = vec.transformTerms(terms)
	}

	logger.Info("Lexical index built",
		zap.Int("documents", len(docs)),
		zap.Int("vocabulary", len(vocab)),
	)

	return &Index{Vectorizer: vec, Rows: rows}
}

// Score transforms the tokenized query through the frozen vocabulary and
// returns all rows with cosine similarity above threshold, descending, ties
// broken by corpus order.
func (idx *Index) Score(queryTokenized string, threshold float64) []Match {
	qv := idx.Vectorizer.transformTerms(ngrams(strings.Fields(queryTokenized)))
	if len(qv) == 0 {
		return nil
	}

	var matches []Match
	for docID, row := range idx.Rows {
		score := dot(qv, row)
		if score > threshold {
			matches = append(matches, Match{DocID: docID, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}

// Size returns the corpus row count frozen into the index.
func (idx *Index) Size() int {
	return len(idx.Rows)
}

func (v *Vectorizer) transformTerms(terms []string) map[int]float64 {
	tf := make(map[int]float64)
	for _, term := range terms {
		if dim, ok := v.Vocabulary[term]; ok {
			tf[dim]++
		}
	}
	if len(tf) == 0 {
		return tf
	}

	var norm float64
	for dim := range tf {
		tf[dim] *= v.IDF[dim]
		norm += tf[dim] * tf[dim]
	}
	norm = math.Sqrt(norm)
	for dim := range tf {
		tf[dim] /= norm
	}

	return tf
}

// ngrams expands tokens into unigrams plus adjacent bigrams.
func ngrams(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, len(tokens)*2-1)
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// Rows are L2-normalized, so cosine similarity reduces to a sparse dot
// product over the smaller map.
func dot(a, b map[int]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for dim, w := range a {
		sum += w * b[dim]
	}
	return sum
}

// Persist writes the matrix and vectorizer artifacts. Failure is reported to
// the caller for logging but leaves the in-memory index authoritative.
func (idx *Index) Persist(matrixPath, vectorizerPath string) error {
	if err := writeGob(matrixPath, idx.Rows); err != nil {
		return fmt.Errorf("failed to persist matrix: %w", err)
	}
	if err := writeGob(vectorizerPath, idx.Vectorizer); err != nil {
		return fmt.Errorf("failed to persist vectorizer: %w", err)
	}
	return nil
}

// LoadPersisted restores a previously persisted index. Both artifacts must
// exist and decode; anything else is an error and the caller rebuilds.
func LoadPersisted(matrixPath, vectorizerPath string) (*Index, error) {
	var rows []map[int]float64
	if err := readGob(matrixPath, &rows); err != nil {
		return nil, fmt.Errorf("failed to load matrix: %w", err)
	}
	var vec Vectorizer
	if err := readGob(vectorizerPath, &vec); err != nil {
		return nil, fmt.Errorf("failed to load vectorizer: %w", err)
	}
	return &Index{Vectorizer: vec, Rows: rows}, nil
}

func writeGob(path string, v interface{}) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(v)
}

func readGob(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}
