// Package recommend ranks corpus questions against a query through the
// frozen TF-IDF index. Every failure mode degrades to empty results; this
// service never raises toward the web layer.
package recommend

import (
	"sync"

	"go.uber.org/zap"

	"github.com/uniconsult/backend/internal/corpus"
	"github.com/uniconsult/backend/internal/lexical"
	"github.com/uniconsult/backend/internal/metrics"
	"github.com/uniconsult/backend/internal/textnorm"
	"github.com/uniconsult/backend/pkg/logger"
)

// Recommendation is one ranked similar question.
type Recommendation struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Score      float64 `json:"similarity_score"`
	Source     string  `json:"source,omitempty"`
	QuestionID int64   `json:"question_id,omitempty"`
	AnswerID   int64   `json:"answer_id,omitempty"`
}

// Service holds the corpus and its index. Both are replaced atomically by
// Rebuild; readers always see a matching pair.
type Service struct {
	norm      *textnorm.Normalizer
	stopwords map[string]bool
	opts      lexical.Options
	threshold float64

	matrixPath     string
	vectorizerPath string

	mu      sync.RWMutex
	records []corpus.TokenizedRecord
	index   *lexical.Index
}

type Config struct {
	Threshold      float64
	MatrixPath     string
	VectorizerPath string
	Options        lexical.Options
}

func NewService(norm *textnorm.Normalizer, stopwords map[string]bool, cfg Config) *Service {
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.1
	}
	return &Service{
		norm:           norm,
		stopwords:      stopwords,
		opts:           cfg.Options,
		threshold:      cfg.Threshold,
		matrixPath:     cfg.MatrixPath,
		vectorizerPath: cfg.VectorizerPath,
	}
}

// Rebuild replaces the corpus and index. An explicit administrative
// operation; it is never triggered implicitly by a failed lookup.
func (s *Service) Rebuild(records []corpus.TokenizedRecord) {
	contents := make([]string, len(records))
	for i, r := range records {
		contents[i] = r.Content
	}

	index := lexical.Build(contents, s.stopwords, s.opts)

	if s.matrixPath != "" {
		if err := index.Persist(s.matrixPath, s.vectorizerPath); err != nil {
			// In-memory index stays authoritative for the process lifetime.
			logger.Warn("Failed to persist lexical index", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.records = records
	s.index = index
	s.mu.Unlock()
}

// Ready reports whether an index has been built.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index != nil
}

// Recommend returns at most topN similar questions with score above the
// threshold, descending. Empty results on empty query, missing index or no
// matches.
func (s *Service) Recommend(query string, topN int) []Recommendation {
	s.mu.RLock()
	records, index := s.records, s.index
	s.mu.RUnlock()

	if index == nil || query == "" {
		return nil
	}

	tokenized := s.norm.Normalize(query)
	matches := index.Score(tokenized, s.threshold)
	if len(matches) > topN {
		matches = matches[:topN]
	}

	out := make([]Recommendation, 0, len(matches))
	for _, m := range matches {
		if m.DocID >= len(records) {
			continue
		}
		r := records[m.DocID]
		metrics.SimilarityScore.Observe(m.Score)
		out = append(out, Recommendation{
			Question:   r.Question,
			Answer:     r.Answer,
			Score:      m.Score,
			Source:     r.Source,
			QuestionID: r.QuestionID,
			AnswerID:   r.AnswerID,
		})
	}

	logger.Debug("Recommendations computed",
		zap.String("query", query),
		zap.Int("results", len(out)),
	)

	return out
}
