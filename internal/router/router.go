// Package router orchestrates answering: cache, small-talk shortcut,
// structured-source generation, semantic RAG fallback, curated-list matcher.
// It is the single point where lower-layer failures are normalized; no error
// or panic ever escapes to the web layer.
package router

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uniconsult/backend/internal/cache"
	"github.com/uniconsult/backend/internal/matcher"
	"github.com/uniconsult/backend/internal/metrics"
	"github.com/uniconsult/backend/internal/storage/models"
	"github.com/uniconsult/backend/internal/vector"
	"github.com/uniconsult/backend/pkg/logger"
)

// Paths recorded per answered query.
const (
	PathCache       = "cache"
	PathSmallTalk   = "small_talk"
	PathStructured  = "structured"
	PathRAG         = "rag"
	PathMatcher     = "matcher"
	PathUnavailable = "unavailable"
)

// StructuredGenerator answers from the relational Q&A source. Empty text
// means the source had nothing to offer.
type StructuredGenerator interface {
	GenerateStructuredAnswer(ctx context.Context, query string) (string, error)
}

// RagGenerator produces a completion grounded on retrieved chunks.
type RagGenerator interface {
	GenerateRagAnswer(ctx context.Context, chunks []vector.Chunk, query string) (string, error)
}

// SmallTalkClassifier returns a canned response, or empty for real queries.
type SmallTalkClassifier interface {
	Classify(query string) string
}

// SemanticIndex is the loaded vector store surface the router needs.
type SemanticIndex interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]vector.Chunk, error)
	FilterBySource(source string) []vector.Chunk
}

// History records answered queries; nil disables recording.
type History interface {
	InsertQueryRecord(record *models.QueryRecord) error
}

// Config carries the canonical user-facing strings and RAG knobs.
type Config struct {
	OutOfScopeMessage  string
	UnavailableMessage string
	NoInfoPhrases      []string
	SourceDoc          string
	MaxDocs            int
}

// Answer is the routed result.
type Answer struct {
	Text      string
	FromCache bool
	Path      string
	TimeSaved float64
}

type Router struct {
	cfg        Config
	cache      *cache.ResponseCache
	smallTalk  SmallTalkClassifier
	structured StructuredGenerator
	rag        RagGenerator
	fallback   *matcher.Matcher
	history    History

	// The vector store is loaded at most once per process; concurrent first
	// access blocks on the same init.
	loadStore func() (SemanticIndex, error)
	loadOnce  sync.Once
	store     SemanticIndex
	loadErr   error
}

func New(
	cfg Config,
	responseCache *cache.ResponseCache,
	smallTalk SmallTalkClassifier,
	structured StructuredGenerator,
	rag RagGenerator,
	fallback *matcher.Matcher,
	loadStore func() (SemanticIndex, error),
	history History,
) *Router {
	if cfg.MaxDocs == 0 {
		cfg.MaxDocs = 20
	}
	return &Router{
		cfg:        cfg,
		cache:      responseCache,
		smallTalk:  smallTalk,
		structured: structured,
		rag:        rag,
		fallback:   fallback,
		loadStore:  loadStore,
		history:    history,
	}
}

// AnswerChat routes one query through the precedence chain. It never returns
// an error: every failure becomes the canonical unavailable message.
func (r *Router) AnswerChat(ctx context.Context, query string) (result Answer) {
	start := time.Now()
	queryID := uuid.New().String()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Router panic recovered",
				zap.String("query_id", queryID),
				zap.Any("panic", rec),
			)
			result = Answer{Text: r.cfg.UnavailableMessage, Path: PathUnavailable}
		}
		r.record(queryID, query, result, time.Since(start))
	}()

	logger.Info("Routing query", zap.String("query_id", queryID), zap.String("query", query))

	if answer, hit, saved := r.cache.Get(query); hit {
		metrics.CacheHits.WithLabelValues("response").Inc()
		return Answer{Text: answer, FromCache: true, Path: PathCache, TimeSaved: saved}
	}
	metrics.CacheMisses.WithLabelValues("response").Inc()

	if response := r.smallTalk.Classify(query); response != "" {
		return Answer{Text: response, Path: PathSmallTalk}
	}

	if answer, ok := r.tryStructured(ctx, query); ok {
		r.cache.Set(query, answer, 0)
		return Answer{Text: answer, Path: PathStructured}
	}

	return r.answerFromDocuments(ctx, query)
}

func (r *Router) tryStructured(ctx context.Context, query string) (string, bool) {
	answer, err := r.structured.GenerateStructuredAnswer(ctx, query)
	if err != nil {
		logger.Warn("Structured source failed", zap.Error(err))
		return "", false
	}
	answer = strings.TrimSpace(answer)
	if answer == "" || answer == r.cfg.OutOfScopeMessage || r.containsNoInfoPhrase(answer) {
		return "", false
	}
	return answer, true
}

func (r *Router) answerFromDocuments(ctx context.Context, query string) Answer {
	store, err := r.ensureStore()
	if err != nil {
		// No semantic index: the curated list is the last resort before
		// giving up entirely.
		if m := r.fallbackMatch(query); m != nil {
			r.cache.Set(query, m.Answer, 0)
			return Answer{Text: m.Answer, Path: PathMatcher}
		}
		return Answer{Text: r.cfg.UnavailableMessage, Path: PathUnavailable}
	}

	var chunks []vector.Chunk
	if r.cfg.SourceDoc != "" {
		chunks = store.FilterBySource(r.cfg.SourceDoc)
	} else {
		var err error
		chunks, err = store.SimilaritySearch(ctx, query, r.cfg.MaxDocs)
		if err != nil {
			logger.Warn("Similarity search failed", zap.Error(err))
			return Answer{Text: r.cfg.UnavailableMessage, Path: PathUnavailable}
		}
	}
	if len(chunks) == 0 {
		// No evidence for the configured document is a finding, not an error.
		result := r.cfg.OutOfScopeMessage
		r.cache.Set(query, result, 0)
		return Answer{Text: result, Path: PathRAG}
	}
	if len(chunks) > r.cfg.MaxDocs {
		chunks = chunks[:r.cfg.MaxDocs]
	}

	contextQuery := query
	if r.cfg.SourceDoc != "" {
		contextQuery = fmt.Sprintf("Dựa trên thông tin trong %s, %s", r.cfg.SourceDoc, query)
	}

	answer, err := r.rag.GenerateRagAnswer(ctx, chunks, contextQuery)
	if err != nil {
		logger.Warn("RAG generation failed", zap.Error(err))
		return Answer{Text: r.cfg.UnavailableMessage, Path: PathUnavailable}
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Answer{Text: r.cfg.UnavailableMessage, Path: PathUnavailable}
	}

	result := answer
	if r.containsNoInfoPhrase(answer) {
		result = r.cfg.OutOfScopeMessage
	}

	// Recorded processing time is zero on this path; the cache reports only
	// that a recomputation was skipped.
	r.cache.Set(query, result, 0)
	return Answer{Text: result, Path: PathRAG}
}

func (r *Router) fallbackMatch(query string) *matcher.Match {
	if r.fallback == nil {
		return nil
	}
	return r.fallback.FindBestMatch(query, matcher.DefaultThreshold)
}

func (r *Router) ensureStore() (SemanticIndex, error) {
	r.loadOnce.Do(func() {
		r.store, r.loadErr = r.loadStore()
		if r.loadErr != nil {
			logger.Warn("Vector store unavailable", zap.Error(r.loadErr))
		}
	})
	return r.store, r.loadErr
}

func (r *Router) containsNoInfoPhrase(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range r.cfg.NoInfoPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func (r *Router) record(queryID, query string, a Answer, elapsed time.Duration) {
	metrics.QueryTotal.WithLabelValues(a.Path).Inc()
	metrics.QueryDuration.WithLabelValues(a.Path).Observe(elapsed.Seconds())

	if r.history == nil {
		return
	}
	err := r.history.InsertQueryRecord(&models.QueryRecord{
		ID:         queryID,
		QueryText:  query,
		Answer:     a.Text,
		RouterPath: a.Path,
		FromCache:  a.FromCache,
		LatencyMS:  int(elapsed.Milliseconds()),
		CreatedAt:  time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to record query", zap.Error(err))
	}
}
