package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uniconsult_query_duration_seconds",
			Help:    "Chat query processing duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"path"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uniconsult_query_total",
			Help: "Total chat queries, labeled by the router path that answered",
		},
		[]string{"path"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uniconsult_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uniconsult_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	SimilarityScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "uniconsult_similarity_score",
			Help:    "TF-IDF similarity scores of returned recommendations",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	RecommendationsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "uniconsult_recommendations_returned",
			Help:    "Number of similar questions returned per request",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	DocumentsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "uniconsult_documents_processed_total",
			Help: "Total documents ingested into the vector store",
		},
	)

	CorpusSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "uniconsult_corpus_size",
			Help: "Records in the lexical corpus after the last rebuild",
		},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(SimilarityScore)
	prometheus.MustRegister(RecommendationsReturned)
	prometheus.MustRegister(DocumentsProcessed)
	prometheus.MustRegister(CorpusSize)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
