// Package vector implements the locally persisted semantic index: one
// embedding per document chunk plus chunk metadata, brute-force cosine
// search, and exact metadata filtering.
package vector

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/uniconsult/backend/pkg/logger"
)

// ErrUnavailable is returned when the persisted index is absent, partial or
// unreadable. Callers treat it as "no semantic index", never as a crash.
var ErrUnavailable = errors.New("vector store unavailable")

const (
	indexFile    = "index.bin"
	docstoreFile = "docstore.json"
)

// Chunk is a bounded span of source-document text with provenance.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

type ChunkMetadata struct {
	Source     string `json:"source"`
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages"`
}

// Embedder produces one vector per text. Failures propagate as build
// failures; a store is never built from partial embeddings.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Store pairs chunks with their embeddings, in insertion order.
type Store struct {
	chunks     []Chunk
	embeddings [][]float32
	dim        int
	embedder   Embedder
}

// persistedIndex is the binary artifact layout.
type persistedIndex struct {
	Embeddings [][]float32
	Dim        int
}

// Build embeds every chunk and returns an in-memory store. Any embedding
// failure fails the build.
func Build(ctx context.Context, chunks []Chunk, embedder Embedder) (*Store, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks to index")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := embedder.GenerateBatchEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(embeddings), len(chunks))
	}

	dim := 0
	if len(embeddings) > 0 {
		dim = len(embeddings[0])
	}

	logger.Info("Vector store built",
		zap.Int("chunks", len(chunks)),
		zap.Int("dim", dim),
	)

	return &Store{chunks: chunks, embeddings: embeddings, dim: dim, embedder: embedder}, nil
}

// Save persists the store into dir, creating it if absent.
func (s *Store) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, indexFile))
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(persistedIndex{Embeddings: s.embeddings, Dim: s.dim}); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	data, err := json.Marshal(s.chunks)
	if err != nil {
		return fmt.Errorf("failed to marshal docstore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, docstoreFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write docstore: %w", err)
	}

	logger.Info("Vector store persisted", zap.String("dir", dir))
	return nil
}

// Exists reports whether both the index root and the binary index file are
// present. Gates rebuild-vs-load decisions at startup.
func Exists(dir string) bool {
	if _, err := os.Stat(dir); err != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(dir, indexFile))
	return err == nil
}

// Load restores a persisted store. Every missing-file or decode condition
// maps to ErrUnavailable; Load never panics.
func Load(dir string, embedder Embedder) (*Store, error) {
	if !Exists(dir) {
		return nil, ErrUnavailable
	}

	f, err := os.Open(filepath.Join(dir, indexFile))
	if err != nil {
		return nil, ErrUnavailable
	}
	defer f.Close()

	var idx persistedIndex
	if err := gob.NewDecoder(f).Decode(&idx); err != nil {
		logger.Warn("Vector index file unreadable", zap.String("dir", dir), zap.Error(err))
		return nil, ErrUnavailable
	}

	data, err := os.ReadFile(filepath.Join(dir, docstoreFile))
	if err != nil {
		return nil, ErrUnavailable
	}
	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		logger.Warn("Docstore file unreadable", zap.String("dir", dir), zap.Error(err))
		return nil, ErrUnavailable
	}

	if len(chunks) != len(idx.Embeddings) {
		logger.Warn("Vector store artifacts disagree",
			zap.Int("chunks", len(chunks)),
			zap.Int("embeddings", len(idx.Embeddings)),
		)
		return nil, ErrUnavailable
	}

	logger.Info("Vector store loaded", zap.String("dir", dir), zap.Int("chunks", len(chunks)))

	return &Store{chunks: chunks, embeddings: idx.Embeddings, dim: idx.Dim, embedder: embedder}, nil
}

// SimilaritySearch embeds the query and returns the k nearest chunks.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) ([]Chunk, error) {
	qe, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	type scored struct {
		idx   int
		score float64
	}
	results := make([]scored, 0, len(s.embeddings))
	for i, e := range s.embeddings {
		results = append(results, scored{idx: i, score: cosine(qe, e)})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	if k > len(results) {
		k = len(results)
	}
	chunks := make([]Chunk, 0, k)
	for _, r := range results[:k] {
		chunks = append(chunks, s.chunks[r.idx])
	}
	return chunks, nil
}

// FilterBySource returns every chunk of one source document, in stored
// order, without similarity scoring. An empty result means "no evidence".
func (s *Store) FilterBySource(source string) []Chunk {
	var out []Chunk
	for _, c := range s.chunks {
		if c.Metadata.Source == source {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of indexed chunks.
func (s *Store) Len() int {
	return len(s.chunks)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
