// Package ingestion turns extracted document pages into chunks, embeds them
// and persists the vector store. PDF text extraction itself happens
// upstream; this pipeline receives page text plus provenance.
package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uniconsult/backend/internal/metrics"
	"github.com/uniconsult/backend/internal/vector"
	"github.com/uniconsult/backend/pkg/logger"
)

// Page is one extracted document page.
type Page struct {
	Text       string
	Source     string
	Page       int
	TotalPages int
}

type Processor struct {
	embedder     vector.Embedder
	indexDir     string
	chunkSize    int
	chunkOverlap int
}

func NewProcessor(embedder vector.Embedder, indexDir string) *Processor {
	return &Processor{
		embedder:     embedder,
		indexDir:     indexDir,
		chunkSize:    1000,
		chunkOverlap: 100,
	}
}

// ProcessPages chunks the pages, embeds every chunk and persists the store.
// When the persisted index already exists and force is false, nothing
// happens; rebuilds are explicit.
func (p *Processor) ProcessPages(ctx context.Context, pages []Page, force bool) error {
	if !force && vector.Exists(p.indexDir) {
		logger.Info("Vector index already exists, skipping ingestion",
			zap.String("dir", p.indexDir),
		)
		return nil
	}

	chunks := p.Chunk(pages)
	if len(chunks) == 0 {
		return fmt.Errorf("no text extracted from document pages")
	}

	logger.Info("Document chunked", zap.Int("pages", len(pages)), zap.Int("chunks", len(chunks)))

	start := time.Now()
	store, err := vector.Build(ctx, chunks, p.embedder)
	if err != nil {
		return fmt.Errorf("failed to build vector store: %w", err)
	}

	if err := store.Save(p.indexDir); err != nil {
		return fmt.Errorf("failed to persist vector store: %w", err)
	}

	metrics.DocumentsProcessed.Inc()
	logger.Info("Document ingested",
		zap.Int("chunks", store.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)

	return nil
}

// Chunk splits page text into overlapping word-bounded spans. A chunk never
// crosses a page boundary, so provenance stays exact.
func (p *Processor) Chunk(pages []Page) []vector.Chunk {
	var chunks []vector.Chunk

	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		for _, span := range p.splitText(page.Text) {
			chunks = append(chunks, vector.Chunk{
				Text: span,
				Metadata: vector.ChunkMetadata{
					Source:     page.Source,
					Page:       page.Page,
					TotalPages: page.TotalPages,
				},
			})
		}
	}

	return chunks
}

func (p *Processor) splitText(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var spans []string
	var current strings.Builder
	currentSize := 0

	for _, word := range words {
		wordLen := len(word) + 1

		if currentSize+wordLen > p.chunkSize && current.Len() > 0 {
			spans = append(spans, strings.TrimSpace(current.String()))

			overlapWords := strings.Fields(current.String())
			overlapStart := len(overlapWords) - p.chunkOverlap/10
			if overlapStart < 0 {
				overlapStart = 0
			}
			current.Reset()
			current.WriteString(strings.Join(overlapWords[overlapStart:], " ") + " ")
			currentSize = current.Len()
		}

		current.WriteString(word + " ")
		currentSize += wordLen
	}

	if current.Len() > 0 {
		spans = append(spans, strings.TrimSpace(current.String()))
	}

	return spans
}
