package ingestion

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniconsult/backend/internal/vector"
)

type countingEmbedder struct {
	batchCalls int
}

func (c *countingEmbedder) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (c *countingEmbedder) GenerateBatchEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	c.batchCalls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func TestChunk_PageBoundariesPreserved(t *testing.T) {
	p := NewProcessor(&countingEmbedder{}, t.TempDir())

	pages := []Page{
		{Text: "nội dung trang một", Source: "so-tay.pdf", Page: 1, TotalPages: 2},
		{Text: "nội dung trang hai", Source: "so-tay.pdf", Page: 2, TotalPages: 2},
	}
	chunks := p.Chunk(pages)

	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Metadata.Page)
	assert.Equal(t, 2, chunks[1].Metadata.Page)
	assert.Equal(t, "so-tay.pdf", chunks[0].Metadata.Source)
	assert.Equal(t, 2, chunks[0].Metadata.TotalPages)
}

func TestChunk_SkipsBlankPages(t *testing.T) {
	p := NewProcessor(&countingEmbedder{}, t.TempDir())

	chunks := p.Chunk([]Page{
		{Text: "   \n\t ", Source: "so-tay.pdf", Page: 1},
		{Text: "có nội dung", Source: "so-tay.pdf", Page: 2},
	})

	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].Metadata.Page)
}

func TestChunk_LongPageSplitsWithOverlap(t *testing.T) {
	p := NewProcessor(&countingEmbedder{}, t.TempDir())

	// ~2500 characters of 9-char words forces multiple chunks.
	words := make([]string, 250)
	for i := range words {
		words[i] = "tuvan" + string(rune('a'+i%26)) + "xyz"
	}
	pages := []Page{{Text: strings.Join(words, " "), Source: "so-tay.pdf", Page: 1, TotalPages: 1}}

	chunks := p.Chunk(pages)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 1100)
		assert.Equal(t, 1, c.Metadata.Page)
	}

	// Consecutive chunks share trailing/leading words.
	first := strings.Fields(chunks[0].Text)
	second := strings.Fields(chunks[1].Text)
	assert.Equal(t, first[len(first)-1], second[9])
}

func TestProcessPages_BuildsAndPersists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	emb := &countingEmbedder{}
	p := NewProcessor(emb, dir)

	pages := []Page{{Text: "học phí mười triệu", Source: "so-tay.pdf", Page: 1, TotalPages: 1}}
	require.NoError(t, p.ProcessPages(context.Background(), pages, false))

	assert.True(t, vector.Exists(dir))
	assert.Equal(t, 1, emb.batchCalls)
}

func TestProcessPages_SkipsWhenIndexExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	emb := &countingEmbedder{}
	p := NewProcessor(emb, dir)

	pages := []Page{{Text: "học phí mười triệu", Source: "so-tay.pdf", Page: 1, TotalPages: 1}}
	require.NoError(t, p.ProcessPages(context.Background(), pages, false))
	require.NoError(t, p.ProcessPages(context.Background(), pages, false))

	// Second call is a no-op without force.
	assert.Equal(t, 1, emb.batchCalls)

	require.NoError(t, p.ProcessPages(context.Background(), pages, true))
	assert.Equal(t, 2, emb.batchCalls)
}

func TestProcessPages_NoText(t *testing.T) {
	p := NewProcessor(&countingEmbedder{}, filepath.Join(t.TempDir(), "index"))

	err := p.ProcessPages(context.Background(), []Page{{Text: "  ", Source: "x.pdf", Page: 1}}, false)
	assert.Error(t, err)
}
