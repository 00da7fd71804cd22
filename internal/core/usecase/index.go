package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
	"github.com/kirillkom/filing-analyzer/internal/core/ports"
)

const defaultEmbedBatchSize = 64

type IndexBuilder struct {
	chunker   ports.Chunker
	embedder  ports.Embedder
	store     ports.VectorStore
	cache     ports.IndexCache
	batchSize int
}

func NewIndexBuilder(
	chunker ports.Chunker,
	embedder ports.Embedder,
	store ports.VectorStore,
	cache ports.IndexCache,
	batchSize int,
) *IndexBuilder {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	return &IndexBuilder{
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		cache:     cache,
		batchSize: batchSize,
	}
}

// Chunks splits every page on its own so each chunk keeps its page number.
func (b *IndexBuilder) Chunks(text domain.ExtractedText) []domain.RetrievalChunk {
	var out []domain.RetrievalChunk
	for i, page := range text.Pages {
		for _, c := range b.chunker.Split(page) {
			out = append(out, domain.RetrievalChunk{Index: len(out), Page: i + 1, Text: c})
		}
	}
	return out
}

// Build returns an index the caller must Close. Indices served from the cache
// ignore Close so one request cannot release another's index.
func (b *IndexBuilder) Build(ctx context.Context, doc *domain.Document, text domain.ExtractedText) (ports.RetrievalIndex, domain.IndexStats, error) {
	if b.cache != nil {
		if idx, ok := b.cache.Get(doc.SHA256); ok {
			return sharedIndex{idx}, domain.IndexStats{Chunks: idx.Len(), Cached: true}, nil
		}
	}
	if b.embedder == nil {
		return nil, domain.IndexStats{}, domain.WrapError(domain.ErrMissingCredential, "build index", errors.New("no embedding backend configured"))
	}

	chunks := b.Chunks(text)
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += b.batchSize {
		end := min(start+b.batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}
		batch, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, domain.IndexStats{}, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != len(texts) {
			return nil, domain.IndexStats{}, fmt.Errorf("embed chunks %d-%d: got %d vectors", start, end-1, len(batch))
		}
		vectors = append(vectors, batch...)
	}

	idx, err := b.store.Build(ctx, doc, chunks, vectors)
	if err != nil {
		return nil, domain.IndexStats{}, fmt.Errorf("build vector index: %w", err)
	}
	stats := domain.IndexStats{Chunks: len(chunks)}
	if b.cache != nil {
		b.cache.Add(doc.SHA256, idx)
		return sharedIndex{idx}, stats, nil
	}
	return idx, stats, nil
}

type sharedIndex struct {
	ports.RetrievalIndex
}

func (sharedIndex) Close(context.Context) error { return nil }
