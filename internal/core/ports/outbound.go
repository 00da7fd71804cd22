package ports

import (
	"context"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

// TextExtractor converts raw PDF bytes into page texts.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte) (domain.ExtractedText, error)
}

// RegionTextReader reopens the PDF at path and returns only the text inside bbox on page.
type RegionTextReader interface {
	TextInRegion(ctx context.Context, path string, page int, bbox domain.Rect) (string, error)
}

// Chunker splits text into overlapping windows.
type Chunker interface {
	Split(text string) []string
}

// RetrievalIndex is a queryable, per-document vector index.
type RetrievalIndex interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.ScoredChunk, error)
	Len() int
	Close(ctx context.Context) error
}

// VectorStore creates a RetrievalIndex for one document.
type VectorStore interface {
	Build(ctx context.Context, doc *domain.Document, chunks []domain.RetrievalChunk, vectors [][]float32) (RetrievalIndex, error)
}

// IndexCache keeps built indices keyed by document content hash.
type IndexCache interface {
	Get(key string) (RetrievalIndex, bool)
	Add(key string, index RetrievalIndex)
}

// ScratchSpace materializes a document on disk for libraries that need a file path.
// The returned cleanup func must be called on every exit path.
type ScratchSpace interface {
	Materialize(ctx context.Context, doc *domain.Document) (path string, cleanup func(), err error)
}

// PipelineObserver receives branch-level outcomes for metrics.
type PipelineObserver interface {
	ObserveBranch(branch string, err error, seconds float64)
	ObserveTables(kept, detected int)
	ObserveChunks(n int)
}
