// Package ports declares the contracts between the analysis core and its adapters.
//
// The four model-driven capabilities (entity recognition, table detection,
// embeddings and generation) are probabilistic and live behind the interfaces in
// this file so alternative models can be substituted without touching use cases.
package ports

import (
	"context"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

// EntityRecognizer returns spans labeled as organizations, in extraction order.
type EntityRecognizer interface {
	Organizations(ctx context.Context, text string) ([]string, error)
}

// TableDetector finds tabular regions in the PDF stored at path.
// Results are ordered by page, then top-to-bottom within a page.
type TableDetector interface {
	Detect(ctx context.Context, path string) ([]domain.TableCandidate, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// AnswerGenerator creates the final user-facing answer from retrieved context.
// It returns the chunks that fit into the prompt, which may be fewer than given.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, chunks []domain.ScoredChunk) (string, []domain.ScoredChunk, error)
}
