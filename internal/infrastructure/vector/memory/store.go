// Package memory is the default retrieval index: exact cosine search over
// vectors held in process memory.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
	"github.com/kirillkom/filing-analyzer/internal/core/ports"
)

type Store struct{}

func New() *Store {
	return &Store{}
}

func (s *Store) Build(_ context.Context, _ *domain.Document, chunks []domain.RetrievalChunk, vectors [][]float32) (ports.RetrievalIndex, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunks/vectors mismatch")
	}
	idx := &Index{
		chunks:  make([]domain.RetrievalChunk, len(chunks)),
		vectors: make([][]float64, len(vectors)),
	}
	copy(idx.chunks, chunks)
	for i, v := range vectors {
		if i > 0 && len(v) != len(vectors[0]) {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), len(vectors[0]))
		}
		idx.vectors[i] = normalize(v)
	}
	return idx, nil
}

// Index is immutable after Build and safe for concurrent searches.
type Index struct {
	chunks  []domain.RetrievalChunk
	vectors [][]float64
}

func (i *Index) Len() int { return len(i.chunks) }

func (i *Index) Search(ctx context.Context, query []float32, limit int) ([]domain.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 || len(i.chunks) == 0 {
		return nil, nil
	}
	if len(query) != len(i.vectors[0]) {
		return nil, fmt.Errorf("query dimension %d, index dimension %d", len(query), len(i.vectors[0]))
	}

	q := normalize(query)
	scored := make([]domain.ScoredChunk, len(i.chunks))
	for n, v := range i.vectors {
		scored[n] = domain.ScoredChunk{RetrievalChunk: i.chunks[n], Score: dot(q, v)}
	}
	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Score > scored[b].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (i *Index) Close(context.Context) error { return nil }

func normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	var norm float64
	for n, x := range v {
		out[n] = float64(x)
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for n := range out {
		out[n] /= norm
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for n := range a {
		s += a[n] * b[n]
	}
	return s
}
