package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

func threePages() domain.ExtractedText {
	return domain.ExtractedText{Pages: []string{
		"Overview\n\nRevenue grew",
		"",
		"Total current assets 4,100",
	}}
}

func TestChunksKeepPageNumbers(t *testing.T) {
	b := NewIndexBuilder(splitterFake{}, nil, nil, nil, 0)
	chunks := b.Chunks(threePages())
	want := []domain.RetrievalChunk{
		{Index: 0, Page: 1, Text: "Overview"},
		{Index: 1, Page: 1, Text: "Revenue grew"},
		{Index: 2, Page: 3, Text: "Total current assets 4,100"},
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d = %+v, want %+v", i, chunks[i], want[i])
		}
	}
}

func TestBuildEmbedsInBatches(t *testing.T) {
	embedder := &embedderFake{}
	store := &storeFake{}
	b := NewIndexBuilder(splitterFake{}, embedder, store, nil, 2)

	doc := domain.NewDocument("doc-1", "q1.pdf", []byte("%PDF"))
	idx, stats, err := b.Build(context.Background(), doc, threePages())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if stats.Chunks != 3 || stats.Cached {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if idx.Len() != 3 {
		t.Fatalf("expected index of 3 chunks, got %d", idx.Len())
	}
	if len(embedder.batches) != 2 || len(embedder.batches[0]) != 2 || len(embedder.batches[1]) != 1 {
		t.Fatalf("unexpected embedding batches: %#v", embedder.batches)
	}
	if err := idx.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if store.built[0].closed != 1 {
		t.Fatalf("expected uncached index to be closed")
	}
}

func TestBuildServesCachedIndex(t *testing.T) {
	embedder := &embedderFake{}
	store := &storeFake{}
	cache := &cacheFake{}
	b := NewIndexBuilder(splitterFake{}, embedder, store, cache, 0)
	doc := domain.NewDocument("doc-1", "q1.pdf", []byte("%PDF"))

	first, stats, err := b.Build(context.Background(), doc, threePages())
	if err != nil || stats.Cached {
		t.Fatalf("first Build() = %+v, %v", stats, err)
	}
	_ = first.Close(context.Background())

	again := domain.NewDocument("doc-2", "copy.pdf", []byte("%PDF"))
	second, stats, err := b.Build(context.Background(), again, threePages())
	if err != nil {
		t.Fatalf("second Build() error = %v", err)
	}
	if !stats.Cached || stats.Chunks != 3 {
		t.Fatalf("expected cached stats, got %+v", stats)
	}
	if len(store.built) != 1 || len(embedder.batches) != 1 {
		t.Fatalf("expected a single build, got %d builds and %d batches", len(store.built), len(embedder.batches))
	}
	_ = second.Close(context.Background())
	if store.built[0].closed != 0 {
		t.Fatalf("cached index must survive Close by a caller")
	}
}

func TestBuildFailures(t *testing.T) {
	doc := domain.NewDocument("doc-1", "q1.pdf", []byte("%PDF"))

	_, _, err := NewIndexBuilder(splitterFake{}, nil, &storeFake{}, nil, 0).Build(context.Background(), doc, threePages())
	if !domain.IsKind(err, domain.ErrMissingCredential) {
		t.Fatalf("expected missing credential, got %v", err)
	}

	_, _, err = NewIndexBuilder(splitterFake{}, &embedderFake{err: errBoom}, &storeFake{}, nil, 0).Build(context.Background(), doc, threePages())
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected embed error, got %v", err)
	}

	_, _, err = NewIndexBuilder(splitterFake{}, &embedderFake{}, &storeFake{err: errBoom}, nil, 0).Build(context.Background(), doc, threePages())
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
