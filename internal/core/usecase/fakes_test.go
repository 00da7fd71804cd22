package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
	"github.com/kirillkom/filing-analyzer/internal/core/ports"
)

type extractorFake struct {
	pages []string
	err   error
	calls int
}

func (f *extractorFake) Extract(context.Context, []byte) (domain.ExtractedText, error) {
	f.calls++
	if f.err != nil {
		return domain.ExtractedText{}, f.err
	}
	return domain.ExtractedText{Pages: f.pages}, nil
}

type recognizerFake struct {
	entities []string
	err      error
}

func (f *recognizerFake) Organizations(context.Context, string) ([]string, error) {
	return f.entities, f.err
}

type detectorFake struct {
	tables []domain.TableCandidate
	err    error
	panic  bool
	calls  int
}

func (f *detectorFake) Detect(context.Context, string) ([]domain.TableCandidate, error) {
	f.calls++
	if f.panic {
		panic("corrupt content stream")
	}
	return f.tables, f.err
}

// regionsFake serves clipped text keyed by page.
type regionsFake struct {
	byPage map[int]string
	err    error
}

func (f *regionsFake) TextInRegion(_ context.Context, _ string, page int, _ domain.Rect) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.byPage[page], nil
}

type scratchFake struct {
	mu       sync.Mutex
	cleaned  int
	err      error
	lastPath string
}

func (f *scratchFake) Materialize(_ context.Context, doc *domain.Document) (string, func(), error) {
	if f.err != nil {
		return "", nil, f.err
	}
	path := "/scratch/" + doc.ID + "/" + doc.Filename
	f.mu.Lock()
	f.lastPath = path
	f.mu.Unlock()
	return path, func() {
		f.mu.Lock()
		f.cleaned++
		f.mu.Unlock()
	}, nil
}

type splitterFake struct{}

// Split cuts on blank lines so tests can reason about chunk boundaries.
func (splitterFake) Split(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(part) != "" {
			out = append(out, part)
		}
	}
	return out
}

// embedderFake maps text to a two-dimensional vector: texts mentioning "assets"
// point one way, everything else the other.
type embedderFake struct {
	mu        sync.Mutex
	batches   [][]string
	err       error
	queryErr  error
	queryText string
}

func vectorFor(text string) []float32 {
	if strings.Contains(strings.ToLower(text), "assets") {
		return []float32{1, 0}
	}
	return []float32{0, 1}
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batches = append(f.batches, texts)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, vectorFor(t))
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.queryText = text
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return vectorFor(text), nil
}

// generatorFake keeps the first keep chunks when keep > 0, like a tight prompt budget.
type generatorFake struct {
	answer  string
	err     error
	block   bool
	keep    int
	sources []domain.ScoredChunk
}

func (f *generatorFake) GenerateAnswer(ctx context.Context, _ string, chunks []domain.ScoredChunk) (string, []domain.ScoredChunk, error) {
	f.sources = chunks
	if f.block {
		<-ctx.Done()
		return "", nil, ctx.Err()
	}
	if f.err != nil {
		return "", nil, f.err
	}
	if f.keep > 0 && f.keep < len(chunks) {
		chunks = chunks[:f.keep]
	}
	return f.answer, chunks, nil
}

// indexFake is an exact-match index: chunks whose vector equals the query come first.
type indexFake struct {
	chunks  []domain.RetrievalChunk
	vectors [][]float32
	closed  int
}

func (f *indexFake) Search(_ context.Context, q []float32, limit int) ([]domain.ScoredChunk, error) {
	var hits, rest []domain.ScoredChunk
	for i, c := range f.chunks {
		if f.vectors[i][0] == q[0] && f.vectors[i][1] == q[1] {
			hits = append(hits, domain.ScoredChunk{RetrievalChunk: c, Score: 1})
		} else {
			rest = append(rest, domain.ScoredChunk{RetrievalChunk: c})
		}
	}
	out := append(hits, rest...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *indexFake) Len() int { return len(f.chunks) }

func (f *indexFake) Close(context.Context) error {
	f.closed++
	return nil
}

type storeFake struct {
	built []*indexFake
	err   error
}

func (f *storeFake) Build(_ context.Context, _ *domain.Document, chunks []domain.RetrievalChunk, vectors [][]float32) (ports.RetrievalIndex, error) {
	if f.err != nil {
		return nil, f.err
	}
	idx := &indexFake{chunks: chunks, vectors: vectors}
	f.built = append(f.built, idx)
	return idx, nil
}

type cacheFake struct {
	entries map[string]ports.RetrievalIndex
}

func (f *cacheFake) Get(key string) (ports.RetrievalIndex, bool) {
	idx, ok := f.entries[key]
	return idx, ok
}

func (f *cacheFake) Add(key string, idx ports.RetrievalIndex) {
	if f.entries == nil {
		f.entries = make(map[string]ports.RetrievalIndex)
	}
	f.entries[key] = idx
}

type observerFake struct {
	mu       sync.Mutex
	branches map[string]error
	kept     int
	detected int
	chunks   int
}

func (f *observerFake) ObserveBranch(branch string, err error, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.branches == nil {
		f.branches = make(map[string]error)
	}
	f.branches[branch] = err
}

func (f *observerFake) ObserveTables(kept, detected int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kept, f.detected = kept, detected
}

func (f *observerFake) ObserveChunks(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = n
}

var errBoom = errors.New("boom")
