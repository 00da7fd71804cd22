package cache

import (
	"context"
	"testing"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

type fakeIndex struct {
	closed int
}

func (f *fakeIndex) Search(context.Context, []float32, int) ([]domain.ScoredChunk, error) {
	return nil, nil
}
func (f *fakeIndex) Len() int                    { return 0 }
func (f *fakeIndex) Close(context.Context) error { f.closed++; return nil }

func TestCacheEvictsAndClosesOldest(t *testing.T) {
	c, err := New(1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	first, second := &fakeIndex{}, &fakeIndex{}
	c.Add("a", first)
	c.Add("b", second)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to be evicted")
	}
	if got, ok := c.Get("b"); !ok || got != second {
		t.Fatalf("expected b to be cached")
	}
	if first.closed != 1 || second.closed != 0 {
		t.Fatalf("unexpected close counts: first=%d second=%d", first.closed, second.closed)
	}
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatalf("expected size error")
	}
}

func TestPurgeClosesEverything(t *testing.T) {
	c, err := New(4)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	a, b := &fakeIndex{}, &fakeIndex{}
	c.Add("a", a)
	c.Add("b", b)
	c.Purge()
	if c.Len() != 0 || a.closed != 1 || b.closed != 1 {
		t.Fatalf("expected empty cache with closed indices, len=%d a=%d b=%d", c.Len(), a.closed, b.closed)
	}
}
