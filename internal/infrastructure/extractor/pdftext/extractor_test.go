package pdftext

import (
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
	"github.com/kirillkom/filing-analyzer/internal/infrastructure/pdf/pdftest"
)

func textPage(lines ...string) pdftest.Page {
	runs := make([]pdftest.Run, 0, len(lines))
	y := 720.0
	for _, l := range lines {
		runs = append(runs, pdftest.Text(72, y, l))
		y -= 14
	}
	return pdftest.Page{Runs: runs}
}

func TestExtractReadsPagesInOrder(t *testing.T) {
	content := pdftest.Build(
		textPage("Acme Holdings Inc. annual report"),
		textPage("for the fiscal year ended: December 31, 2023"),
	)

	got, err := NewExtractor().Extract(context.Background(), content)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.PageCount() != 2 {
		t.Fatalf("expected 2 pages, got %d", got.PageCount())
	}
	text := got.Text()
	first := strings.Index(text, "Acme Holdings Inc.")
	second := strings.Index(text, "December 31, 2023")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("unexpected text order: %q", text)
	}
}

func TestExtractEmptyPagesYieldEmptyText(t *testing.T) {
	got, err := NewExtractor().Extract(context.Background(), pdftest.Build(pdftest.Page{}, pdftest.Page{}))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Text() != "" {
		t.Fatalf("expected empty text, got %q", got.Text())
	}
}

func TestExtractLengthGrowsWithPages(t *testing.T) {
	pages := []pdftest.Page{
		textPage("Item 1. Business"),
		pdftest.Page{},
		textPage("Item 7. Management discussion"),
		textPage("Item 8. Financial statements"),
	}
	prev := -1
	for n := 1; n <= len(pages); n++ {
		got, err := NewExtractor().Extract(context.Background(), pdftest.Build(pages[:n]...))
		if err != nil {
			t.Fatalf("Extract(%d pages) error = %v", n, err)
		}
		length := len(got.Text())
		if length < prev {
			t.Fatalf("text shrank from %d to %d at %d pages", prev, length, n)
		}
		prev = length
	}
}

func TestExtractMalformedBytes(t *testing.T) {
	cases := map[string][]byte{
		"empty":     nil,
		"garbage":   []byte("this is not a pdf at all"),
		"truncated": pdftest.Build(textPage("Acme Inc."))[:40],
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewExtractor().Extract(context.Background(), content)
			if !domain.IsKind(err, domain.ErrDocumentParse) {
				t.Fatalf("expected document parse error, got %v", err)
			}
		})
	}
}

func TestExtractHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExtractor().Extract(ctx, pdftest.Build(textPage("Acme Inc.")))
	if err == nil {
		t.Fatalf("expected context error")
	}
}
