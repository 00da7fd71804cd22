package scratch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

func TestMaterializeWritesAndCleansUp(t *testing.T) {
	base := t.TempDir()
	space, err := New(base)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	doc := domain.NewDocument("doc-1", "../../etc/10k.pdf", []byte("%PDF-1.4 body"))
	path, cleanup, err := space.Materialize(context.Background(), doc)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if filepath.Base(path) != "10k.pdf" {
		t.Fatalf("unexpected file name %q", path)
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "" || rel[0] == '.' {
		t.Fatalf("file escaped the scratch dir: %q", path)
	}
	got, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(got, doc.Content) {
		t.Fatalf("unexpected file content %q %v", got, err)
	}

	cleanup()
	if _, err := os.Stat(filepath.Dir(path)); !os.IsNotExist(err) {
		t.Fatalf("expected request dir to be removed, stat err = %v", err)
	}
}

func TestMaterializeUsesDistinctDirs(t *testing.T) {
	space, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	doc := domain.NewDocument("d", "a.pdf", []byte("x"))
	first, c1, err := space.Materialize(context.Background(), doc)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	defer c1()
	second, c2, err := space.Materialize(context.Background(), doc)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	defer c2()
	if filepath.Dir(first) == filepath.Dir(second) {
		t.Fatalf("requests must not share a directory")
	}
}

func TestSafeName(t *testing.T) {
	for in, want := range map[string]string{
		"":              "document.pdf",
		"..":            "document.pdf",
		`C:\docs\q.pdf`: "q.pdf",
		"report.pdf":    "report.pdf",
	} {
		if got := safeName(in); got != want {
			t.Fatalf("safeName(%q) = %q, want %q", in, got, want)
		}
	}
}
