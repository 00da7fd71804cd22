// Package scratch materializes uploads as files for libraries that need a path.
package scratch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

type Space struct {
	basePath string
}

// New prepares the parent directory. An empty basePath uses the OS temp dir.
func New(basePath string) (*Space, error) {
	if basePath == "" {
		basePath = filepath.Join(os.TempDir(), "filing-analyzer")
	}
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Space{basePath: basePath}, nil
}

// Materialize writes the document into a fresh directory owned by one request.
// cleanup removes the directory and must run on every exit path.
func (s *Space) Materialize(ctx context.Context, doc *domain.Document) (string, func(), error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	dir := filepath.Join(s.basePath, uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", nil, fmt.Errorf("create request dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("scratch_cleanup_failed", "dir", dir, "error", err)
		}
	}

	path := filepath.Join(dir, safeName(doc.Filename))
	if err := os.WriteFile(path, doc.Content, 0o600); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write file: %w", err)
	}
	return path, cleanup, nil
}

func safeName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "document.pdf"
	}
	return name
}
