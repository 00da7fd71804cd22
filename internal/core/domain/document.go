package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Document is one uploaded filing. It is immutable and lives for a single request.
type Document struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Content  []byte `json:"-"`
	SHA256   string `json:"sha256"`
}

func NewDocument(id, filename string, content []byte) *Document {
	sum := sha256.Sum256(content)
	return &Document{
		ID:       id,
		Filename: filename,
		Content:  content,
		SHA256:   hex.EncodeToString(sum[:]),
	}
}

// ExtractedText holds page texts in document order.
type ExtractedText struct {
	Pages []string `json:"pages"`
}

// Text concatenates all pages. A line break is inserted between pages only when
// the preceding page does not already end with one.
func (t ExtractedText) Text() string {
	var b strings.Builder
	endsWithBreak := true
	for _, page := range t.Pages {
		if page == "" {
			continue
		}
		if !endsWithBreak {
			b.WriteByte('\n')
		}
		b.WriteString(page)
		endsWithBreak = strings.HasSuffix(page, "\n")
	}
	return b.String()
}

func (t ExtractedText) PageCount() int {
	return len(t.Pages)
}

type Metadata struct {
	CompanyName  string   `json:"company_name"`
	PeriodEnding string   `json:"period_ending"`
	Notes        []string `json:"notes,omitempty"`
}

// Outcome is the explicit result of a branch that may fail without failing the request.
type Outcome[T any] struct {
	Value T
	Err   error
}

func Success[T any](value T) Outcome[T] {
	return Outcome[T]{Value: value}
}

func Failure[T any](err error) Outcome[T] {
	return Outcome[T]{Err: err}
}

func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// ErrorMessage returns a human readable failure message, or "" on success.
func (o Outcome[T]) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// IndexStats describes the retrieval index. Skipped is set when no question needed it.
type IndexStats struct {
	Chunks  int  `json:"chunks"`
	Cached  bool `json:"cached"`
	Skipped bool `json:"skipped,omitempty"`
}

type Analysis struct {
	DocumentID string
	Filename   string
	Pages      int
	Metadata   Metadata
	Tables     Outcome[[]LabeledTable]
	Index      Outcome[IndexStats]
	Answers    []Outcome[QAResult]
}
