package ports

import (
	"context"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

// AnalyzeRequest carries one uploaded filing and optional questions.
type AnalyzeRequest struct {
	Filename  string
	Content   []byte
	Questions []string
}

// FilingAnalyzer is the inbound contract for full document analysis.
type FilingAnalyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*domain.Analysis, error)
}

// FilingQuestioner answers a single question over an uploaded filing.
type FilingQuestioner interface {
	Ask(ctx context.Context, filename string, content []byte, question string) (*domain.QAResult, error)
}

// FilingTableReader returns only the labeled key tables of a filing.
type FilingTableReader interface {
	Tables(ctx context.Context, filename string, content []byte) (domain.Outcome[[]domain.LabeledTable], error)
}
