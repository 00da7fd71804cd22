package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
	"github.com/kirillkom/filing-analyzer/internal/core/ports"
)

const (
	BranchMetadata = "metadata"
	BranchTables   = "tables"
	BranchIndex    = "index"
	BranchQA       = "qa"
)

// AnalyzeUseCase runs the filing pipeline. Text extraction is the only fatal
// step; metadata, tables and the retrieval index run concurrently afterwards
// and each reports its own outcome.
type AnalyzeUseCase struct {
	extractor ports.TextExtractor
	scratch   ports.ScratchSpace
	metadata  *MetadataExtractor
	tables    *TableLocator
	index     *IndexBuilder
	qa        *QAResponder
	observer  ports.PipelineObserver
	logger    *slog.Logger
}

func NewAnalyzeUseCase(
	extractor ports.TextExtractor,
	scratch ports.ScratchSpace,
	metadata *MetadataExtractor,
	tables *TableLocator,
	index *IndexBuilder,
	qa *QAResponder,
	observer ports.PipelineObserver,
	logger *slog.Logger,
) *AnalyzeUseCase {
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeUseCase{
		extractor: extractor,
		scratch:   scratch,
		metadata:  metadata,
		tables:    tables,
		index:     index,
		qa:        qa,
		observer:  observer,
		logger:    logger,
	}
}

func (uc *AnalyzeUseCase) Analyze(ctx context.Context, req ports.AnalyzeRequest) (*domain.Analysis, error) {
	doc, text, err := uc.open(ctx, req.Filename, req.Content)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	analysis := &domain.Analysis{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Pages:      text.PageCount(),
	}
	joined := text.Text()

	var index ports.RetrievalIndex
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		analysis.Metadata = uc.runMetadata(gctx, joined)
		return nil
	})
	g.Go(func() error {
		analysis.Tables = uc.runTables(gctx, doc)
		return nil
	})
	g.Go(func() error {
		var outcome domain.Outcome[domain.IndexStats]
		index, outcome = uc.runIndex(gctx, doc, text, len(req.Questions) > 0)
		analysis.Index = outcome
		return nil
	})
	// Branches record failures in their outcomes and never return an error.
	_ = g.Wait()

	if index != nil {
		defer uc.closeIndex(ctx, index)
	}
	for _, q := range req.Questions {
		analysis.Answers = append(analysis.Answers, uc.runQA(ctx, index, analysis.Index.Err, q))
	}

	uc.logger.Info("analysis_completed",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"pages", analysis.Pages,
		"company", analysis.Metadata.CompanyName,
		"tables", len(analysis.Tables.Value),
		"questions", len(req.Questions),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return analysis, nil
}

// Ask runs the extraction gate, builds the index and answers one question.
func (uc *AnalyzeUseCase) Ask(ctx context.Context, filename string, content []byte, question string) (*domain.QAResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is required"))
	}
	doc, text, err := uc.open(ctx, filename, content)
	if err != nil {
		return nil, err
	}

	index, outcome := uc.runIndex(ctx, doc, text, true)
	if index != nil {
		defer uc.closeIndex(ctx, index)
	}
	answer := uc.runQA(ctx, index, outcome.Err, question)
	if !answer.OK() {
		return nil, answer.Err
	}
	result := answer.Value
	return &result, nil
}

// Tables runs the extraction gate and the table branch only.
func (uc *AnalyzeUseCase) Tables(ctx context.Context, filename string, content []byte) (domain.Outcome[[]domain.LabeledTable], error) {
	doc, _, err := uc.open(ctx, filename, content)
	if err != nil {
		return domain.Outcome[[]domain.LabeledTable]{}, err
	}
	return uc.runTables(ctx, doc), nil
}

func (uc *AnalyzeUseCase) open(ctx context.Context, filename string, content []byte) (*domain.Document, domain.ExtractedText, error) {
	if len(content) == 0 {
		return nil, domain.ExtractedText{}, domain.WrapError(domain.ErrDocumentParse, "extract text", errors.New("empty document body"))
	}
	doc := domain.NewDocument(uuid.NewString(), strings.TrimSpace(filename), content)

	started := time.Now()
	text, err := uc.extractor.Extract(ctx, doc.Content)
	uc.observer.ObserveBranch("extract", err, time.Since(started).Seconds())
	if err != nil {
		uc.logger.Warn("text_extraction_failed", "document_id", doc.ID, "filename", doc.Filename, "error", err)
		if !domain.IsKind(err, domain.ErrDocumentParse) && ctx.Err() == nil {
			err = domain.WrapError(domain.ErrDocumentParse, "extract text", err)
		}
		return nil, domain.ExtractedText{}, err
	}
	return doc, text, nil
}

func (uc *AnalyzeUseCase) runMetadata(ctx context.Context, text string) domain.Metadata {
	started := time.Now()
	meta := uc.metadata.Extract(ctx, text)
	uc.observer.ObserveBranch(BranchMetadata, nil, time.Since(started).Seconds())
	return meta
}

func (uc *AnalyzeUseCase) runTables(ctx context.Context, doc *domain.Document) domain.Outcome[[]domain.LabeledTable] {
	started := time.Now()
	outcome := uc.locateTables(ctx, doc)
	uc.observer.ObserveBranch(BranchTables, outcome.Err, time.Since(started).Seconds())
	if !outcome.OK() {
		uc.logger.Warn("table_branch_failed", "document_id", doc.ID, "error", outcome.Err)
	}
	return outcome
}

func (uc *AnalyzeUseCase) locateTables(ctx context.Context, doc *domain.Document) domain.Outcome[[]domain.LabeledTable] {
	path, cleanup, err := uc.scratch.Materialize(ctx, doc)
	if err != nil {
		return domain.Outcome[[]domain.LabeledTable]{
			Value: []domain.LabeledTable{},
			Err:   domain.WrapError(domain.ErrTableExtraction, "materialize document", err),
		}
	}
	defer cleanup()

	outcome, detected := uc.tables.Locate(ctx, path)
	uc.observer.ObserveTables(len(outcome.Value), detected)
	return outcome
}

// runIndex skips the embedding work when nothing will query the index.
func (uc *AnalyzeUseCase) runIndex(ctx context.Context, doc *domain.Document, text domain.ExtractedText, needed bool) (ports.RetrievalIndex, domain.Outcome[domain.IndexStats]) {
	if !needed {
		return nil, domain.Success(domain.IndexStats{Skipped: true})
	}
	started := time.Now()
	index, stats, err := uc.index.Build(ctx, doc, text)
	uc.observer.ObserveBranch(BranchIndex, err, time.Since(started).Seconds())
	if err != nil {
		uc.logger.Warn("index_branch_failed", "document_id", doc.ID, "error", err)
		return nil, domain.Failure[domain.IndexStats](err)
	}
	uc.observer.ObserveChunks(stats.Chunks)
	return index, domain.Success(stats)
}

func (uc *AnalyzeUseCase) runQA(ctx context.Context, index ports.RetrievalIndex, indexErr error, question string) domain.Outcome[domain.QAResult] {
	started := time.Now()
	var (
		result *domain.QAResult
		err    error
	)
	if indexErr != nil {
		err = domain.WrapError(domain.ErrQA, "answer", fmt.Errorf("retrieval index unavailable: %w", indexErr))
	} else {
		result, err = uc.qa.Answer(ctx, index, question)
	}
	uc.observer.ObserveBranch(BranchQA, err, time.Since(started).Seconds())
	if err != nil {
		uc.logger.Warn("qa_branch_failed", "question", question, "error", err)
		return domain.Outcome[domain.QAResult]{Value: domain.QAResult{Question: question}, Err: err}
	}
	return domain.Success(*result)
}

func (uc *AnalyzeUseCase) closeIndex(ctx context.Context, index ports.RetrievalIndex) {
	if err := index.Close(context.WithoutCancel(ctx)); err != nil {
		uc.logger.Warn("index_close_failed", "error", err)
	}
}

type noopObserver struct{}

func (noopObserver) ObserveBranch(string, error, float64) {}
func (noopObserver) ObserveTables(int, int)               {}
func (noopObserver) ObserveChunks(int)                    {}
