package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
	"github.com/kirillkom/filing-analyzer/internal/core/ports"
)

// TableLocator keeps detected tables whose clipped page text mentions a keyword
// and labels them by position.
type TableLocator struct {
	detector ports.TableDetector
	regions  ports.RegionTextReader
	keywords domain.KeywordSet
	labels   []string
}

func NewTableLocator(
	detector ports.TableDetector,
	regions ports.RegionTextReader,
	keywords domain.KeywordSet,
	labels []string,
) *TableLocator {
	if len(labels) == 0 {
		labels = domain.DefaultTableLabels
	}
	return &TableLocator{
		detector: detector,
		regions:  regions,
		keywords: keywords,
		labels:   labels,
	}
}

// Locate never returns a hard error. Any internal failure, including a panic
// in the PDF layer, yields an empty list and an ErrTableExtraction warning.
func (l *TableLocator) Locate(ctx context.Context, path string) (out domain.Outcome[[]domain.LabeledTable], detected int) {
	defer func() {
		if r := recover(); r != nil {
			out = domain.Outcome[[]domain.LabeledTable]{
				Value: []domain.LabeledTable{},
				Err:   domain.WrapError(domain.ErrTableExtraction, "locate tables", fmt.Errorf("panic: %v", r)),
			}
		}
	}()

	kept, detected, err := l.relevant(ctx, path)
	if err != nil {
		return domain.Outcome[[]domain.LabeledTable]{
			Value: []domain.LabeledTable{},
			Err:   domain.WrapError(domain.ErrTableExtraction, "locate tables", err),
		}, detected
	}
	return domain.Success(domain.LabelTables(kept, l.labels)), detected
}

func (l *TableLocator) relevant(ctx context.Context, path string) ([]domain.TableCandidate, int, error) {
	if l.detector == nil || l.regions == nil {
		return nil, 0, fmt.Errorf("table detection is not configured")
	}
	candidates, err := l.detector.Detect(ctx, path)
	if err != nil {
		return nil, 0, fmt.Errorf("detect tables: %w", err)
	}
	if l.keywords.Len() == 0 {
		return nil, len(candidates), nil
	}

	kept := make([]domain.TableCandidate, 0, len(candidates))
	for _, c := range candidates {
		text, err := l.regions.TextInRegion(ctx, path, c.Page, c.BBox)
		if err != nil {
			return nil, len(candidates), fmt.Errorf("read page %d region: %w", c.Page, err)
		}
		if !l.keywords.MatchesAny(text) {
			continue
		}
		c.KeywordHit = true
		kept = append(kept, c)
	}
	return kept, len(candidates), nil
}
