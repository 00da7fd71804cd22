package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

// Extractor reads page text straight from the uploaded bytes; no temp file is needed.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, content []byte) (text domain.ExtractedText, err error) {
	if len(content) == 0 {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrDocumentParse, "extract text", errors.New("empty document body"))
	}

	defer func() {
		if r := recover(); r != nil {
			text = domain.ExtractedText{}
			err = domain.WrapError(domain.ErrDocumentParse, "extract text", fmt.Errorf("decoder panic: %v", r))
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrDocumentParse, "open pdf", err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return domain.ExtractedText{}, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return domain.ExtractedText{}, domain.WrapError(domain.ErrDocumentParse, fmt.Sprintf("decode page %d", i), err)
		}
		pages = append(pages, pageText)
	}
	return domain.ExtractedText{Pages: pages}, nil
}
