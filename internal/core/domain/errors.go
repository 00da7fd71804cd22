package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrTemporary     = errors.New("temporary failure")
	ErrDocumentParse = errors.New("document parse error")

	// Soft failures: reported on their own branch, never fatal for the request.
	ErrTableExtraction   = errors.New("table extraction error")
	ErrDateNotFound      = errors.New("reporting period not found")
	ErrCompanyNotFound   = errors.New("company name not found")
	ErrQA                = errors.New("question answering unavailable")
	ErrMissingCredential = errors.New("model credential is not configured")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
