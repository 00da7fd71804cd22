package httpadapter

import (
	"net/http"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentParse):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrMissingCredential):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrQA):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
