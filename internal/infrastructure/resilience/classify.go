package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/filing-analyzer/internal/core/domain"
)

// StatusCoder is implemented by errors that carry an upstream HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// StatusError is a non-2xx answer from a backend reached over plain HTTP.
type StatusError struct {
	Backend    string
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

// NewStatusError reads at most 2KiB of the response body into the error.
func NewStatusError(backend, operation string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &StatusError{
		Backend:    backend,
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}

func (e *StatusError) Error() string {
	if e == nil {
		return "backend status error"
	}
	if e.Body == "" {
		return fmt.Sprintf("%s %s status: %s", e.Backend, e.Operation, e.Status)
	}
	return fmt.Sprintf("%s %s status: %s: %s", e.Backend, e.Operation, e.Status, e.Body)
}

func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

// ClassifyTyped trusts only typed signals: context errors, open breakers,
// status codes and network errors. Anything else is permanent.
func ClassifyTyped(err error) ErrorClassification {
	if class, ok := classifyTyped(err); ok {
		return class
	}
	return ErrorClassification{Retryable: false, RecordFailure: true}
}

// ClassifyRemote classifies failures of a remote model API. It prefers typed
// signals, then well-known fragments of SDK messages.
func ClassifyRemote(err error) ErrorClassification {
	if class, ok := classifyTyped(err); ok {
		return class
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "rate limit"), strings.Contains(lower, "429"),
		strings.Contains(lower, "503"), strings.Contains(lower, "502"),
		strings.Contains(lower, "unavailable"), strings.Contains(lower, "overloaded"):
		return ErrorClassification{Retryable: true, RecordFailure: true}
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "forbidden"),
		strings.Contains(lower, "invalid"), strings.Contains(lower, "400"):
		return ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return ErrorClassification{Retryable: false, RecordFailure: true}
}

func classifyTyped(err error) (ErrorClassification, bool) {
	if err == nil {
		return ErrorClassification{}, true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassification{Retryable: false, RecordFailure: false}, true
	}
	if IsCircuitOpen(err) {
		return ErrorClassification{Retryable: true, RecordFailure: true}, true
	}

	var coded StatusCoder
	if errors.As(err, &coded) {
		if RetryableStatus(coded.HTTPStatus()) {
			return ErrorClassification{Retryable: true, RecordFailure: true}, true
		}
		return ErrorClassification{Retryable: false, RecordFailure: false}, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassification{Retryable: true, RecordFailure: true}, true
	}
	return ErrorClassification{}, false
}

func RetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// MarkTemporary wraps err as domain.ErrTemporary when a retry later could succeed.
func MarkTemporary(operation string, err error, classify ErrorClassifier) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	if classify == nil {
		classify = ClassifyRemote
	}
	if classify(err).Retryable || IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
