package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMalformedRecord    = errors.New("malformed record")
	ErrSourceUnavailable  = errors.New("source unavailable")
	ErrInvalidQuery       = errors.New("invalid query")
	ErrIndexCorruption    = errors.New("index corruption")
	ErrRecordNotFound     = errors.New("record not found")
	ErrJobNotFound        = errors.New("reindex job not found")
	ErrStaleGeneration    = errors.New("stale index generation")
	ErrSuperseded         = errors.New("reindex superseded")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
	ErrCoordinatorStopped = errors.New("coordinator stopped")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// InvalidQuery builds a 400 error rooted at ErrInvalidQuery.
func InvalidQuery(format string, args ...any) *AppError {
	return Newf(ErrInvalidQuery, http.StatusBadRequest, format, args...)
}

// Malformed builds an error rooted at ErrMalformedRecord.
func Malformed(format string, args ...any) *AppError {
	return Newf(ErrMalformedRecord, http.StatusUnprocessableEntity, format, args...)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrMalformedRecord):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrSourceUnavailable), errors.Is(err, ErrTimeout),
		errors.Is(err, ErrCoordinatorStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// codes pairs each sentinel with a stable wire code so RPC clients can
// rebuild it with errors.Is on their side.
var codes = []struct {
	code string
	err  error
}{
	{"malformed_record", ErrMalformedRecord},
	{"source_unavailable", ErrSourceUnavailable},
	{"invalid_query", ErrInvalidQuery},
	{"index_corruption", ErrIndexCorruption},
	{"record_not_found", ErrRecordNotFound},
	{"job_not_found", ErrJobNotFound},
	{"stale_generation", ErrStaleGeneration},
	{"superseded", ErrSuperseded},
	{"invalid_input", ErrInvalidInput},
	{"rate_limited", ErrRateLimited},
	{"timeout", ErrTimeout},
	{"coordinator_stopped", ErrCoordinatorStopped},
}

// Code returns the wire code for err, or "internal".
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

// FromCode rebuilds an error from a wire code and message.
func FromCode(code, message string) error {
	for _, c := range codes {
		if c.code == code {
			return &AppError{Err: c.err, Message: message, StatusCode: HTTPStatusCode(c.err)}
		}
	}
	return &AppError{Err: ErrInternal, Message: message, StatusCode: http.StatusInternalServerError}
}
