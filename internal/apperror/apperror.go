// Package apperror defines the error taxonomy shared by every layer.
//
// Services return *AppError values that wrap one of the sentinels below.
// Handlers translate sentinels to HTTP status codes with errors.Is, so the
// service layer never needs to know about HTTP:
//
//	ErrValidation    → 400
//	ErrUnauthorized  → 401
//	ErrNotFound      → 404
//	ErrConflict      → 409
//	ErrExtraction    → recorded on a single AnalysisResult
//	ErrSummarization → recorded on a single AnalysisResult
//
// Anything that does not wrap a sentinel is an unexpected error and is
// reported to clients as a generic 500.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrExtraction    = errors.New("extraction failed")
	ErrSummarization = errors.New("summarization failed")
)

type AppError struct {
	Err     error  // sentinel
	Message string // human-readable, safe to show to clients
	Field   string // optional: input field that caused the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation, e.g. an email that is already
// registered.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Unauthorized is returned for bad credentials and for missing or expired
// sessions. The message must not reveal which check failed.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

func ExtractionFailed(message string) *AppError {
	return &AppError{
		Err:     ErrExtraction,
		Message: message,
	}
}

func SummarizationFailed(message string) *AppError {
	return &AppError{
		Err:     ErrSummarization,
		Message: message,
	}
}
