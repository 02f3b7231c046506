// Package errors holds the sentinel failures shared by the post catalog and
// the translation path, and maps them onto HTTP statuses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrPostNotFound           = errors.New("post not found")
	ErrPostExists             = errors.New("post already exists")
	ErrInvalidInput           = errors.New("invalid input")
	ErrTranslationUnavailable = errors.New("translation unavailable")
	ErrRateLimited            = errors.New("rate limit exceeded")
	ErrInternal               = errors.New("internal error")
	ErrTimeout                = errors.New("operation timed out")
)

// statusFor is consulted in order; the first sentinel err wraps decides.
var statusFor = []struct {
	sentinel error
	status   int
}{
	{ErrPostNotFound, http.StatusNotFound},
	{ErrPostExists, http.StatusConflict},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrRateLimited, http.StatusTooManyRequests},
	{ErrTranslationUnavailable, http.StatusServiceUnavailable},
	{ErrTimeout, http.StatusServiceUnavailable},
}

// AppError pairs a sentinel with the message shown to API clients and an
// explicit status that overrides the sentinel's default.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string { return e.Err.Error() + ": " + e.Message }

func (e *AppError) Unwrap() error { return e.Err }

func New(sentinel error, status int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: status}
}

func Newf(sentinel error, status int, format string, args ...any) *AppError {
	return New(sentinel, status, fmt.Sprintf(format, args...))
}

// Message is the client-facing text of err, or fallback when err carries
// no AppError.
func Message(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return fallback
}

// HTTPStatusCode picks the response status for err; unknown errors are 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	for _, s := range statusFor {
		if errors.Is(err, s.sentinel) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
