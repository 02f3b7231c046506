package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrPostNotFound, http.StatusNotFound},
		{"wrapped exists", fmt.Errorf("creating: %w", ErrPostExists), http.StatusConflict},
		{"invalid", ErrInvalidInput, http.StatusBadRequest},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"translation", ErrTranslationUnavailable, http.StatusServiceUnavailable},
		{"app error wins", New(ErrPostNotFound, http.StatusGone, "gone"), http.StatusGone},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Newf(ErrPostExists, http.StatusConflict, "post %q already exists", "jain-dharma"))
	if got := Message(err, "fallback"); got != `post "jain-dharma" already exists` {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(fmt.Errorf("plain"), "fallback"); got != "fallback" {
		t.Errorf("Message() = %q", got)
	}
}

func TestAppErrorWithoutStatusFallsBackToSentinel(t *testing.T) {
	err := fmt.Errorf("lookup: %w", &AppError{Err: ErrTimeout, Message: "translate service too slow"})
	if got := HTTPStatusCode(err); got != http.StatusServiceUnavailable {
		t.Errorf("HTTPStatusCode() = %d, want 503", got)
	}
}
