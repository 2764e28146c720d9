package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses, logs and internal error handling.
const (
	ErrCodeInvalidInput = "INVALID_INPUT"

	// Resolution errors abort the whole run.
	ErrCodeFetch            = "FETCH_FAILED"
	ErrCodeMalformedSitemap = "MALFORMED_SITEMAP"

	// Page capture errors fail a single URL.
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeCapture      = "CAPTURE_FAILED"
	ErrCodeTimeout      = "CAPTURE_TIMEOUT"
	ErrCodeBrowserCrash = "BROWSER_CRASH"

	ErrCodePostProcess = "POSTPROCESS_FAILED"
	ErrCodeWrite       = "WRITE_FAILED"

	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeQueueFull    = "QUEUE_FULL"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PrerenderError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type PrerenderError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *PrerenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PrerenderError) Unwrap() error {
	return e.Err
}

// NewError creates a new PrerenderError.
func NewError(code, message string, err error) *PrerenderError {
	return &PrerenderError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *PrerenderError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf returns the code of the first PrerenderError in err's chain,
// or ErrCodeInternal when there is none.
func CodeOf(err error) string {
	var pe *PrerenderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrCodeInternal
}

// IsResolutionError reports whether err means the URL set could not be
// resolved (sitemap unreachable or malformed). Such errors are fatal to a run.
func IsResolutionError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeFetch, ErrCodeMalformedSitemap:
		return true
	}
	return false
}

// IsPageError reports whether err is scoped to a single page.
func IsPageError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeNavigation, ErrCodeCapture, ErrCodeTimeout, ErrCodeBrowserCrash, ErrCodeWrite:
		return true
	}
	return false
}
