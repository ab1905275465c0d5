// Package errors defines the error taxonomy shared by the scraping client,
// the media fetcher and the vision annotator.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind represents the category of a failure
type Kind string

const (
	KindNetwork     Kind = "network"
	KindRateLimit   Kind = "rate_limit"
	KindAuth        Kind = "auth"
	KindParsing     Kind = "parsing"
	KindNotFound    Kind = "not_found"
	KindServerError Kind = "server_error"
	KindHTTP        Kind = "http"
	KindIO          Kind = "io"
	KindActorFailed Kind = "actor_failed"
	KindVision      Kind = "vision"
	KindConfig      Kind = "config"
	KindUnknown     Kind = "unknown"
)

// Error is a typed failure carrying the operation that produced it
type Error struct {
	Kind    Kind
	Op      string
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s error (code %d): %s", e.Op, e.Kind, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with a formatted message
func New(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around an underlying cause
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// FromStatus maps an unsuccessful HTTP status code to an Error
func FromStatus(op string, statusCode int) *Error {
	kind := KindHTTP
	switch {
	case statusCode == 401 || statusCode == 403:
		kind = KindAuth
	case statusCode == 404:
		kind = KindNotFound
	case statusCode == 429:
		kind = KindRateLimit
	case statusCode >= 500:
		kind = KindServerError
	}
	return &Error{
		Kind:    kind,
		Op:      op,
		Code:    statusCode,
		Message: fmt.Sprintf("unexpected status code: %d", statusCode),
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown
func KindOf(err error) Kind {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnknown
}

// IsRetryable checks if an error kind should be retried
func IsRetryable(kind Kind) bool {
	switch kind {
	case KindNetwork, KindRateLimit, KindServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
